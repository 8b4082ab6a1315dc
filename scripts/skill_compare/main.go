package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// directive is one skill query replayed against both gateways. Body holds the
// request document; a fresh messageId is stamped on each replay.
type directive struct {
	Name     string          `json:"name"`
	Body     json.RawMessage `json:"body"`
	Critical bool            `json:"critical"`
}

type config struct {
	Directives []directive `json:"directives"`
}

type comparison struct {
	Directive         directive
	BaselineStatus    int
	CandidateStatus   int
	StatusMatch       bool
	BodyMatch         bool
	Error             error
	DurationBaseline  time.Duration
	DurationCandidate time.Duration
}

func main() {
	var (
		candidateBase string
		baselineBase  string
		targetsPath   string
		callerToken   string
		timeout       time.Duration
	)

	flag.StringVar(&candidateBase, "candidate", "http://localhost:8080/api/v1", "Candidate gateway base URL")
	flag.StringVar(&baselineBase, "baseline", "http://localhost:8081/api/v1", "Baseline gateway base URL")
	flag.StringVar(&targetsPath, "directives", filepath.Join("scripts", "skill_compare", "directives.json"), "Path to JSON directives file")
	flag.StringVar(&callerToken, "caller-token", os.Getenv("CALLER_TOKEN"), "Caller JWT sent to both gateways")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	directives, err := loadDirectives(targetsPath)
	if err != nil {
		log.Fatalf("failed to load directives: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, d := range directives {
		comp := compareDirective(client, candidateBase, baselineBase, callerToken, d)
		switch {
		case comp.Error != nil:
			if d.Critical {
				breaking++
			}
		case !comp.StatusMatch || !comp.BodyMatch:
			if d.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadDirectives(path string) ([]directive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Directives) == 0 {
		return nil, fmt.Errorf("no directives defined in %s", path)
	}
	return cfg.Directives, nil
}

func compareDirective(client *http.Client, candidateBase, baselineBase, token string, d directive) comparison {
	comp := comparison{Directive: d}
	body, err := withMessageID(d.Body, uuid.NewString())
	if err != nil {
		comp.Error = fmt.Errorf("prepare directive: %w", err)
		return comp
	}

	candStatus, candBody, candDur, candErr := post(client, candidateBase, token, body)
	baseStatus, baseBody, baseDur, baseErr := post(client, baselineBase, token, body)
	comp.DurationCandidate = candDur
	comp.DurationBaseline = baseDur

	if candErr != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", candErr)
		return comp
	}
	if baseErr != nil {
		comp.Error = fmt.Errorf("baseline request failed: %w", baseErr)
		return comp
	}

	comp.CandidateStatus = candStatus
	comp.BaselineStatus = baseStatus
	comp.StatusMatch = candStatus == baseStatus
	comp.BodyMatch = bodiesEqual(candBody, baseBody)
	return comp
}

// withMessageID stamps request.header.messageId so both gateways receive the
// same document.
func withMessageID(raw json.RawMessage, id string) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	req, ok := doc["request"].(map[string]interface{})
	if !ok {
		return nil, errors.New("directive has no request object")
	}
	header, ok := req["header"].(map[string]interface{})
	if !ok {
		header = map[string]interface{}{}
		req["header"] = header
	}
	header["messageId"] = id
	return json.Marshal(doc)
}

func post(client *http.Client, base, token string, body []byte) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	url := strings.TrimRight(base, "/") + "/skill/query"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, payload, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	dropResponseMessageID(aj)
	dropResponseMessageID(bj)
	return reflect.DeepEqual(aj, bj)
}

// dropResponseMessageID removes response.header.messageId, which every
// gateway generates per answer.
func dropResponseMessageID(doc interface{}) {
	root, ok := doc.(map[string]interface{})
	if !ok {
		return
	}
	resp, ok := root["response"].(map[string]interface{})
	if !ok {
		return
	}
	if header, ok := resp["header"].(map[string]interface{}); ok {
		delete(header, "messageId")
	}
}

func printReport(results []comparison) {
	fmt.Println("Skill Compare Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.Directive.Name)
		fmt.Printf("  Candidate: %d (%s)\n", res.CandidateStatus, res.DurationCandidate)
		fmt.Printf("  Baseline: %d (%s)\n", res.BaselineStatus, res.DurationBaseline)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Directive.Critical)
		}
	}
}
