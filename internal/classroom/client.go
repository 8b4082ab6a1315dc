// Package classroom is a typed client for the Google Classroom REST API.
// Responses are decoded straight into the domain records so that nothing
// untyped travels past this boundary.
package classroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/noah-isme/classroom-skill-api/internal/models"
)

// Observer receives latency for every upstream round trip.
type Observer interface {
	ObserveUpstream(operation string, status int, duration time.Duration)
}

// Config tunes the client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

const (
	defaultBaseURL = "https://classroom.googleapis.com"
	maxErrorBody   = 64 << 10
)

// Client talks to the Classroom API on behalf of one access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	observer   Observer
	logger     *zap.Logger
}

// NewClient wraps an authenticated HTTP client.
func NewClient(httpClient *http.Client, cfg Config, observer Observer, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		observer:   observer,
		logger:     logger,
	}
}

// Factory builds per-token clients sharing one transport.
type Factory struct {
	cfg       Config
	transport http.RoundTripper
	observer  Observer
	logger    *zap.Logger
}

// NewFactory constructs a Factory. A nil transport uses http.DefaultTransport.
func NewFactory(cfg Config, transport http.RoundTripper, observer Observer, logger *zap.Logger) *Factory {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Factory{cfg: cfg, transport: transport, observer: observer, logger: logger}
}

// ForToken returns a client that authenticates with the given bearer token.
// Token refresh is the caller's concern.
func (f *Factory) ForToken(token string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := &http.Client{
		Timeout:   f.cfg.Timeout,
		Transport: &oauth2.Transport{Source: source, Base: f.transport},
	}
	return NewClient(httpClient, f.cfg, f.observer, f.logger)
}

type listCoursesResponse struct {
	Courses []models.Course `json:"courses"`
}

type listCourseWorkResponse struct {
	CourseWork []models.CourseWork `json:"courseWork"`
}

type listSubmissionsResponse struct {
	StudentSubmissions []models.Submission `json:"studentSubmissions"`
}

type listAnnouncementsResponse struct {
	Announcements []models.Announcement `json:"announcements"`
}

// ListCourses enumerates the courses of a student.
func (c *Client) ListCourses(ctx context.Context, studentID string, pageSize int) ([]models.Course, error) {
	q := url.Values{}
	q.Set("studentId", studentID)
	q.Set("fields", "courses(id,name,description)")
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	var out listCoursesResponse
	if err := c.do(ctx, "courses.list", http.MethodGet, "/v1/courses", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// GetCourse fetches a single course.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	q := url.Values{}
	q.Set("fields", "id,name,description")
	var out models.Course
	if err := c.do(ctx, "courses.get", http.MethodGet, "/v1/courses/"+url.PathEscape(courseID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCourseWork lists coursework of a course.
func (c *Client) ListCourseWork(ctx context.Context, courseID, orderBy string, pageSize int) ([]models.CourseWork, error) {
	q := url.Values{}
	q.Set("fields", "courseWork(id,workType,courseId,dueDate,dueTime,title,description,creationTime,maxPoints)")
	if orderBy != "" {
		q.Set("orderBy", orderBy)
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	path := fmt.Sprintf("/v1/courses/%s/courseWork", url.PathEscape(courseID))
	var out listCourseWorkResponse
	if err := c.do(ctx, "courseWork.list", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.CourseWork, nil
}

// ListSubmissions lists submissions of a course. courseWorkID "-" spans every
// coursework item; an empty userID returns every visible submission.
func (c *Client) ListSubmissions(ctx context.Context, courseID, courseWorkID, userID string) ([]models.Submission, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	path := fmt.Sprintf("/v1/courses/%s/courseWork/%s/studentSubmissions", url.PathEscape(courseID), url.PathEscape(courseWorkID))
	var out listSubmissionsResponse
	if err := c.do(ctx, "studentSubmissions.list", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.StudentSubmissions, nil
}

// ListAnnouncements lists the announcements of a course.
func (c *Client) ListAnnouncements(ctx context.Context, courseID string) ([]models.Announcement, error) {
	path := fmt.Sprintf("/v1/courses/%s/announcements", url.PathEscape(courseID))
	var out listAnnouncementsResponse
	if err := c.do(ctx, "announcements.list", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Announcements, nil
}

// GetUserProfile fetches a user profile; "me" resolves the token owner.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	q := url.Values{}
	q.Set("fields", "id,name")
	var out models.UserProfile
	if err := c.do(ctx, "userProfiles.get", http.MethodGet, "/v1/userProfiles/"+url.PathEscape(userID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type registrationRequest struct {
	Feed             registrationFeed  `json:"feed"`
	CloudPubsubTopic registrationTopic `json:"cloudPubsubTopic"`
}

type registrationFeed struct {
	FeedType              string                `json:"feedType"`
	CourseWorkChangesInfo courseWorkChangesInfo `json:"courseWorkChangesInfo"`
}

type courseWorkChangesInfo struct {
	CourseID string `json:"courseId"`
}

type registrationTopic struct {
	TopicName string `json:"topicName"`
}

// CreateRegistration subscribes the topic to coursework changes of a course.
func (c *Client) CreateRegistration(ctx context.Context, courseID, topic string) (*models.Registration, error) {
	body := registrationRequest{
		Feed: registrationFeed{
			FeedType:              "COURSE_WORK_CHANGES",
			CourseWorkChangesInfo: courseWorkChangesInfo{CourseID: courseID},
		},
		CloudPubsubTopic: registrationTopic{TopicName: topic},
	}
	var out models.Registration
	if err := c.do(ctx, "registrations.create", http.MethodPost, "/v1/registrations", nil, body, &out); err != nil {
		return nil, err
	}
	out.CourseID = courseID
	return &out, nil
}

// DeleteRegistration removes a push registration.
func (c *Client) DeleteRegistration(ctx context.Context, registrationID string) error {
	return c.do(ctx, "registrations.delete", http.MethodDelete, "/v1/registrations/"+url.PathEscape(registrationID), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			c.logger.Debug("retrying classroom request", zap.String("operation", op), zap.Int("attempt", attempt), zap.Error(lastErr))
		}

		err := c.once(ctx, op, method, path, query, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !idempotent(method) || !retryable(ctx, err) {
			return err
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", op, c.maxRetries, lastErr)
}

func (c *Client) once(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, start)

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(op, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(op, status, time.Since(start))
	}
}
