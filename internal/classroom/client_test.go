package classroom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type upstreamRecorder struct {
	ops []string
}

func (r *upstreamRecorder) ObserveUpstream(op string, _ int, _ time.Duration) {
	r.ops = append(r.ops, op)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) (*Client, *upstreamRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rec := &upstreamRecorder{}
	factory := NewFactory(Config{
		BaseURL:      srv.URL,
		Timeout:      time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
	}, nil, rec, zap.NewNop())
	return factory.ForToken("token-abc"), rec
}

func TestListCoursesSendsTokenAndDecodes(t *testing.T) {
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/courses", r.URL.Path)
		assert.Equal(t, "me", r.URL.Query().Get("studentId"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		_, _ = io.WriteString(w, `{"courses":[{"id":"c1","name":"Biology","description":"Cells"},{"id":"c2","name":"History"}]}`)
	}, 0)

	courses, err := client.ListCourses(context.Background(), "me", 5)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Biology", courses[0].Name)
	assert.Equal(t, "Cells", courses[0].Description)
	assert.Empty(t, courses[1].Description)
	assert.Equal(t, []string{"courses.list"}, rec.ops)
}

func TestListCourseWorkDecodesOptionalFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/courses/c1/courseWork", r.URL.Path)
		assert.Equal(t, "dueDate desc", r.URL.Query().Get("orderBy"))
		_, _ = io.WriteString(w, `{"courseWork":[
			{"id":"w1","courseId":"c1","workType":"ASSIGNMENT","title":"Essay","dueDate":{"year":2024,"month":3,"day":9},"dueTime":{"hours":23,"minutes":59},"maxPoints":10,"creationTime":"2024-03-01T10:00:00Z"},
			{"id":"w2","courseId":"c1","workType":"ASSIGNMENT","title":"Reading","dueDate":{"year":2024,"month":3,"day":10},"dueTime":{}},
			{"id":"w3","courseId":"c1","workType":"MATERIAL","title":"Slides"}
		]}`)
	}, 0)

	works, err := client.ListCourseWork(context.Background(), "c1", "dueDate desc", 10)
	require.NoError(t, err)
	require.Len(t, works, 3)

	due, ok := works[0].DueInstant()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC), due)
	require.NotNil(t, works[0].MaxPoints)
	assert.Equal(t, 10.0, *works[0].MaxPoints)

	due, ok = works[1].DueInstant()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), due)
	assert.Nil(t, works[1].MaxPoints)

	_, ok = works[2].DueInstant()
	assert.False(t, ok)
}

func TestListSubmissionsDistinguishesMissingGrade(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/courses/c1/courseWork/-/studentSubmissions", r.URL.Path)
		assert.Equal(t, "stu-1", r.URL.Query().Get("userId"))
		_, _ = io.WriteString(w, `{"studentSubmissions":[
			{"id":"s1","courseId":"c1","courseWorkId":"w1","updateTime":"2024-03-02T08:00:00.123Z"},
			{"id":"s2","courseId":"c1","courseWorkId":"w1","assignedGrade":0,"updateTime":"2024-03-03T08:00:00Z"}
		]}`)
	}, 0)

	subs, err := client.ListSubmissions(context.Background(), "c1", "-", "stu-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.False(t, subs[0].Graded())
	assert.True(t, subs[1].Graded())
	assert.Equal(t, 0.0, *subs[1].AssignedGrade)
}

func TestAPIErrorIsDecoded(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`)
	}, 3)

	_, err := client.GetUserProfile(context.Background(), "ghost")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "NOT_FOUND", apiErr.Status)
	assert.Equal(t, "userProfiles.get", apiErr.Operation)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"announcements":[{"id":"a1","courseId":"c1","creatorUserId":"t1","text":"Hi","updateTime":"2024-03-01T00:00:00Z"}]}`)
	}, 2)

	anns, err := client.ListAnnouncements(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, rec.ops, 3)
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, 1)

	_, err := client.ListAnnouncements(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateAndDeleteRegistration(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/v1/registrations", r.URL.Path)
			var body registrationRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "COURSE_WORK_CHANGES", body.Feed.FeedType)
			assert.Equal(t, "c1", body.Feed.CourseWorkChangesInfo.CourseID)
			assert.Equal(t, "projects/p/topics/t", body.CloudPubsubTopic.TopicName)
			_, _ = io.WriteString(w, `{"registrationId":"reg-1","expiryTime":"2024-03-08T00:00:00Z"}`)
		case http.MethodDelete:
			assert.Equal(t, "/v1/registrations/reg-1", r.URL.Path)
			_, _ = io.WriteString(w, `{}`)
		}
	}, 0)

	reg, err := client.CreateRegistration(context.Background(), "c1", "projects/p/topics/t")
	require.NoError(t, err)
	assert.Equal(t, "reg-1", reg.RegistrationID)
	assert.Equal(t, "c1", reg.CourseID)

	require.NoError(t, client.DeleteRegistration(context.Background(), "reg-1"))
}

func TestCreateRegistrationIsNotRetried(t *testing.T) {
	var posts, deletes int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			atomic.AddInt32(&posts, 1)
		case http.MethodDelete:
			atomic.AddInt32(&deletes, 1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	_, err := client.CreateRegistration(context.Background(), "c1", "projects/p/topics/t")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))

	require.Error(t, client.DeleteRegistration(context.Background(), "reg-1"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&deletes))
}
