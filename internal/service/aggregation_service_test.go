package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-skill-api/internal/classroom"
	"github.com/noah-isme/classroom-skill-api/internal/dto"
	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(concurrency int) *AggregationService {
	svc := NewAggregationService(AggregationServiceParams{
		Logger: zap.NewNop(),
		Config: AggregationServiceConfig{BatchConcurrency: concurrency},
	})
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "msg-1" }
	return svc
}

func assignment(id, courseID string, y, m, d, hh, mm int) models.CourseWork {
	return models.CourseWork{
		ID:       id,
		CourseID: courseID,
		WorkType: models.CourseWorkTypeAssignment,
		Title:    "Work " + id,
		DueDate:  &models.Date{Year: y, Month: m, Day: d},
		DueTime:  &models.TimeOfDay{Hours: hh, Minutes: mm},
	}
}

func window(t *testing.T, start, end string) DueWindow {
	t.Helper()
	w, err := ParseDueWindow(&dto.TimeRange{Start: start, End: end})
	require.NoError(t, err)
	return w
}

func payloadItems[T any](t *testing.T, resp *dto.SkillResponse) []T {
	t.Helper()
	items, ok := resp.Response.Payload.Items.([]T)
	require.True(t, ok, "unexpected item type %T", resp.Response.Payload.Items)
	return items
}

func TestCourseworkDueWindowBoundaries(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}, {ID: "B", Name: "Biology"}}
	material := assignment("mat", "A", 2024, 3, 9, 10, 0)
	material.WorkType = "MATERIAL"
	undated := models.CourseWork{ID: "undated", CourseID: "B", WorkType: models.CourseWorkTypeAssignment, Title: "Someday"}
	api.courseWork["A"] = []models.CourseWork{assignment("at-start", "A", 2024, 3, 8, 10, 0), material}
	api.courseWork["B"] = []models.CourseWork{assignment("after-end", "B", 2024, 3, 10, 10, 0), undated}

	resp, err := newTestEngine(4).Coursework(context.Background(), api, Query{
		StudentID:  "me",
		Due:        window(t, "2024-03-08T10:00:00Z", "2024-03-10T09:59:59Z"),
		MaxResults: 10,
	})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkItem](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, "at-start", items[0].ID)
	assert.Equal(t, "Algebra", items[0].CourseName)
	assert.Equal(t, "2024-03-08T10:00:00Z", items[0].DueTime)
	assert.Equal(t, "ASSIGNMENT", items[0].Type)
	assert.Equal(t, 1, resp.Response.Payload.PaginationContext.TotalCount)
}

func TestCourseworkSubmissionState(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}}
	api.courseWork["A"] = []models.CourseWork{
		assignment("w1", "A", 2024, 3, 9, 8, 0),
		assignment("w2", "A", 2024, 3, 9, 9, 0),
	}
	api.submissions["A"] = []models.Submission{{ID: "s1", CourseID: "A", CourseWorkID: "w2"}}

	resp, err := newTestEngine(4).Coursework(context.Background(), api, Query{
		StudentID:  "stu-9",
		Due:        window(t, "2024-03-09T00:00:00Z", "2024-03-09T23:59:59Z"),
		MaxResults: 10,
	})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkItem](t, resp)
	require.Len(t, items, 2)
	assert.Equal(t, "w1", items[0].ID)
	assert.Equal(t, string(models.SubmissionStateNotSubmitted), items[0].SubmissionState)
	assert.Equal(t, "w2", items[1].ID)
	assert.Equal(t, string(models.SubmissionStateSubmitted), items[1].SubmissionState)
	assert.Equal(t, []string{"stu-9"}, api.submissionUsers)
}

func TestCourseworkAbsorbsSubQueryFailures(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}, {ID: "B", Name: "Biology"}}
	api.courseWork["A"] = []models.CourseWork{assignment("w1", "A", 2024, 3, 9, 8, 0)}
	api.courseWorkErr["B"] = &classroom.APIError{Operation: "courseWork.list", StatusCode: http.StatusForbidden}
	api.submissionsErr["A"] = &classroom.APIError{Operation: "studentSubmissions.list", StatusCode: http.StatusInternalServerError}

	resp, err := newTestEngine(4).Coursework(context.Background(), api, Query{
		StudentID:  "me",
		Due:        window(t, "2024-03-09T00:00:00Z", "2024-03-09T23:59:59Z"),
		MaxResults: 10,
	})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkItem](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, string(models.SubmissionStateNotSubmitted), items[0].SubmissionState)
}

func TestCourseworkOrderingAndTruncation(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "B", Name: "Biology"}, {ID: "A", Name: "Algebra"}}
	api.courseWork["A"] = []models.CourseWork{assignment("a2", "A", 2024, 3, 9, 9, 0), assignment("a1", "A", 2024, 3, 9, 8, 0)}
	api.courseWork["B"] = []models.CourseWork{assignment("b1", "B", 2024, 3, 9, 8, 0)}

	resp, err := newTestEngine(4).Coursework(context.Background(), api, Query{
		StudentID:  "me",
		Due:        window(t, "2024-03-09", "2024-03-10"),
		MaxResults: 2,
	})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkItem](t, resp)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"a1", "b1"}, []string{items[0].ID, items[1].ID})
	assert.Equal(t, 2, resp.Response.Payload.PaginationContext.TotalCount)
}

func TestCourseworkGradesScenario(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}}
	ungraded := assignment("ungraded", "A", 2024, 3, 1, 0, 0)
	ungraded.MaxPoints = ptr(10)
	graded := assignment("graded", "A", 2024, 3, 2, 0, 0)
	graded.MaxPoints = ptr(10)
	pointless := assignment("pointless", "A", 2024, 3, 3, 0, 0)
	untitled := assignment("untitled", "A", 2024, 3, 4, 0, 0)
	untitled.Title = ""
	untitled.MaxPoints = ptr(10)
	api.courseWork["A"] = []models.CourseWork{ungraded, graded, pointless, untitled, assignment("nosubs", "A", 2024, 3, 5, 0, 0)}
	gradedAt := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	api.submissions["A"] = []models.Submission{
		{ID: "s1", CourseID: "A", CourseWorkID: "ungraded"},
		{ID: "s2", CourseID: "A", CourseWorkID: "graded", AssignedGrade: ptr(8), UpdateTime: gradedAt},
		{ID: "s3", CourseID: "A", CourseWorkID: "pointless", AssignedGrade: ptr(5)},
		{ID: "s4", CourseID: "A", CourseWorkID: "orphan", AssignedGrade: ptr(5)},
		{ID: "s5", CourseID: "A", CourseWorkID: "untitled", AssignedGrade: ptr(9)},
	}

	resp, err := newTestEngine(4).CourseworkGrades(context.Background(), api, Query{StudentID: "me", MaxResults: 10})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkGradeItem](t, resp)
	require.Len(t, items, 1)
	got := items[0]
	assert.Equal(t, "graded", got.CourseworkID)
	assert.Equal(t, "Algebra", got.CourseName)
	assert.Equal(t, "me", got.StudentID)
	assert.Equal(t, 8.0, got.Grade.OverallGrade.GradeScore.Score)
	assert.Equal(t, 10.0, got.Grade.OverallGrade.GradeScore.MaxPoints)
	assert.Equal(t, "POINTS", got.Grade.OverallGrade.GradeScore.Type)
	assert.Equal(t, "ASSIGNMENT", got.CourseworkType)
	assert.Equal(t, "2024-03-05T09:30:00Z", got.LastGradedTime)
}

func TestCourseworkGradesReportsQuestionsAsAssignments(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}}
	question := assignment("q1", "A", 2024, 3, 1, 0, 0)
	question.WorkType = models.CourseWorkTypeShortAnswer
	question.MaxPoints = ptr(4)
	api.courseWork["A"] = []models.CourseWork{question}
	api.submissions["A"] = []models.Submission{
		{ID: "s1", CourseID: "A", CourseWorkID: "q1", AssignedGrade: ptr(3), UpdateTime: fixedNow},
	}

	resp, err := newTestEngine(4).CourseworkGrades(context.Background(), api, Query{StudentID: "me", MaxResults: 10})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkGradeItem](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, "ASSIGNMENT", items[0].CourseworkType)
}

func TestCourseworkGradesUsesLastGradedSubmission(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}, {ID: "B", Name: "Biology"}}
	w1 := assignment("w1", "A", 2024, 3, 1, 0, 0)
	w1.MaxPoints = ptr(20)
	w2 := assignment("w2", "B", 2024, 3, 1, 0, 0)
	w2.MaxPoints = ptr(5)
	api.courseWork["A"] = []models.CourseWork{w1}
	api.courseWork["B"] = []models.CourseWork{w2}
	api.submissions["A"] = []models.Submission{
		{ID: "s1", CourseID: "A", CourseWorkID: "w1", AssignedGrade: ptr(10), UpdateTime: fixedNow.Add(-3 * time.Hour)},
		{ID: "s2", CourseID: "A", CourseWorkID: "w1", AssignedGrade: ptr(0), UpdateTime: fixedNow.Add(-2 * time.Hour)},
		{ID: "s3", CourseID: "A", CourseWorkID: "w1", UpdateTime: fixedNow},
	}
	api.submissions["B"] = []models.Submission{
		{ID: "s4", CourseID: "B", CourseWorkID: "w2", AssignedGrade: ptr(4), UpdateTime: fixedNow.Add(-time.Hour)},
	}

	resp, err := newTestEngine(4).CourseworkGrades(context.Background(), api, Query{StudentID: "me", MaxResults: 10})
	require.NoError(t, err)

	items := payloadItems[dto.CourseworkGradeItem](t, resp)
	require.Len(t, items, 2)
	assert.Equal(t, "w2", items[0].CourseworkID)
	assert.Equal(t, "w1", items[1].CourseworkID)
	assert.Equal(t, 0.0, items[1].Grade.OverallGrade.GradeScore.Score)
}

func TestCourseworkGradesNarrowedToCourse(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}, {ID: "B", Name: "Biology"}}

	_, err := newTestEngine(4).CourseworkGrades(context.Background(), api, Query{StudentID: "me", CourseID: "B", MaxResults: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("courses.get:B"))
	assert.Equal(t, 0, api.callCount("courses.list"))
	assert.Equal(t, 0, api.callCount("courseWork.list:A"))

	_, err = newTestEngine(4).CourseworkGrades(context.Background(), api, Query{StudentID: "me", CourseID: "Z", MaxResults: 5})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestAnnouncementsRecencyAndAuthors(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}}
	api.profiles["t1"] = &models.UserProfile{ID: "t1", Name: models.UserName{GivenName: "Ada", FullName: "Ada Lovelace"}}
	api.profiles["t2"] = &models.UserProfile{ID: "t2", Name: models.UserName{GivenName: "Alan"}}
	api.announcements["A"] = []models.Announcement{
		{ID: "old", CourseID: "A", CreatorUserID: "t1", Text: "stale", UpdateTime: fixedNow.Add(-AnnouncementWindow - time.Second)},
		{ID: "edge", CourseID: "A", CreatorUserID: "t2", Text: "edge", UpdateTime: fixedNow.Add(-AnnouncementWindow)},
		{ID: "new", CourseID: "A", CreatorUserID: "t1", Text: "fresh", UpdateTime: fixedNow.Add(-time.Hour)},
		{ID: "ghost", CourseID: "A", CreatorUserID: "nobody", Text: "who", UpdateTime: fixedNow.Add(-2 * time.Hour)},
	}

	resp, err := newTestEngine(4).Announcements(context.Background(), api, Query{StudentID: "me", MaxResults: 10})
	require.NoError(t, err)

	items := payloadItems[dto.CommunicationItem](t, resp)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"new", "ghost", "edge"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "Ada Lovelace", items[0].From)
	assert.Equal(t, models.UnknownUserName, items[1].From)
	assert.Equal(t, "Alan", items[2].From)
	assert.Equal(t, "fresh", items[0].Content.Text)
	for _, item := range items {
		assert.Equal(t, "GENERIC_FROM", item.Type)
		assert.Equal(t, "ANNOUNCEMENT", item.Kind)
	}
	assert.Equal(t, 3, resp.Response.Payload.PaginationContext.TotalCount)
}

func TestAnnouncementsTruncateBeforeAuthorLookup(t *testing.T) {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}}
	api.announcements["A"] = []models.Announcement{
		{ID: "a1", CreatorUserID: "t1", UpdateTime: fixedNow.Add(-time.Hour)},
		{ID: "a2", CreatorUserID: "t2", UpdateTime: fixedNow.Add(-2 * time.Hour)},
		{ID: "a3", CreatorUserID: "t3", UpdateTime: fixedNow.Add(-3 * time.Hour)},
	}

	resp, err := newTestEngine(4).Announcements(context.Background(), api, Query{StudentID: "me", MaxResults: 1})
	require.NoError(t, err)

	items := payloadItems[dto.CommunicationItem](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, 1, api.callCount("userProfiles.get"))
}

func TestZeroCoursesYieldEmptyResponses(t *testing.T) {
	api := newFakeClassroom()
	engine := newTestEngine(4)
	ctx := context.Background()
	q := Query{StudentID: "me", MaxResults: 5, Due: DueWindow{Start: fixedNow.Add(-time.Hour), End: fixedNow}}

	cases := map[string]func() (*dto.SkillResponse, error){
		"courses":              func() (*dto.SkillResponse, error) { return engine.Courses(ctx, api, q) },
		"coursework":           func() (*dto.SkillResponse, error) { return engine.Coursework(ctx, api, q) },
		"courseworkGrades":     func() (*dto.SkillResponse, error) { return engine.CourseworkGrades(ctx, api, q) },
		"schoolCommunications": func() (*dto.SkillResponse, error) { return engine.Announcements(ctx, api, q) },
	}
	for key, run := range cases {
		t.Run(key, func(t *testing.T) {
			resp, err := run()
			require.NoError(t, err)
			assert.Equal(t, 0, resp.Response.Payload.PaginationContext.TotalCount)

			raw, err := json.Marshal(resp)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"`+key+`":[]`)
			assert.Contains(t, string(raw), `"paginationContext":{"totalCount":0}`)
		})
	}
}

func TestRootFailureIsUpstreamError(t *testing.T) {
	engine := newTestEngine(4)
	ctx := context.Background()

	api := newFakeClassroom()
	api.coursesErr = &classroom.APIError{Operation: "courses.list", StatusCode: http.StatusServiceUnavailable}
	_, err := engine.Coursework(ctx, api, Query{StudentID: "me", MaxResults: 1})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUpstream.Code))

	api.coursesErr = &classroom.APIError{Operation: "courses.list", StatusCode: http.StatusUnauthorized}
	_, err = engine.Announcements(ctx, api, Query{StudentID: "me", MaxResults: 1})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	_, err = engine.StudentProfiles(ctx, api, Query{StudentID: "me"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestStudentProfilesAndCourses(t *testing.T) {
	api := newFakeClassroom()
	api.profiles["me"] = &models.UserProfile{ID: "42", Name: models.UserName{GivenName: "Grace", FamilyName: "Hopper", FullName: "Grace Hopper"}}
	api.courses = []models.Course{{ID: "B", Name: "Biology", Description: "Cells"}, {ID: "A", Name: "Algebra"}}
	engine := newTestEngine(4)

	resp, err := engine.StudentProfiles(context.Background(), api, Query{StudentID: "me"})
	require.NoError(t, err)
	profiles := payloadItems[dto.StudentProfile](t, resp)
	require.Len(t, profiles, 1)
	assert.Equal(t, dto.StudentProfile{ID: "42", AccountRelationType: "SELF", Name: dto.PersonName{Given: "Grace", Family: "Hopper", Full: "Grace Hopper"}}, profiles[0])

	resp, err = engine.Courses(context.Background(), api, Query{StudentID: "me", MaxResults: 10})
	require.NoError(t, err)
	courses := payloadItems[dto.CourseItem](t, resp)
	assert.Equal(t, []dto.CourseItem{{ID: "B", Name: "Biology", Description: "Cells"}, {ID: "A", Name: "Algebra"}}, courses)
	assert.Contains(t, api.pageSizes, 10)
}

// reversedFixture serves identical data with the course enumeration reversed,
// which with a single worker reverses the order every batch callback fires in.
func reversedFixture(reverse bool) *fakeClassroom {
	api := newFakeClassroom()
	api.courses = []models.Course{{ID: "A", Name: "Algebra"}, {ID: "B", Name: "Biology"}, {ID: "C", Name: "Chemistry"}}
	if reverse {
		api.courses = []models.Course{api.courses[2], api.courses[1], api.courses[0]}
	}
	for _, c := range []string{"A", "B", "C"} {
		w1 := assignment(c+"-1", c, 2024, 3, 9, 10, 0)
		w1.MaxPoints = ptr(10)
		w2 := assignment(c+"-2", c, 2024, 3, 9, 11, 0)
		w2.MaxPoints = ptr(20)
		api.courseWork[c] = []models.CourseWork{w1, w2}
		api.submissions[c] = []models.Submission{
			{ID: c + "-s1", CourseID: c, CourseWorkID: c + "-1", AssignedGrade: ptr(7), UpdateTime: fixedNow.Add(-time.Hour)},
			{ID: c + "-s2", CourseID: c, CourseWorkID: c + "-2", AssignedGrade: ptr(15), UpdateTime: fixedNow.Add(-time.Hour)},
		}
		api.announcements[c] = []models.Announcement{
			{ID: c + "-a1", CourseID: c, CreatorUserID: "t-" + c, Text: "hello " + c, UpdateTime: fixedNow.Add(-time.Hour)},
			{ID: c + "-a2", CourseID: c, CreatorUserID: "t-shared", Text: "bye " + c, UpdateTime: fixedNow.Add(-2 * time.Hour)},
		}
		api.profiles["t-"+c] = &models.UserProfile{ID: "t-" + c, Name: models.UserName{FullName: "Teacher " + c}}
	}
	api.profiles["t-shared"] = &models.UserProfile{ID: "t-shared", Name: models.UserName{GivenName: "Shared"}}
	return api
}

func TestCallbackOrderDoesNotAffectResponse(t *testing.T) {
	engine := newTestEngine(1)
	ctx := context.Background()
	due := window(t, "2024-03-09T00:00:00Z", "2024-03-09T23:59:59Z")

	run := func(api *fakeClassroom) [][]byte {
		var out [][]byte
		for _, fn := range []func() (*dto.SkillResponse, error){
			func() (*dto.SkillResponse, error) {
				return engine.Coursework(ctx, api, Query{StudentID: "me", Due: due, MaxResults: 4})
			},
			func() (*dto.SkillResponse, error) {
				return engine.CourseworkGrades(ctx, api, Query{StudentID: "me", MaxResults: 4})
			},
			func() (*dto.SkillResponse, error) {
				return engine.Announcements(ctx, api, Query{StudentID: "me", MaxResults: 4})
			},
		} {
			resp, err := fn()
			require.NoError(t, err)
			raw, err := json.Marshal(resp)
			require.NoError(t, err)
			out = append(out, raw)
		}
		return out
	}

	forward := run(reversedFixture(false))
	backward := run(reversedFixture(true))
	require.Len(t, backward, len(forward))
	for i := range forward {
		assert.Equal(t, string(forward[i]), string(backward[i]))
	}
}
