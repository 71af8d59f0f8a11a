package services

import (
	"context"
	"strings"
	"testing"

	"canvia-backend/internal/models"
)

type fakeDirectory struct {
	active      []models.Course
	past        []models.Course
	assignments map[int64][]models.Assignment
	events      []models.CalendarEvent
	pending     []models.Assignment
}

func (f *fakeDirectory) ListCourses(ctx context.Context, state string) []models.Course {
	if state == "active" {
		return f.active
	}
	return f.past
}

func (f *fakeDirectory) ListAssignments(ctx context.Context, courseID int64) []models.Assignment {
	return f.assignments[courseID]
}

func (f *fakeDirectory) ListCalendarEvents(ctx context.Context, daysAhead int) []models.CalendarEvent {
	return f.events
}

func (f *fakeDirectory) ListPendingAssignments(ctx context.Context, daysAhead int) []models.Assignment {
	return f.pending
}

type fakeDispatcher struct {
	calls  int
	course models.Course
	output string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, course models.Course, query string) string {
	f.calls++
	f.course = course
	if f.output == "" {
		return "  📂 Week 1\n"
	}
	return f.output
}

func newTestBuilder(dir *fakeDirectory, disp *fakeDispatcher) *ContextBuilder {
	return NewContextBuilder(dir, NewCourseResolver(DefaultResolverWeights), disp)
}

func algorithmsDirectory() *fakeDirectory {
	return &fakeDirectory{
		active: []models.Course{
			{ID: 1, Name: "Algorithms and Analysis", CourseCode: "COSC2123"},
			{ID: 2, Name: "Database Concepts", CourseCode: "COSC2406"},
		},
		past: []models.Course{
			{ID: 3, Name: "Introduction to Programming", CourseCode: "COSC1284"},
		},
		assignments: map[int64][]models.Assignment{
			1: {
				graded("Assignment 1", 120, 90),
				graded("Assignment 2", 80, 60),
				ungraded("Final Project", 100),
			},
		},
	}
}

func TestBuildGeneralQueryReturnsOnlyCourseLists(t *testing.T) {
	disp := &fakeDispatcher{}
	cb := newTestBuilder(algorithmsDirectory(), disp)

	res := cb.Build(context.Background(), BuildRequest{Query: "What are my courses?"})

	if !res.GeneralQuery {
		t.Error("Expected GeneralQuery = true")
	}
	if !strings.Contains(res.Context, "📚 YOUR ACTIVE COURSES:") || !strings.Contains(res.Context, "📜 YOUR PAST COURSES:") {
		t.Errorf("course lists missing:\n%s", res.Context)
	}
	if !strings.Contains(res.Context, "General course list request") {
		t.Errorf("missing general-query marker:\n%s", res.Context)
	}
	if strings.Contains(res.Context, "🎯 DETECTED COURSE") || disp.calls != 0 {
		t.Errorf("general query must skip resolution and dispatch:\n%s", res.Context)
	}
}

func TestBuildResolvedCourseMarker(t *testing.T) {
	cb := newTestBuilder(algorithmsDirectory(), &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "tell me about COSC2123 assignments"})

	if res.ResolvedCourse == nil || res.ResolvedCourse.ID != 1 {
		t.Fatalf("Expected COSC2123 resolved, got %+v", res.ResolvedCourse)
	}
	if !strings.Contains(res.Context, "🎯 DETECTED COURSE FOR THIS QUERY: Algorithms and Analysis (Code: COSC2123)") {
		t.Errorf("missing detected-course marker:\n%s", res.Context)
	}
	if res.NeedsClarification {
		t.Error("resolved query must not need clarification")
	}
}

func TestBuildClarificationNeeded(t *testing.T) {
	cb := newTestBuilder(algorithmsDirectory(), &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "summarize the lecture content"})

	if !res.NeedsClarification {
		t.Error("course-specific query without a match must need clarification")
	}
	if !strings.Contains(res.Context, "⚠️ NO SPECIFIC COURSE DETECTED") {
		t.Errorf("missing clarification marker:\n%s", res.Context)
	}
}

func TestBuildGeneralChatter(t *testing.T) {
	cb := newTestBuilder(algorithmsDirectory(), &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "give me study tips"})

	if res.NeedsClarification {
		t.Error("non-specific chatter must not demand clarification")
	}
	if !strings.Contains(res.Context, "ℹ️ GENERAL QUERY - No specific course needed") {
		t.Errorf("missing general marker:\n%s", res.Context)
	}
}

func TestBuildGradeCalculationSection(t *testing.T) {
	cb := newTestBuilder(algorithmsDirectory(), &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "What do I need to get HD in COSC2123?"})

	if res.Projection == nil {
		t.Fatal("Expected projection side data")
	}
	if res.Projection.RequiredPercentage != 90 {
		t.Errorf("Expected required 90%%, got %v", res.Projection.RequiredPercentage)
	}
	if !strings.Contains(res.Context, "🎓 GRADE CALCULATION:") {
		t.Errorf("missing grade section:\n%s", res.Context)
	}
	if !strings.Contains(res.Context, "Average of 90% on remaining assignments") {
		t.Errorf("missing required percentage line:\n%s", res.Context)
	}
	if !strings.Contains(res.Context, "- Final Project: 100 points") {
		t.Errorf("missing remaining assignment line:\n%s", res.Context)
	}
}

func TestBuildUnachievableTargetShowsMaximum(t *testing.T) {
	dir := algorithmsDirectory()
	// 50/200 earned, 10 points remaining: even a perfect finish lands at
	// 60/210.
	dir.assignments[1] = []models.Assignment{
		graded("Midterm", 200, 50),
		ungraded("Quiz", 10),
	}
	cb := newTestBuilder(dir, &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "can I still get 80% in COSC2123? calculate it"})

	if res.Projection == nil || res.Projection.Achievable {
		t.Fatalf("Expected unachievable projection, got %+v", res.Projection)
	}
	if !strings.Contains(res.Context, "no longer possible") {
		t.Errorf("missing unachievable line:\n%s", res.Context)
	}
	// Max achievable = (50+10)/210 * 100 = 28.57%.
	if !strings.Contains(res.Context, "Maximum achievable grade: 28.57%") {
		t.Errorf("maximum achievable must be a percentage of total points:\n%s", res.Context)
	}
}

func TestBuildScheduleSection(t *testing.T) {
	dir := algorithmsDirectory()
	dir.events = []models.CalendarEvent{
		{Title: "Revision Lecture", StartAt: "2026-05-04T10:00:00Z", ContextName: "Algorithms and Analysis"},
	}
	due := "2026-05-02T23:59:00Z"
	dir.pending = []models.Assignment{
		{Name: "Assignment 2", DueAt: &due, CourseName: "Algorithms and Analysis", PointsPossible: 30},
	}
	cb := newTestBuilder(dir, &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "what is due next week?"})

	if !strings.Contains(res.Context, "📅 YOUR UPCOMING SCHEDULE (Next 2 Weeks):") {
		t.Errorf("missing schedule header:\n%s", res.Context)
	}
	assignmentIdx := strings.Index(res.Context, "Assignment 2")
	eventIdx := strings.Index(res.Context, "Revision Lecture")
	if assignmentIdx == -1 || eventIdx == -1 || assignmentIdx > eventIdx {
		t.Errorf("schedule entries missing or out of order:\n%s", res.Context)
	}
}

func TestBuildContentSectionInvokesDispatcher(t *testing.T) {
	disp := &fakeDispatcher{}
	cb := newTestBuilder(algorithmsDirectory(), disp)

	res := cb.Build(context.Background(), BuildRequest{Query: "summarize week 2 of COSC2123"})

	if disp.calls != 1 {
		t.Fatalf("Expected 1 dispatch, got %d", disp.calls)
	}
	if disp.course.ID != 1 {
		t.Errorf("dispatched wrong course: %+v", disp.course)
	}
	if !strings.Contains(res.Context, "📚 DETAILED COURSE CONTENT:") {
		t.Errorf("missing content header:\n%s", res.Context)
	}
}

func TestBuildSectionOrder(t *testing.T) {
	dir := algorithmsDirectory()
	due := "2026-05-02T23:59:00Z"
	dir.pending = []models.Assignment{
		{Name: "Assignment 2", DueAt: &due, CourseName: "Algorithms and Analysis"},
	}
	disp := &fakeDispatcher{output: "  📂 Week 2 content\n"}
	cb := newTestBuilder(dir, disp)

	res := cb.Build(context.Background(), BuildRequest{
		Query:        "what grade do I need in COSC2123, what is due, and summarize week 2 content",
		UploadedName: "notes.pdf",
		UploadedText: "my revision notes",
	})

	order := []string{
		"📄 UPLOADED FILE: notes.pdf",
		"📚 YOUR ACTIVE COURSES:",
		"🎯 DETECTED COURSE FOR THIS QUERY:",
		"🎓 GRADE CALCULATION:",
		"📅 YOUR UPCOMING SCHEDULE",
		"📚 DETAILED COURSE CONTENT:",
		"📊 YOUR GRADES & SUBMISSIONS:",
	}

	last := -1
	for _, marker := range order {
		idx := strings.Index(res.Context, marker)
		if idx == -1 {
			t.Fatalf("missing section %q:\n%s", marker, res.Context)
		}
		if idx < last {
			t.Errorf("section %q out of order", marker)
		}
		last = idx
	}
}

func TestBuildCourseListCaps(t *testing.T) {
	dir := &fakeDirectory{}
	for i := 0; i < 20; i++ {
		dir.active = append(dir.active, models.Course{ID: int64(i), Name: "Active Course", CourseCode: "AC0001"})
		dir.past = append(dir.past, models.Course{ID: int64(100 + i), Name: "Past Course", CourseCode: "PC0001"})
	}
	cb := newTestBuilder(dir, &fakeDispatcher{})

	res := cb.Build(context.Background(), BuildRequest{Query: "hello"})

	if got := strings.Count(res.Context, "- Active Course"); got != activeCoursesCap {
		t.Errorf("Expected %d active courses listed, got %d", activeCoursesCap, got)
	}
	if got := strings.Count(res.Context, "- Past Course"); got != pastCoursesCap {
		t.Errorf("Expected %d past courses listed, got %d", pastCoursesCap, got)
	}
}
