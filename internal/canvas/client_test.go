package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"canvia-backend/internal/cache"
	"canvia-backend/internal/models"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type memStorage struct {
	clock   *fakeClock
	entries map[string]entry
}

type entry struct {
	data     []byte
	storedAt time.Time
}

func newMemStorage(clock *fakeClock) *memStorage {
	return &memStorage{clock: clock, entries: make(map[string]entry)}
}

func (m *memStorage) Read(key string) ([]byte, time.Time, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, cache.ErrNotFound
	}
	return e.data, e.storedAt, nil
}

func (m *memStorage) Write(key string, data []byte) error {
	m.entries[key] = entry{data: data, storedAt: m.clock.Now()}
	return nil
}

func newTestStore() *cache.Store {
	clock := &fakeClock{now: time.Now()}
	return cache.NewStoreWithClock(newMemStorage(clock), time.Hour, clock)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare host", "https://canvas.example.edu", "https://canvas.example.edu/api/v1"},
		{"trailing slash", "https://canvas.example.edu/", "https://canvas.example.edu/api/v1"},
		{"already normalized", "https://canvas.example.edu/api/v1", "https://canvas.example.edu/api/v1"},
		{"surrounding whitespace", "  https://canvas.example.edu  ", "https://canvas.example.edu/api/v1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeBaseURL(tc.input)
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestListCoursesSoftFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "u1", newTestStore())
	courses := client.ListCourses(context.Background(), "active")
	if len(courses) != 0 {
		t.Errorf("expected empty slice on server error, got %d courses", len(courses))
	}
}

func TestListCoursesSoftFailsOnMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"a list"`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "u1", newTestStore())
	if courses := client.ListCourses(context.Background(), "active"); len(courses) != 0 {
		t.Errorf("expected empty slice on malformed payload, got %d", len(courses))
	}
}

func TestListCoursesServedFromCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `[{"id":1,"name":"Algorithms","course_code":"COSC2123"}]`)
	}))
	defer srv.Close()

	store := newTestStore()
	client := NewClient(srv.URL, "token", "u1", store)

	first := client.ListCourses(context.Background(), "active")
	second := client.ListCourses(context.Background(), "active")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one course from both calls, got %d and %d", len(first), len(second))
	}
	if second[0].Name != "Algorithms" {
		t.Errorf("cached payload mismatch: %+v", second[0])
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected exactly 1 network call, got %d", n)
	}
}

func TestListCoursesSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token", "u1", newTestStore())
	client.ListCourses(context.Background(), "active")

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
}

func TestListPendingAssignmentsFiltersAndSorts(t *testing.T) {
	now := time.Now()
	soon := now.AddDate(0, 0, 3).Format(time.RFC3339)
	sooner := now.AddDate(0, 0, 1).Format(time.RFC3339)
	recentPast := now.AddDate(0, 0, -2).Format(time.RFC3339)
	farPast := now.AddDate(0, 0, -30).Format(time.RFC3339)
	farFuture := now.AddDate(0, 0, 60).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/users/self/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":7,"name":"Databases","course_code":"COSC2406"}]`)
	})
	mux.HandleFunc("/courses/7/assignments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"id":1,"name":"Due soon","points_possible":10,"due_at":%q,"submission":{"workflow_state":"unsubmitted"}},
			{"id":2,"name":"Due sooner","points_possible":10,"due_at":%q,"submission":{"workflow_state":"unsubmitted"}},
			{"id":3,"name":"Just overdue ungraded","points_possible":10,"due_at":%q,"submission":{"workflow_state":"submitted","score":null}},
			{"id":4,"name":"Long past","points_possible":10,"due_at":%q,"submission":{"workflow_state":"unsubmitted"}},
			{"id":5,"name":"Too far out","points_possible":10,"due_at":%q,"submission":{"workflow_state":"unsubmitted"}},
			{"id":6,"name":"Already graded","points_possible":10,"due_at":%q,"submission":{"workflow_state":"graded","score":8,"graded_at":"2026-01-01T00:00:00Z"}}
		]`, soon, sooner, recentPast, farPast, farFuture, sooner)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "token", "u1", newTestStore())
	pending := client.ListPendingAssignments(context.Background(), 14)

	if len(pending) != 3 {
		t.Fatalf("expected 3 pending assignments in window, got %d", len(pending))
	}
	if pending[0].Name != "Just overdue ungraded" {
		t.Errorf("expected overdue item first (earliest date), got %q", pending[0].Name)
	}
	if pending[1].Name != "Due sooner" || pending[2].Name != "Due soon" {
		t.Errorf("expected due-date order, got %q then %q", pending[1].Name, pending[2].Name)
	}
	if pending[0].CourseName != "Databases" || pending[0].CourseCode != "COSC2406" {
		t.Errorf("expected course fields attached, got %+v", pending[0])
	}
}

func TestGetPageFallsBackToConstructedPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/courses/7/pages/week-1-intro", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Week 1 Intro","body":"<p>Welcome</p>"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "token", "u1", newTestStore())

	// A bare slug must be resolved against the course pages path.
	page := client.GetPage(context.Background(), 7, "week-1-intro")
	if page == nil {
		t.Fatal("expected page from constructed API path")
	}
	if page.Title != "Week 1 Intro" {
		t.Errorf("unexpected page title %q", page.Title)
	}
}

func TestGetFileAbsentOnNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "u1", newTestStore())
	if file := client.GetFile(context.Background(), 99); file != nil {
		t.Errorf("expected nil file on 404, got %+v", file)
	}
}

func TestIsPending(t *testing.T) {
	score := 7.5
	graded := time.Now().Format(time.RFC3339)

	tests := []struct {
		name     string
		sub      string
		score    *float64
		gradedAt *string
		expected bool
	}{
		{"unsubmitted", "unsubmitted", nil, nil, true},
		{"pending review", "pending_review", nil, nil, true},
		{"submitted ungraded", "submitted", nil, nil, true},
		{"submitted scored", "submitted", &score, nil, false},
		{"graded", "graded", &score, &graded, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := models.Assignment{
				Submission: &models.Submission{
					WorkflowState: tc.sub,
					Score:         tc.score,
					GradedAt:      tc.gradedAt,
				},
			}
			if got := a.IsPending(); got != tc.expected {
				t.Errorf("Expected pending=%v, got %v", tc.expected, got)
			}
		})
	}

	t.Run("no submission info", func(t *testing.T) {
		a := models.Assignment{}
		if !a.IsPending() {
			t.Error("assignment without submission info should count as pending")
		}
	})
}
