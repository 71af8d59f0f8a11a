package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"canvia-backend/internal/cache"
	"canvia-backend/internal/models"
)

// Per-call timeouts. A slow remote must never stall the whole context build.
const (
	listTimeout     = 10 * time.Second
	pageTimeout     = 15 * time.Second
	downloadTimeout = 30 * time.Second
)

const maxDownloadBytes = 25 * 1024 * 1024

// Client issues authenticated Canvas REST calls for one user. List fetches
// are wrapped by the cache store; every fetch soft-fails to an empty result
// so that no single remote hiccup can abort a context build.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	identity   string
	store      *cache.Store
}

func NewClient(baseURL, token, identity string, store *cache.Store) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		identity:   identity,
		store:      store,
	}
}

// NormalizeBaseURL ensures a user-supplied Canvas URL ends with /api/v1.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, "/")
	if !strings.HasSuffix(raw, "/api/v1") {
		raw += "/api/v1"
	}
	return raw
}

// VerifySelf checks the token against GET /users/self. Unlike the fetchers
// this surfaces errors: an invalid identity is the one hard failure the
// engine rejects up front.
func (c *Client) VerifySelf(ctx context.Context) (*models.CanvasUser, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var user models.CanvasUser
	if err := c.getJSON(ctx, c.baseURL+"/users/self", &user); err != nil {
		return nil, fmt.Errorf("canvas token verification failed: %w", err)
	}
	return &user, nil
}

// ListCourses returns the user's courses for one enrollment state
// ("active" or "completed"). Empty on any failure.
func (c *Client) ListCourses(ctx context.Context, state string) []models.Course {
	key := cache.Key("courses_"+state, c.identity)

	var courses []models.Course
	if c.store.Get(key, &courses) {
		return courses
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/users/self/courses?enrollment_state=%s&per_page=100", c.baseURL, url.QueryEscape(state))
	if err := c.getJSON(ctx, u, &courses); err != nil {
		log.Printf("canvas: failed to fetch %s courses: %v", state, err)
		return nil
	}

	for i := range courses {
		courses[i].EnrollmentState = state
	}

	if len(courses) > 0 {
		c.store.Put(key, courses)
	}
	return courses
}

// ListAssignments returns a course's assignments with submission info.
// Empty on any failure.
func (c *Client) ListAssignments(ctx context.Context, courseID int64) []models.Assignment {
	key := cache.Key("grades_info", c.identity, "course", fmt.Sprint(courseID))

	var assignments []models.Assignment
	if c.store.Get(key, &assignments) {
		return assignments
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/courses/%d/assignments?per_page=100&include[]=submission", c.baseURL, courseID)
	if err := c.getJSON(ctx, u, &assignments); err != nil {
		log.Printf("canvas: failed to fetch assignments for course %d: %v", courseID, err)
		return nil
	}

	if len(assignments) > 0 {
		c.store.Put(key, assignments)
	}
	return assignments
}

// ListCalendarEvents returns the user's calendar events for the next
// daysAhead days. Empty on any failure.
func (c *Client) ListCalendarEvents(ctx context.Context, daysAhead int) []models.CalendarEvent {
	key := cache.Key("calendar_events", c.identity)

	var events []models.CalendarEvent
	if c.store.Get(key, &events) {
		return events
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	now := time.Now()
	u := fmt.Sprintf("%s/calendar_events?start_date=%s&end_date=%s&per_page=100&all_events=true",
		c.baseURL,
		url.QueryEscape(now.Format(time.RFC3339)),
		url.QueryEscape(now.AddDate(0, 0, daysAhead).Format(time.RFC3339)),
	)
	if err := c.getJSON(ctx, u, &events); err != nil {
		log.Printf("canvas: failed to fetch calendar events: %v", err)
		return nil
	}

	if len(events) > 0 {
		c.store.Put(key, events)
	}
	return events
}

// ListPendingAssignments walks all active courses and collects assignments
// that are still pending inside the due-date window: up to daysAhead days
// out, with a 7-day look-back for work that is overdue but ungraded.
func (c *Client) ListPendingAssignments(ctx context.Context, daysAhead int) []models.Assignment {
	key := cache.Key("upcoming_assignments", c.identity)

	var pending []models.Assignment
	if c.store.Get(key, &pending) {
		return pending
	}

	courses := c.ListCourses(ctx, "active")
	cutoff := time.Now().AddDate(0, 0, daysAhead)
	floor := time.Now().AddDate(0, 0, -7)

	for _, course := range courses {
		for _, a := range c.ListAssignments(ctx, course.ID) {
			if a.DueAt == nil || *a.DueAt == "" || !a.IsPending() {
				continue
			}
			due, err := time.Parse(time.RFC3339, *a.DueAt)
			if err != nil {
				continue
			}
			if due.Before(floor) || due.After(cutoff) {
				continue
			}

			a.CourseName = course.Name
			a.CourseCode = course.CourseCode
			pending = append(pending, a)
		}
	}

	sortAssignmentsByDueAt(pending)
	if len(pending) > 0 {
		c.store.Put(key, pending)
	}
	return pending
}

// GetModules returns a course's modules with items included inline.
// Empty on any failure.
func (c *Client) GetModules(ctx context.Context, courseID int64) []models.Module {
	key := cache.Key("modules", c.identity, "course", fmt.Sprint(courseID))

	var modules []models.Module
	if c.store.Get(key, &modules) {
		return modules
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/courses/%d/modules?per_page=100&include[]=items", c.baseURL, courseID)
	if err := c.getJSON(ctx, u, &modules); err != nil {
		log.Printf("canvas: failed to fetch modules for course %d: %v", courseID, err)
		return nil
	}

	if len(modules) > 0 {
		c.store.Put(key, modules)
	}
	return modules
}

// GetPage fetches a Canvas page body. pageRef may be an absolute API URL or
// a page slug; the slug path is reconstructed against the course. Nil when
// the page cannot be fetched.
func (c *Client) GetPage(ctx context.Context, courseID int64, pageRef string) *models.CanvasPage {
	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	var page models.CanvasPage

	if strings.HasPrefix(pageRef, "http") {
		if err := c.getJSON(ctx, pageRef, &page); err == nil {
			return &page
		}
	}

	slug := pageRef
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	u := fmt.Sprintf("%s/courses/%d/pages/%s", c.baseURL, courseID, url.PathEscape(slug))
	if err := c.getJSON(ctx, u, &page); err != nil {
		log.Printf("canvas: failed to fetch page %q for course %d: %v", pageRef, courseID, err)
		return nil
	}
	return &page
}

// GetFile resolves file metadata by id. Nil on any failure.
func (c *Client) GetFile(ctx context.Context, fileID int64) *models.CanvasFile {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var file models.CanvasFile
	if err := c.getJSON(ctx, fmt.Sprintf("%s/files/%d", c.baseURL, fileID), &file); err != nil {
		log.Printf("canvas: failed to fetch file %d: %v", fileID, err)
		return nil
	}
	return &file
}

// GetAssignment fetches one assignment with its description. Nil on any
// failure.
func (c *Client) GetAssignment(ctx context.Context, courseID, assignmentID int64) *models.Assignment {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var assignment models.Assignment
	u := fmt.Sprintf("%s/courses/%d/assignments/%d", c.baseURL, courseID, assignmentID)
	if err := c.getJSON(ctx, u, &assignment); err != nil {
		log.Printf("canvas: failed to fetch assignment %d in course %d: %v", assignmentID, courseID, err)
		return nil
	}
	return &assignment
}

// Download fetches raw authenticated bytes (file downloads). Nil on any
// failure.
func (c *Client) Download(ctx context.Context, fileURL string) []byte {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("canvas: download failed for %s: %v", fileURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("canvas: download for %s returned %d", fileURL, resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil
	}
	return data
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

func sortAssignmentsByDueAt(assignments []models.Assignment) {
	// Raw ISO-8601 strings sort chronologically; missing dates sort first.
	sort.SliceStable(assignments, func(i, j int) bool {
		return dueAtOf(assignments[i]) < dueAtOf(assignments[j])
	})
}

func dueAtOf(a models.Assignment) string {
	if a.DueAt == nil {
		return ""
	}
	return *a.DueAt
}
