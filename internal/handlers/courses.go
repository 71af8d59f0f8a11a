package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"canvia-backend/internal/middleware"
	"canvia-backend/internal/services"
)

const scheduleLookAheadDays = 14

type CoursesHandler struct {
	engine   *services.Engine
	resolver *services.CourseResolver
}

func NewCoursesHandler(engine *services.Engine, resolver *services.CourseResolver) *CoursesHandler {
	return &CoursesHandler{engine: engine, resolver: resolver}
}

// List returns the session's courses. state defaults to "active".
func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "No active session", r))
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		state = "active"
	}
	if state != "active" && state != "completed" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"state": "state must be active or completed"}, r))
		return
	}

	courses := h.engine.ClientFor(id).ListCourses(r.Context(), state)
	writeJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

// Resolve maps a free-text query onto one of the session's courses.
func (h *CoursesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "No active session", r))
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"q": "q is required"}, r))
		return
	}

	client := h.engine.ClientFor(id)
	candidates := append(client.ListCourses(r.Context(), "active"), client.ListCourses(r.Context(), "completed")...)
	course, status := h.resolver.Resolve(query, candidates)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"course": course,
		"status": status.String(),
	})
}

// GradeProjection answers what the student needs on the remaining work of
// one course to reach a target percentage.
func (h *CoursesHandler) GradeProjection(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "No active session", r))
		return
	}

	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"courseID": "course id must be an integer"}, r))
		return
	}

	target := 80.0
	if raw := r.URL.Query().Get("target"); raw != "" {
		target, err = strconv.ParseFloat(raw, 64)
		if err != nil || target <= 0 || target > 100 {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"target": "target must be a percentage between 0 and 100"}, r))
			return
		}
	}

	assignments := h.engine.ClientFor(id).ListAssignments(r.Context(), courseID)
	projection := services.ProjectGrade(assignments, target)
	if projection == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"projection": nil,
			"message": "No graded work yet for this course"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"projection": projection})
}

// Schedule merges calendar events and pending deadlines for the next two
// weeks.
func (h *CoursesHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "No active session", r))
		return
	}

	client := h.engine.ClientFor(id)
	events := client.ListCalendarEvents(r.Context(), scheduleLookAheadDays)
	pending := client.ListPendingAssignments(r.Context(), scheduleLookAheadDays)
	entries := services.BuildSchedule(events, pending)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":  entries,
		"rendered": services.RenderSchedule(entries),
	})
}
