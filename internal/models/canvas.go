package models

// CanvasUser is the authenticated user from GET /users/self.
type CanvasUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Course is a Canvas course enrollment.
type Course struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CourseCode      string `json:"course_code"`
	EnrollmentState string `json:"enrollment_state,omitempty"`
}

// Submission is the user's submission attached to an assignment via
// include[]=submission.
type Submission struct {
	WorkflowState string   `json:"workflow_state"`
	Score         *float64 `json:"score"`
	GradedAt      *string  `json:"graded_at"`
}

// Assignment is a Canvas assignment. DueAt is kept as the raw ISO-8601
// string so missing and malformed dates stay distinguishable. CourseName
// and CourseCode are attached when assignments from several courses are
// merged into one list.
type Assignment struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	DueAt          *string     `json:"due_at"`
	PointsPossible float64     `json:"points_possible"`
	HTMLURL        string      `json:"html_url,omitempty"`
	Submission     *Submission `json:"submission,omitempty"`
	CourseName     string      `json:"course_name,omitempty"`
	CourseCode     string      `json:"course_code,omitempty"`
}

// IsPending reports whether the assignment still needs work or a grade.
// A submitted but ungraded assignment counts as pending; an absent
// submission object means Canvas has nothing on record, which is pending
// too.
func (a Assignment) IsPending() bool {
	if a.Submission == nil {
		return true
	}
	switch a.Submission.WorkflowState {
	case "unsubmitted", "pending_review":
		return true
	case "submitted":
		return a.Submission.Score == nil && a.Submission.GradedAt == nil
	}
	return false
}

// CalendarEvent is a Canvas calendar event. ContextName carries the course
// name for course-scoped events.
type CalendarEvent struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	StartAt     string `json:"start_at"`
	Description string `json:"description,omitempty"`
	ContextName string `json:"context_name,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

// Module is a course module with its items included inline.
type Module struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Items []ModuleItem `json:"items"`
}

// ModuleItem is one entry inside a module. Which of the reference fields
// is populated depends on Type.
type ModuleItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	ContentID   int64  `json:"content_id,omitempty"`
	URL         string `json:"url,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
	PageURL     string `json:"page_url,omitempty"`
}

// CanvasFile is file metadata from GET /files/{id}. Canvas spells the MIME
// type header-style in its JSON.
type CanvasFile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	ContentType string `json:"content-type"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

// CanvasPage is a wiki page with its HTML body.
type CanvasPage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}
