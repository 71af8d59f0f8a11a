package models

// ExtractedContent is the text pulled out of one module item, trimmed to
// the per-type cap. Source names where the text came from ("page", "pdf",
// "video transcript", ...).
type ExtractedContent struct {
	Title  string   `json:"title"`
	Text   string   `json:"text"`
	Links  []string `json:"links,omitempty"`
	Source string   `json:"source"`
}

// RemainingAssignment is one ungraded assignment inside a grade projection.
type RemainingAssignment struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// GradeProjection answers "what do I need on the rest to reach my target".
// Percentages are rounded for display; Achievable is decided on unrounded
// values.
type GradeProjection struct {
	CurrentEarned        float64               `json:"current_earned"`
	CurrentPossible      float64               `json:"current_possible"`
	CurrentPercentage    float64               `json:"current_percentage"`
	TargetPercentage     float64               `json:"target_percentage"`
	PointsNeeded         float64               `json:"points_needed,omitempty"`
	RemainingPoints      float64               `json:"remaining_points,omitempty"`
	RequiredPercentage   float64               `json:"required_percentage,omitempty"`
	Achievable           bool                  `json:"achievable"`
	AllGraded            bool                  `json:"all_graded,omitempty"`
	RemainingAssignments []RemainingAssignment `json:"remaining_assignments,omitempty"`
}

// ScheduleEntry is one row of the merged schedule: either an assignment
// deadline or a calendar event. Date keeps the raw ISO-8601 string.
type ScheduleEntry struct {
	Type        string  `json:"type"` // "assignment" or "event"
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	Course      string  `json:"course,omitempty"`
	Points      float64 `json:"points,omitempty"`
	Status      string  `json:"status,omitempty"`
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ContextResult is what the context builder hands to the AI layer: the
// assembled prompt context plus the structured side data the API returns
// alongside the reply.
type ContextResult struct {
	Context            string           `json:"-"`
	GeneralQuery       bool             `json:"general_query"`
	ResolvedCourse     *Course          `json:"resolved_course,omitempty"`
	NeedsClarification bool             `json:"needs_clarification"`
	Projection         *GradeProjection `json:"grade_projection,omitempty"`
}
