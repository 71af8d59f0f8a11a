package models

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint. UploadedName and
// UploadedText carry an already-extracted document the student attached;
// the engine treats the text as opaque input.
type ChatRequest struct {
	Query        string        `json:"query"`
	History      []ChatMessage `json:"history"`
	UploadedName string        `json:"uploaded_name,omitempty"`
	UploadedText string        `json:"uploaded_text,omitempty"`
}

// ChatResponse is the reply from the AI chat plus the engine's structured
// side data.
type ChatResponse struct {
	Reply              string           `json:"reply"`
	GeneralQuery       bool             `json:"general_query"`
	ResolvedCourse     *Course          `json:"resolved_course,omitempty"`
	NeedsClarification bool             `json:"needs_clarification"`
	Projection         *GradeProjection `json:"grade_projection,omitempty"`
}

type LoginRequest struct {
	CanvasToken string `json:"canvas_token"`
	CanvasURL   string `json:"canvas_url"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserName    string `json:"user_name"`
	ExpiresIn   int    `json:"expires_in"`
}

type UploadResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
