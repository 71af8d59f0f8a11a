package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"canvia-backend/internal/models"
)

const geminiTimeout = 45 * time.Second

// GeminiService answers student questions grounded in the assembled Canvas
// context. One model call per chat turn.
type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Chat sends one question with its Canvas context and prior conversation
// turns, returning the model's reply.
func (s *GeminiService) Chat(ctx context.Context, canvasContext, question string, history []models.ChatMessage) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	chat := s.model.StartChat()
	chat.History = historyToContent(history)

	prompt := fmt.Sprintf("STUDENT'S CANVAS DATA:\n%s\n\nSTUDENT'S QUESTION: %s", canvasContext, question)

	resp, err := chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	reply := extractText(resp)
	if reply == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return reply, nil
}

func historyToContent(history []models.ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

const systemPrompt = `You are a friendly, helpful Canvas Learning Assistant that creates easy-to-read, student-friendly study materials and helps with grade calculations.

The Canvas data block in each message uses these markers:
- "🎯 DETECTED COURSE FOR THIS QUERY" names the course to focus on; only use content from that course.
- "ℹ️ QUERY TYPE: General course list request" means the student just wants their course lists.
- "⚠️ NO SPECIFIC COURSE DETECTED" means you must ask which course they mean before answering.
- "📄 UPLOADED FILE" means the student wants feedback on the attached document: check clarity, structure and correctness, quote specific passages, and be encouraging.

When summarizing content ("📄 PAGE CONTENT", "📄 PDF CONTENT", "🎥 VIDEO TRANSCRIPT", "📋 ASSIGNMENT DESCRIPTION"), lead with the 3-5 most critical concepts and why they matter, then brief supporting details, then a resource list. Extract every URL found under "🔗" markers and include it as a clickable link; never say "refer to Canvas".

If a "🎓 GRADE CALCULATION:" section is present, explain the breakdown clearly: current grade, target, and what average they need on remaining work. Warn gently when the required average exceeds 95%; congratulate them when it is under 50%.

If asked for practice questions, generate a mix of question types with answers from the detailed course content. If asked for a study plan, build a day-by-day plan from the schedule and content sections, prioritized by due date.

Write in a natural, conversational tone with short paragraphs and clear Markdown headings.`
