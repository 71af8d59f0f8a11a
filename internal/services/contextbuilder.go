package services

import (
	"context"
	"fmt"
	"strings"

	"canvia-backend/internal/models"
)

const (
	lookAheadDays    = 14
	activeCoursesCap = 15
	pastCoursesCap   = 10
	gradesSummaryCap = 10
)

// Fixed phrase set marking "list my courses" style requests, which get the
// course lists and nothing else.
var generalQueryPhrases = []string{
	"what are my courses", "show my courses", "list my courses", "my courses",
	"what courses", "show courses", "list courses",
	"current courses", "active courses", "past courses", "completed courses",
	"all courses", "what am i taking", "what am i enrolled",
	"courses do i have", "enrolled in", "taking this semester",
	"what course", "which course",
}

// Intent keyword gates. A section is assembled only when its gate fires.
var (
	gradeCalcWords      = []string{"calculate", "need", "hd", "high distinction", "required grade", "what grade"}
	scheduleWords       = []string{"schedule", "calendar", "upcoming", "due", "deadline", "when", "next"}
	contentSectionWords = []string{"module", "week", "material", "content", "lecture", "learn", "topic", "summarize", "summary", "pdf", "file", "video"}
	gradesSummaryWords  = []string{"grade", "score", "mark", "submission", "submitted", "progress"}
	courseSpecificWords = []string{"module", "week", "assignment", "grade", "score", "material", "content", "lecture", "pdf", "video", "calculate", "need"}
)

// courseDirectory is the slice of the Canvas client the builder needs.
type courseDirectory interface {
	ListCourses(ctx context.Context, state string) []models.Course
	ListAssignments(ctx context.Context, courseID int64) []models.Assignment
	ListCalendarEvents(ctx context.Context, daysAhead int) []models.CalendarEvent
	ListPendingAssignments(ctx context.Context, daysAhead int) []models.Assignment
}

// contentDispatcher renders the detailed content section for one course.
type contentDispatcher interface {
	Dispatch(ctx context.Context, course models.Course, query string) string
}

// BuildRequest is one context-build invocation.
type BuildRequest struct {
	Query        string
	UploadedName string
	UploadedText string
}

// ContextBuilder assembles the Canvas context string handed to the AI. It
// reads the query's intent from keyword gates and invokes only the engine
// parts that intent calls for, in a fixed section order.
type ContextBuilder struct {
	directory  courseDirectory
	resolver   *CourseResolver
	dispatcher contentDispatcher
}

func NewContextBuilder(directory courseDirectory, resolver *CourseResolver, dispatcher contentDispatcher) *ContextBuilder {
	return &ContextBuilder{
		directory:  directory,
		resolver:   resolver,
		dispatcher: dispatcher,
	}
}

// Build assembles the context for one query. Section order is fixed:
// uploaded file, course lists, resolution status, grade calculation,
// schedule, detailed content, grades summary. A failed sub-fetch shrinks
// its section; it never aborts the build.
func (cb *ContextBuilder) Build(ctx context.Context, req BuildRequest) models.ContextResult {
	var b strings.Builder
	q := strings.ToLower(req.Query)

	if req.UploadedText != "" {
		name := req.UploadedName
		if name == "" {
			name = "Unknown File"
		}
		fmt.Fprintf(&b, "📄 UPLOADED FILE: %s\nCONTENT:\n%s\n\n", name, req.UploadedText)
	}

	active := cb.directory.ListCourses(ctx, "active")
	past := cb.directory.ListCourses(ctx, "completed")

	writeCourseLists(&b, active, past)

	if containsAny(q, generalQueryPhrases) {
		b.WriteString("ℹ️ QUERY TYPE: General course list request - no specific course needed\n\n")
		return models.ContextResult{Context: b.String(), GeneralQuery: true}
	}

	all := append(append([]models.Course{}, active...), past...)
	target, _ := cb.resolver.Resolve(req.Query, all)

	result := models.ContextResult{ResolvedCourse: target}

	if target != nil {
		code := target.CourseCode
		if code == "" {
			code = "N/A"
		}
		fmt.Fprintf(&b, "🎯 DETECTED COURSE FOR THIS QUERY: %s (Code: %s)\n", target.Name, code)
		fmt.Fprintf(&b, "   This query is specifically about: %s\n\n", target.Name)
	} else if containsAny(q, courseSpecificWords) {
		result.NeedsClarification = true
		fmt.Fprintf(&b, "⚠️ NO SPECIFIC COURSE DETECTED in query: '%s'\n", req.Query)
		b.WriteString("   Please clarify which course you're asking about.\n\n")
	} else {
		b.WriteString("ℹ️ GENERAL QUERY - No specific course needed\n\n")
	}

	if target != nil && containsAny(q, gradeCalcWords) {
		result.Projection = cb.writeGradeCalculation(ctx, &b, q, target)
	}

	if containsAny(q, scheduleWords) {
		b.WriteString("📅 YOUR UPCOMING SCHEDULE (Next 2 Weeks):\n\n")
		entries := BuildSchedule(
			cb.directory.ListCalendarEvents(ctx, lookAheadDays),
			cb.directory.ListPendingAssignments(ctx, lookAheadDays),
		)
		b.WriteString(RenderSchedule(entries))
		b.WriteString("\n")
	}

	if target != nil && containsAny(q, contentSectionWords) {
		b.WriteString("📚 DETAILED COURSE CONTENT:\n")
		b.WriteString(cb.dispatcher.Dispatch(ctx, *target, req.Query))
		b.WriteString("\n")
	}

	if target != nil && containsAny(q, gradesSummaryWords) {
		cb.writeGradesSummary(ctx, &b, target)
	}

	result.Context = b.String()
	return result
}

func writeCourseLists(b *strings.Builder, active, past []models.Course) {
	b.WriteString("📚 YOUR ACTIVE COURSES:\n")
	for i, c := range active {
		if i == activeCoursesCap {
			break
		}
		fmt.Fprintf(b, "- %s (ID: %d, Code: %s)\n", c.Name, c.ID, codeOrNA(c))
	}
	b.WriteString("\n")

	if len(past) == 0 {
		return
	}
	b.WriteString("📜 YOUR PAST COURSES:\n")
	for i, c := range past {
		if i == pastCoursesCap {
			break
		}
		fmt.Fprintf(b, "- %s (Code: %s)\n", c.Name, codeOrNA(c))
	}
	b.WriteString("\n")
}

func (cb *ContextBuilder) writeGradeCalculation(ctx context.Context, b *strings.Builder, q string, target *models.Course) *models.GradeProjection {
	b.WriteString("🎓 GRADE CALCULATION:\n\n")

	assignments := cb.directory.ListAssignments(ctx, target.ID)
	if len(assignments) == 0 {
		b.WriteString("⚠️ Could not fetch grade data for this course.\n\n")
		return nil
	}

	targetPct := DetectTargetPercentage(q)
	p := ProjectGrade(assignments, targetPct)
	if p == nil {
		b.WriteString("⚠️ No gradable assignments found for this course.\n\n")
		return nil
	}

	fmt.Fprintf(b, "📊 Course: %s\n", target.Name)
	fmt.Fprintf(b, "🎯 Target Grade: %g%%\n\n", targetPct)
	b.WriteString("📈 CURRENT STATUS:\n")
	fmt.Fprintf(b, "   Points Earned: %g/%g\n", p.CurrentEarned, p.CurrentPossible)
	fmt.Fprintf(b, "   Current Grade: %g%%\n\n", p.CurrentPercentage)

	if len(p.RemainingAssignments) == 0 {
		if p.Achievable {
			fmt.Fprintf(b, "✅ All work is graded and your %g%% already meets the %g%% target.\n\n", p.CurrentPercentage, targetPct)
		} else {
			fmt.Fprintf(b, "❌ All work is graded; %g%% falls short of the %g%% target.\n\n", p.CurrentPercentage, targetPct)
		}
		return p
	}

	b.WriteString("📝 REMAINING ASSIGNMENTS:\n")
	for _, r := range p.RemainingAssignments {
		fmt.Fprintf(b, "   - %s: %g points\n", r.Name, r.Points)
	}
	fmt.Fprintf(b, "   Total Remaining Points: %g\n\n", p.RemainingPoints)

	b.WriteString("🎯 WHAT YOU NEED:\n")
	if p.Achievable {
		fmt.Fprintf(b, "   ✅ To achieve %g%%, you need:\n", targetPct)
		fmt.Fprintf(b, "   📊 Average of %g%% on remaining assignments\n", p.RequiredPercentage)
		fmt.Fprintf(b, "   💯 That's %g more points out of %g available\n\n", p.PointsNeeded, p.RemainingPoints)
		if p.RequiredPercentage > 90 {
			fmt.Fprintf(b, "   ⚠️ Note: You'll need to score very high (%g%%) on remaining work!\n", p.RequiredPercentage)
		} else if p.RequiredPercentage < 50 {
			fmt.Fprintf(b, "   🎉 Great news! You only need %g%% on remaining work!\n", p.RequiredPercentage)
		}
	} else {
		fmt.Fprintf(b, "   ❌ Unfortunately, achieving %g%% is no longer possible\n", targetPct)
		maxPct := round2((p.CurrentEarned + p.RemainingPoints) / p.CurrentPossible * 100)
		fmt.Fprintf(b, "   📊 Maximum achievable grade: %g%%\n", maxPct)
	}
	b.WriteString("\n")

	return p
}

func (cb *ContextBuilder) writeGradesSummary(ctx context.Context, b *strings.Builder, target *models.Course) {
	b.WriteString("📊 YOUR GRADES & SUBMISSIONS:\n")

	assignments := cb.directory.ListAssignments(ctx, target.ID)
	if len(assignments) == 0 {
		b.WriteString("  ⚠️ Could not fetch grade data for this course.\n\n")
		return
	}

	fmt.Fprintf(b, "\n%s:\n", target.Name)
	for i, a := range assignments {
		if i == gradesSummaryCap {
			break
		}
		fmt.Fprintf(b, "  📝 %s\n", a.Name)
		if a.Submission != nil {
			score := "Not graded"
			if a.Submission.Score != nil {
				score = fmt.Sprintf("%g", *a.Submission.Score)
			}
			status := a.Submission.WorkflowState
			if status == "" {
				status = "not submitted"
			}
			fmt.Fprintf(b, "     Score: %s/%g | Status: %s\n", score, a.PointsPossible, status)
		} else {
			fmt.Fprintf(b, "     Not submitted, %g points\n", a.PointsPossible)
		}
	}
	b.WriteString("\n")
}

func codeOrNA(c models.Course) string {
	if c.CourseCode == "" {
		return "N/A"
	}
	return c.CourseCode
}

func containsAny(q string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}
