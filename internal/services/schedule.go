package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"canvia-backend/internal/models"
)

// maxScheduleEntries bounds the rendered agenda; entries past the cap are
// silently omitted.
const maxScheduleEntries = 25

// BuildSchedule merges calendar events and pending assignments into one
// agenda sorted ascending by date. Dates stay raw ISO-8601 strings, so the
// sort is chronological for well-formed timestamps and stable lexicographic
// for anything else; nothing is dropped for having a bad date.
func BuildSchedule(events []models.CalendarEvent, assignments []models.Assignment) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0, len(events)+len(assignments))

	for _, e := range events {
		entries = append(entries, models.ScheduleEntry{
			Type:        "event",
			Title:       orUnknown(e.Title, "Unknown Event"),
			Date:        e.StartAt,
			Course:      orUnknown(e.ContextName, "Unknown Course"),
			Description: e.Description,
			URL:         e.HTMLURL,
		})
	}

	for _, a := range assignments {
		date := ""
		if a.DueAt != nil {
			date = *a.DueAt
		}
		entries = append(entries, models.ScheduleEntry{
			Type:   "assignment",
			Title:  orUnknown(a.Name, "Unknown Assignment"),
			Date:   date,
			Course: orUnknown(a.CourseName, "Unknown Course"),
			Points: a.PointsPossible,
			Status: submissionStatus(a),
			URL:    a.HTMLURL,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})
	return entries
}

// RenderSchedule formats an agenda for the AI context, grouping consecutive
// entries that share a calendar day under one heading. At most
// maxScheduleEntries entries are rendered.
func RenderSchedule(entries []models.ScheduleEntry) string {
	if len(entries) == 0 {
		return "  ✅ No upcoming deadlines or events in the next 2 weeks.\n"
	}

	var b strings.Builder
	currentDay := ""
	for i, entry := range entries {
		if i >= maxScheduleEntries {
			break
		}

		day, clock := splitEntryDate(entry.Date)
		if day != currentDay {
			fmt.Fprintf(&b, "\n📆 %s\n", day)
			currentDay = day
		}

		if entry.Type == "assignment" {
			fmt.Fprintf(&b, "  %s %s - %s\n", statusEmoji(entry.Status), entry.Title, entry.Course)
			fmt.Fprintf(&b, "     ⏰ Due: %s\n", clock)
			fmt.Fprintf(&b, "     💯 Points: %g\n", entry.Points)
			fmt.Fprintf(&b, "     📊 Status: %s\n", entry.Status)
		} else {
			fmt.Fprintf(&b, "  📅 %s - %s\n", entry.Title, entry.Course)
			fmt.Fprintf(&b, "     ⏰ Time: %s\n", clock)
		}
		if entry.URL != "" {
			fmt.Fprintf(&b, "     🔗 Link: %s\n", entry.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// splitEntryDate turns a raw timestamp into a day heading and a clock time.
// An unparseable date becomes its own heading so the entry still renders.
func splitEntryDate(raw string) (day, clock string) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if raw == "" {
			return "Undated", "unknown"
		}
		return raw, "unknown"
	}
	return t.Format("Monday, January 02, 2006"), t.Format("03:04 PM")
}

func submissionStatus(a models.Assignment) string {
	if a.Submission == nil || a.Submission.WorkflowState == "" {
		return "unsubmitted"
	}
	return a.Submission.WorkflowState
}

func statusEmoji(status string) string {
	if status == "unsubmitted" {
		return "✖"
	}
	return "⏳"
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
