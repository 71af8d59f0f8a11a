package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"canvia-backend/internal/cache"
	"canvia-backend/internal/models"
	"canvia-backend/internal/worker"
)

// Module walk caps. Everything past a cap is silently omitted.
const (
	maxModules          = 8
	maxItemsPerModule   = 20
	fallbackModuleCount = 5
	maxMissListing      = 15
)

var moduleNumberPattern = regexp.MustCompile(`(?:week|module|wk|mod)\s*(\d+)`)

// courseContent is the slice of the Canvas client the dispatcher needs.
type courseContent interface {
	GetModules(ctx context.Context, courseID int64) []models.Module
	GetPage(ctx context.Context, courseID int64, pageRef string) *models.CanvasPage
	GetFile(ctx context.Context, fileID int64) *models.CanvasFile
	GetAssignment(ctx context.Context, courseID, assignmentID int64) *models.Assignment
	Download(ctx context.Context, fileURL string) []byte
}

// transcriptFetcher resolves video captions for external links.
type transcriptFetcher interface {
	GetTranscript(videoID string) (string, error)
	VideoTitle(videoID string) string
}

// ContentDispatcher walks a course's modules and extracts text from each
// item according to its type. Item fetches within a module fan out over a
// bounded worker pool; a failed item is annotated inline and never aborts
// its siblings.
type ContentDispatcher struct {
	content     courseContent
	youtube     transcriptFetcher
	store       *cache.Store
	identity    string
	concurrency int
}

func NewContentDispatcher(content courseContent, youtube transcriptFetcher, store *cache.Store, identity string, concurrency int) *ContentDispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ContentDispatcher{
		content:     content,
		youtube:     youtube,
		store:       store,
		identity:    identity,
		concurrency: concurrency,
	}
}

// Dispatch renders the detailed content section for one course, honoring a
// module-number token in the query ("week 3", "module 2") when present.
func (d *ContentDispatcher) Dispatch(ctx context.Context, course models.Course, query string) string {
	var b strings.Builder
	sep := strings.Repeat("=", 60)

	code := course.CourseCode
	if code == "" {
		code = "N/A"
	}
	fmt.Fprintf(&b, "\n%s\n📖 COURSE: %s (Code: %s)\n%s\n\n", sep, course.Name, code, sep)

	modules := d.content.GetModules(ctx, course.ID)
	if len(modules) == 0 {
		b.WriteString("  ℹ️ No modules found for this course.\n\n")
		return b.String()
	}

	selected, note := selectModules(modules, query)
	b.WriteString(note)
	if len(selected) == 0 {
		b.WriteString("  ℹ️ No modules to display.\n\n")
		return b.String()
	}

	if len(selected) > maxModules {
		selected = selected[:maxModules]
	}

	for _, module := range selected {
		fmt.Fprintf(&b, "  📂 %s (Module ID: %d)\n", module.Name, module.ID)

		items := module.Items
		if len(items) == 0 {
			b.WriteString("    ℹ️ No items in this module\n\n")
			continue
		}
		if len(items) > maxItemsPerModule {
			items = items[:maxItemsPerModule]
		}
		fmt.Fprintf(&b, "    📋 Found %d items in this module\n\n", len(items))

		tasks := make([]worker.Task[string], len(items))
		for i := range items {
			item := items[i]
			tasks[i] = func(ctx context.Context) (string, bool, error) {
				return d.renderItem(ctx, course.ID, item), false, nil
			}
		}

		for _, res := range worker.Run(ctx, tasks, d.concurrency) {
			if res.Err != nil {
				b.WriteString("    ⚠️ Error processing item\n\n")
				continue
			}
			b.WriteString(res.Value)
		}
	}

	return b.String()
}

// selectModules applies the query's module-number token, if any, and
// returns the modules to walk plus the heading note to render.
func selectModules(modules []models.Module, query string) ([]models.Module, string) {
	q := strings.ToLower(query)
	if !strings.Contains(q, "week") && !strings.Contains(q, "module") {
		return modules, ""
	}

	m := moduleNumberPattern.FindStringSubmatch(q)
	if m == nil {
		return modules, ""
	}
	phrase, number := m[0], m[1]

	var matched []models.Module
	for _, module := range modules {
		if moduleNameMatchesNumber(module.Name, number) {
			matched = append(matched, module)
		}
	}

	if len(matched) > 0 {
		return matched, fmt.Sprintf("  🔍 Showing content for %s\n\n", titleCase(phrase))
	}

	var note strings.Builder
	fmt.Fprintf(&note, "  ⚠️ %s not found. Available modules:\n", titleCase(phrase))
	for i, module := range modules {
		if i == maxMissListing {
			break
		}
		fmt.Fprintf(&note, "     - %s\n", module.Name)
	}
	note.WriteString("\n")

	if len(modules) > fallbackModuleCount {
		modules = modules[:fallbackModuleCount]
	}
	return modules, note.String()
}

// moduleNameMatchesNumber checks a module name against the naming
// conventions courses actually use for numbered modules.
func moduleNameMatchesNumber(name, number string) bool {
	n := strings.ToLower(name)
	substrings := []string{
		"week " + number,
		"week" + number,
		"week-" + number,
		"wk " + number,
		"wk" + number,
		"module " + number,
		"mod " + number,
		"unit " + number,
		"lesson " + number,
		"chapter " + number,
	}
	for _, s := range substrings {
		if strings.Contains(n, s) {
			return true
		}
	}
	return strings.HasPrefix(n, number+" -") ||
		strings.HasPrefix(n, number+".") ||
		strings.HasPrefix(n, number+":")
}

func (d *ContentDispatcher) renderItem(ctx context.Context, courseID int64, item models.ModuleItem) string {
	var b strings.Builder
	b.WriteString("    " + strings.Repeat("─", 50) + "\n")
	fmt.Fprintf(&b, "    📌 %s (%s)\n", item.Title, item.Type)

	itemURL := item.HTMLURL
	if itemURL == "" {
		itemURL = item.URL
	}

	switch item.Type {
	case "Page":
		d.renderPage(ctx, &b, courseID, item, itemURL)
	case "File":
		d.renderFile(ctx, &b, item, itemURL)
	case "ExternalUrl":
		d.renderExternalURL(&b, item, itemURL)
	case "Assignment":
		d.renderAssignment(ctx, &b, courseID, item, itemURL)
	case "ExternalTool":
		b.WriteString("    🔧 External Tool\n")
		fmt.Fprintf(&b, "    🔗 Link: %s\n", itemURL)
	case "Quiz":
		b.WriteString("    📝 Quiz\n")
		fmt.Fprintf(&b, "    🔗 Link: %s\n", itemURL)
	case "Discussion":
		b.WriteString("    💬 Discussion\n")
		fmt.Fprintf(&b, "    🔗 Link: %s\n", itemURL)
	default:
		fmt.Fprintf(&b, "    🔗 URL: %s\n", itemURL)
	}

	b.WriteString("\n")
	return b.String()
}

func (d *ContentDispatcher) renderPage(ctx context.Context, b *strings.Builder, courseID int64, item models.ModuleItem, itemURL string) {
	pageRef := item.PageURL
	if pageRef == "" {
		pageRef = item.URL
	}
	if pageRef == "" {
		pageRef = item.HTMLURL
	}
	if pageRef == "" {
		b.WriteString("    ⚠️ Could not fetch page content\n")
		return
	}

	content := d.pageContent(ctx, courseID, pageRef)
	if content == nil || content.Text == "" {
		b.WriteString("    ⚠️ Could not fetch page content\n")
	} else {
		divider := "    " + strings.Repeat("-", 50) + "\n"
		b.WriteString("\n    📄 PAGE CONTENT:\n")
		b.WriteString(divider)
		b.WriteString(content.Text + "\n")
		b.WriteString(divider)
		if len(content.Links) > 0 {
			fmt.Fprintf(b, "    🔗 Embedded links: %s\n", strings.Join(content.Links, ", "))
		}
	}

	if itemURL != "" {
		fmt.Fprintf(b, "    🔗 Page URL: %s\n", itemURL)
	}
}

// pageContent fetches and strips a page body, cached per page reference.
func (d *ContentDispatcher) pageContent(ctx context.Context, courseID int64, pageRef string) *models.ExtractedContent {
	key := cache.Key("page_content", d.identity, fmt.Sprint(courseID), pageRef)

	var content models.ExtractedContent
	if d.store.Get(key, &content) {
		return &content
	}

	page := d.content.GetPage(ctx, courseID, pageRef)
	if page == nil {
		return nil
	}

	content = models.ExtractedContent{
		Title:  page.Title,
		Text:   TruncateText(StripHTML(page.Body), pageTextCap),
		Links:  ExtractLinks(page.Body),
		Source: "page",
	}
	d.store.Put(key, content)
	return &content
}

func (d *ContentDispatcher) renderFile(ctx context.Context, b *strings.Builder, item models.ModuleItem, itemURL string) {
	if item.ContentID == 0 {
		fmt.Fprintf(b, "    🔗 Link: %s\n", itemURL)
		return
	}

	file := d.content.GetFile(ctx, item.ContentID)
	if file == nil {
		b.WriteString("    ⚠️ Error processing file\n")
		return
	}

	fmt.Fprintf(b, "    📎 File: %s\n", file.DisplayName)
	fmt.Fprintf(b, "    🔗 Download: %s\n", itemURL)

	if !isPDF(file) {
		return
	}

	b.WriteString("\n    📄 EXTRACTING PDF CONTENT...\n")
	text := d.pdfText(ctx, file)
	if text == "" {
		b.WriteString("    ⚠️ Could not extract PDF text\n")
		return
	}
	divider := "    " + strings.Repeat("-", 50) + "\n"
	b.WriteString(divider)
	b.WriteString("    PDF CONTENT:\n")
	b.WriteString(text + "\n")
	b.WriteString(divider)
}

func isPDF(file *models.CanvasFile) bool {
	return strings.Contains(strings.ToLower(file.ContentType), "pdf") ||
		strings.HasSuffix(strings.ToLower(file.DisplayName), ".pdf")
}

// pdfText downloads and extracts a PDF, cached per file id.
func (d *ContentDispatcher) pdfText(ctx context.Context, file *models.CanvasFile) string {
	key := cache.Key("pdf_text", d.identity, fmt.Sprint(file.ID))

	var text string
	if d.store.Get(key, &text) {
		return text
	}

	data := d.content.Download(ctx, file.URL)
	if len(data) == 0 {
		return ""
	}

	text, err := ExtractPDFText(data)
	if err != nil {
		return ""
	}
	d.store.Put(key, text)
	return text
}

func (d *ContentDispatcher) renderExternalURL(b *strings.Builder, item models.ModuleItem, itemURL string) {
	externalURL := item.ExternalURL
	if externalURL == "" {
		externalURL = itemURL
	}
	fmt.Fprintf(b, "    🔗 Link: %s\n", externalURL)

	if !IsVideoURL(externalURL) {
		return
	}

	videoID := ExtractVideoID(externalURL)

	b.WriteString("\n    🎥 FETCHING VIDEO TRANSCRIPT...\n")
	transcript := d.videoTranscript(videoID)
	if transcript == "" {
		b.WriteString("    ⚠️ Transcript not available\n")
		return
	}
	divider := "    " + strings.Repeat("-", 50) + "\n"
	b.WriteString(divider)
	if title := d.youtube.VideoTitle(videoID); title != "" {
		fmt.Fprintf(b, "    VIDEO TRANSCRIPT: %s\n", title)
	} else {
		b.WriteString("    VIDEO TRANSCRIPT:\n")
	}
	b.WriteString(transcript + "\n")
	b.WriteString(divider)
}

// videoTranscript flattens a video's captions, cached per video id.
func (d *ContentDispatcher) videoTranscript(videoID string) string {
	key := cache.Key("video_transcript", d.identity, videoID)

	var transcript string
	if d.store.Get(key, &transcript) {
		return transcript
	}

	transcript, err := d.youtube.GetTranscript(videoID)
	if err != nil {
		return ""
	}
	d.store.Put(key, transcript)
	return transcript
}

func (d *ContentDispatcher) renderAssignment(ctx context.Context, b *strings.Builder, courseID int64, item models.ModuleItem, itemURL string) {
	if item.ContentID == 0 {
		fmt.Fprintf(b, "    🔗 URL: %s\n", itemURL)
		return
	}

	assignment := d.content.GetAssignment(ctx, courseID, item.ContentID)
	if assignment == nil {
		b.WriteString("    ⚠️ Could not fetch assignment details\n")
		return
	}

	dueAt := "No due date"
	if assignment.DueAt != nil && *assignment.DueAt != "" {
		dueAt = *assignment.DueAt
	}

	b.WriteString("    📝 Assignment Details:\n")
	fmt.Fprintf(b, "       Due: %s\n", dueAt)
	fmt.Fprintf(b, "       Points: %g\n", assignment.PointsPossible)
	fmt.Fprintf(b, "    🔗 URL: %s\n", itemURL)

	if assignment.Description == "" {
		return
	}
	divider := "    " + strings.Repeat("-", 50) + "\n"
	b.WriteString("\n    📋 ASSIGNMENT DESCRIPTION:\n")
	b.WriteString(divider)
	b.WriteString(TruncateText(StripHTML(assignment.Description), assignmentDescCap) + "\n")
	b.WriteString(divider)
}

// titleCase uppercases word-initial letters ("week 3" -> "Week 3").
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
