package services

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

// YouTubeService flattens video captions into transcript text for course
// content extraction. The transcript API is tried first; a raw timedtext
// scrape is the fallback for videos it cannot see.
type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=)([\w-]{11})`),
	regexp.MustCompile(`(?:youtu\.be/)([\w-]{11})`),
	regexp.MustCompile(`(?:youtube\.com/embed/)([\w-]{11})`),
	regexp.MustCompile(`(?:youtube\.com/shorts/)([\w-]{11})`),
}

// ExtractVideoID pulls the 11-character video id out of any common YouTube
// URL shape. Empty string when the URL is not a YouTube video link.
func ExtractVideoID(rawURL string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(rawURL); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// IsVideoURL reports whether the URL points at a YouTube video.
func IsVideoURL(rawURL string) bool {
	return ExtractVideoID(rawURL) != ""
}

// GetTranscript fetches a video's captions and flattens them to one
// whitespace-normalized string, capped at the transcript limit.
func (s *YouTubeService) GetTranscript(videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Any language beats no transcript.
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
	}
	if err != nil {
		text, fallbackErr := s.transcriptViaTimedText(videoID)
		if fallbackErr != nil {
			return "", fmt.Errorf("no captions via transcript API (%v) or timedtext (%v)", err, fallbackErr)
		}
		return TruncateText(text, transcriptCap), nil
	}

	var b strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}

	flat := strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
	if flat == "" {
		return "", fmt.Errorf("caption track is empty")
	}
	return TruncateText(flat, transcriptCap), nil
}

// VideoTitle resolves a video's title from its metadata. Empty string on
// failure; a transcript without a title is still useful.
func (s *YouTubeService) VideoTitle(videoID string) string {
	video, err := s.ytClient.GetVideo(videoID)
	if err != nil {
		return ""
	}
	return video.Title
}

type timedTextXML struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func (s *YouTubeService) transcriptViaTimedText(videoID string) (string, error) {
	pageURL := "https://www.youtube.com/watch?v=" + videoID
	req, _ := http.NewRequest(http.MethodGet, pageURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch video page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read video page: %w", err)
	}

	captionURL, err := captionTrackURL(string(body))
	if err != nil {
		return "", err
	}

	captionResp, err := s.httpClient.Get(captionURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}

	return flattenTimedText(captionBody)
}

var (
	captionTracksPattern = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	captionBaseURLPatten = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
)

func captionTrackURL(pageHTML string) (string, error) {
	m := captionTracksPattern.FindStringSubmatch(pageHTML)
	if len(m) < 2 {
		return "", fmt.Errorf("no captions available for this video")
	}

	u := captionBaseURLPatten.FindStringSubmatch(m[1])
	if len(u) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	raw := strings.ReplaceAll(u[1], `\u0026`, "&")
	raw = strings.ReplaceAll(raw, `\/`, "/")
	return raw, nil
}

func flattenTimedText(data []byte) (string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", fmt.Errorf("failed to parse captions XML: %w", err)
	}

	var parts []string
	for _, cue := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(cue.Text))
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("captions XML empty")
	}
	return strings.Join(parts, " "), nil
}
