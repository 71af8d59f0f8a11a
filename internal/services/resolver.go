package services

import (
	"regexp"
	"strings"

	"canvia-backend/internal/models"
)

// ResolutionStatus tells a caller why resolution produced (or did not
// produce) a course. Ambiguity is an outcome, not an error.
type ResolutionStatus int

const (
	ResolvedByCode ResolutionStatus = iota
	ResolvedByScore
	NoCandidates
	NoConfidentMatch
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolvedByCode:
		return "resolved_by_code"
	case ResolvedByScore:
		return "resolved_by_score"
	case NoCandidates:
		return "no_candidates"
	case NoConfidentMatch:
		return "no_confident_match"
	default:
		return "unknown"
	}
}

// ResolverWeights are the scoring knobs. The values are empirically tuned
// and intentionally preserved from long-running production behavior; treat
// them as configuration, not as derived constants.
type ResolverWeights struct {
	Phrase       int // per token of a matched contiguous sub-phrase
	NameWord     int // single token found in the course name
	CodeWord     int // single token found in the course code
	Abbreviation int // known abbreviation whose expansion is in the name
	MinScore     int // accept threshold
}

var DefaultResolverWeights = ResolverWeights{
	Phrase:       3,
	NameWord:     1,
	CodeWord:     2,
	Abbreviation: 5,
	MinScore:     2,
}

// courseCodePattern matches unit codes like COSC2123 or IT5501.
var courseCodePattern = regexp.MustCompile(`\b[A-Z]{2,4}\d{4,5}\b`)

var stopWords = map[string]bool{
	"the": true, "and": true, "of": true, "in": true, "to": true, "a": true,
	"an": true, "for": true, "with": true, "on": true, "at": true,
	"2024": true, "2025": true, "2026": true, "semester": true, "term": true,
	"quarter": true, "spring": true, "fall": true, "summer": true, "winter": true,
	"hs1": true, "hs2": true, "h1": true, "h2": true, "s1": true, "s2": true,
	"t1": true, "t2": true, "t3": true, "q1": true, "q2": true, "q3": true, "q4": true,
	"what": true, "is": true, "my": true, "give": true, "me": true, "show": true,
	"tell": true, "about": true, "from": true,
	"summarize": true, "summary": true, "explain": true, "describe": true,
	"week": true, "module": true, "lecture": true,
}

var courseAbbreviations = map[string][]string{
	"oop":   {"object oriented programming", "object-oriented programming"},
	"dsa":   {"data structures", "algorithms", "data structures and algorithms"},
	"ml":    {"machine learning"},
	"ai":    {"artificial intelligence"},
	"db":    {"database"},
	"os":    {"operating system"},
	"cn":    {"computer network"},
	"se":    {"software engineering"},
	"calc":  {"calculus"},
	"bio":   {"biology"},
	"chem":  {"chemistry"},
	"phys":  {"physics"},
	"stats": {"statistics"},
	"econ":  {"economics"},
	"psych": {"psychology"},
	"cs":    {"computer science"},
	"it":    {"information technology"},
}

// CourseResolver picks the single course a free-text query is about, or
// reports that no confident pick exists.
type CourseResolver struct {
	weights ResolverWeights
}

func NewCourseResolver(weights ResolverWeights) *CourseResolver {
	return &CourseResolver{weights: weights}
}

// Resolve scores every candidate against the query. An exact unit-code match
// wins outright; otherwise the highest heuristic score wins if it reaches
// the threshold, with the first candidate to reach the maximum kept on ties.
func (r *CourseResolver) Resolve(query string, candidates []models.Course) (*models.Course, ResolutionStatus) {
	if len(candidates) == 0 {
		return nil, NoCandidates
	}

	if code := courseCodePattern.FindString(strings.ToUpper(query)); code != "" {
		for i := range candidates {
			if strings.Contains(strings.ToUpper(candidates[i].CourseCode), code) {
				return &candidates[i], ResolvedByCode
			}
		}
	}

	words := contentWords(query)

	var best *models.Course
	bestScore := 0
	for i := range candidates {
		score := r.scoreCourse(words, &candidates[i])
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}

	if best == nil || bestScore < r.weights.MinScore {
		return nil, NoConfidentMatch
	}
	return best, ResolvedByScore
}

func (r *CourseResolver) scoreCourse(words []string, course *models.Course) int {
	name := strings.ToLower(course.Name)
	code := strings.ToLower(course.CourseCode)

	score := 0

	// Contiguous sub-phrases of length >= 2 found in the course name.
	for i := 0; i < len(words); i++ {
		for j := i + 2; j <= len(words); j++ {
			phrase := strings.Join(words[i:j], " ")
			if strings.Contains(name, phrase) {
				score += (j - i) * r.weights.Phrase
			}
		}
	}

	for _, word := range words {
		if strings.Contains(name, word) {
			score += r.weights.NameWord
		} else if strings.Contains(code, word) {
			score += r.weights.CodeWord
		}
	}

	for _, word := range words {
		for _, expansion := range courseAbbreviations[word] {
			if strings.Contains(name, expansion) {
				score += r.weights.Abbreviation
				break
			}
		}
	}

	return score
}

// contentWords tokenizes a query and drops stop words and short tokens.
func contentWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, "?!.,;:'\"")
		if len(w) <= 2 || stopWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}
