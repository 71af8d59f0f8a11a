package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"canvia-backend/internal/models"
)

// DefaultTargetPercentage is the target used when the query names no grade
// band (an Australian-style HD).
const DefaultTargetPercentage = 80.0

// ProjectGrade computes what performance on ungraded work is required to
// reach targetPct. It is a pure function: same input, same output. Returns
// nil when there is nothing to project (no gradable points at all).
//
// Each assignment lands in exactly one bucket: graded (score present) or
// remaining (no score, positive points). Zero-point ungraded work is
// ignored. Display percentages are rounded to 2 dp but Achievable is always
// decided on unrounded values, so an already-ahead student with a negative
// points-needed still gets a mathematically consistent projection.
func ProjectGrade(assignments []models.Assignment, targetPct float64) *models.GradeProjection {
	var totalEarned, totalPossible, remainingPoints float64
	var remaining []models.RemainingAssignment

	for _, a := range assignments {
		if a.Submission != nil && a.Submission.Score != nil {
			totalEarned += *a.Submission.Score
			totalPossible += a.PointsPossible
		} else if a.PointsPossible > 0 {
			remaining = append(remaining, models.RemainingAssignment{
				Name:   a.Name,
				Points: a.PointsPossible,
			})
			remainingPoints += a.PointsPossible
			totalPossible += a.PointsPossible
		}
	}

	if totalPossible == 0 {
		return nil
	}

	// Current standing is measured against all gradable points, graded or
	// not, matching how Canvas reports running totals.
	currentPct := totalEarned / totalPossible * 100

	if remainingPoints == 0 {
		return &models.GradeProjection{
			CurrentEarned:     totalEarned,
			CurrentPossible:   totalPossible,
			CurrentPercentage: round2(currentPct),
			TargetPercentage:  targetPct,
			AllGraded:         true,
			Achievable:        currentPct >= targetPct,
		}
	}

	pointsNeeded := targetPct/100*totalPossible - totalEarned
	requiredPct := pointsNeeded / remainingPoints * 100

	return &models.GradeProjection{
		CurrentEarned:        totalEarned,
		CurrentPossible:      totalPossible,
		CurrentPercentage:    round2(currentPct),
		TargetPercentage:     targetPct,
		PointsNeeded:         round2(pointsNeeded),
		RemainingPoints:      remainingPoints,
		RequiredPercentage:   round2(requiredPct),
		Achievable:           requiredPct <= 100,
		RemainingAssignments: remaining,
	}
}

var percentPattern = regexp.MustCompile(`(\d+)%`)

// DetectTargetPercentage reads the grade band a query is asking about.
// An explicit "N%" wins over band words; the default is HD (80).
func DetectTargetPercentage(query string) float64 {
	q := strings.ToLower(query)

	target := DefaultTargetPercentage
	switch {
	case strings.Contains(q, "distinction") && !strings.Contains(q, "high"):
		target = 70
	case strings.Contains(q, "credit"):
		target = 60
	case strings.Contains(q, "pass"):
		target = 50
	}

	if m := percentPattern.FindStringSubmatch(q); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			target = float64(n)
		}
	}

	return target
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
