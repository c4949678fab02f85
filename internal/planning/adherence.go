package planning

import (
	"math"
	"sort"
	"time"
)

// Difficulty trend labels.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendWorsening = "worsening"
)

// DefaultAdherenceWindow is the look-back used when callers do not pick one.
const DefaultAdherenceWindow = 14 * 24 * time.Hour

// AdherenceSummary is a rolling aggregate over session history. It is derived on demand and
// never stored.
type AdherenceSummary struct {
	WindowDays            int     `json:"window_days"`
	Scheduled             int     `json:"scheduled"`
	Completed             int     `json:"completed"`
	CompletionRate        float64 `json:"completion_rate"`
	AverageDifficulty     float64 `json:"average_difficulty"`
	PainRate              float64 `json:"pain_rate"`
	AverageEnergy         float64 `json:"average_energy"`
	DifficultyTrend       string  `json:"difficulty_trend"`
	PainTrending          bool    `json:"pain_trending"`
	ModificationFrequency float64 `json:"modification_frequency"`
	SkipStreak            int     `json:"skip_streak"`
	RiskScore             float64 `json:"risk_score"`
}

type feedbackPoint struct {
	at         time.Time
	difficulty float64
	pain       bool
	energy     int
	modified   bool
}

// Summarize aggregates sessions that fell due inside the window ending at now. A pending session
// is due once its scheduled day has passed, so today's pending session is not yet missed. A
// completed session counts when it was completed inside the window, even ahead of schedule.
func Summarize(sessions []Session, window time.Duration, now time.Time) AdherenceSummary {
	if window <= 0 {
		window = DefaultAdherenceWindow
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	windowStart := now.Add(-window)

	summary := AdherenceSummary{
		WindowDays:      int(window.Hours() / 24),
		DifficultyTrend: TrendStable,
	}

	due := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		at := dueAt(s)
		if at.Before(windowStart) || at.After(now) {
			continue
		}
		if s.Status == StatusCompleted || s.ScheduledDate.Before(today) {
			due = append(due, s)
		}
	}
	if len(due) == 0 {
		return summary
	}

	var points []feedbackPoint
	for _, s := range due {
		if s.Status != StatusCompleted {
			continue
		}
		summary.Completed++
		if s.Feedback == nil {
			continue
		}
		points = append(points, feedbackPoint{
			at:         dueAt(s),
			difficulty: difficultyScore(s.Feedback.Difficulty),
			pain:       s.Feedback.Pain,
			energy:     s.Feedback.Energy,
			modified:   s.Feedback.Difficulty != DifficultyJustRight,
		})
	}
	summary.Scheduled = len(due)
	summary.CompletionRate = float64(summary.Completed) / float64(summary.Scheduled)
	summary.SkipStreak = skipStreak(due)

	var hardShare float64
	if len(points) > 0 {
		sort.Slice(points, func(i, j int) bool { return points[i].at.Before(points[j].at) })

		var difficultySum, painCount, modified, hard float64
		var energySum, energyCount int
		for _, p := range points {
			difficultySum += p.difficulty
			if p.pain {
				painCount++
			}
			if p.modified {
				modified++
			}
			if p.difficulty == difficultyScore(DifficultyTooHard) {
				hard++
			}
			if p.energy > 0 {
				energySum += p.energy
				energyCount++
			}
		}
		n := float64(len(points))
		summary.AverageDifficulty = difficultySum / n
		summary.PainRate = painCount / n
		summary.ModificationFrequency = modified / n
		hardShare = hard / n
		if energyCount > 0 {
			summary.AverageEnergy = float64(energySum) / float64(energyCount)
		}
		summary.DifficultyTrend, summary.PainTrending = trends(points)
	}

	summary.RiskScore = riskScore(summary, hardShare)
	return summary
}

// dueAt is when a session counts toward adherence: its completion time once completed,
// otherwise its scheduled day.
func dueAt(s Session) time.Time {
	if s.Status == StatusCompleted && s.CompletedAt != nil {
		return *s.CompletedAt
	}
	return s.ScheduledDate
}

func difficultyScore(difficulty string) float64 {
	switch difficulty {
	case DifficultyTooEasy:
		return 1
	case DifficultyTooHard:
		return 3
	default:
		return 2
	}
}

// skipStreak counts consecutive missed sessions walking back from the most recent one.
func skipStreak(due []Session) int {
	ordered := make([]Session, len(due))
	copy(ordered, due)
	sort.Slice(ordered, func(i, j int) bool { return dueAt(ordered[i]).After(dueAt(ordered[j])) })

	streak := 0
	for _, s := range ordered {
		if s.Status == StatusCompleted {
			break
		}
		streak++
	}
	return streak
}

func trends(points []feedbackPoint) (string, bool) {
	if len(points) < 2 {
		return TrendStable, false
	}
	mid := len(points) / 2
	first, second := points[:mid], points[mid:]

	avg := func(ps []feedbackPoint) (difficulty, pain float64) {
		for _, p := range ps {
			difficulty += p.difficulty
			if p.pain {
				pain++
			}
		}
		return difficulty / float64(len(ps)), pain / float64(len(ps))
	}
	d1, p1 := avg(first)
	d2, p2 := avg(second)

	trend := TrendStable
	switch delta := d2 - d1; {
	case delta >= 0.5:
		trend = TrendWorsening
	case delta <= -0.5:
		trend = TrendImproving
	}
	return trend, p2 > p1
}

func riskScore(s AdherenceSummary, hardShare float64) float64 {
	lowEnergy := 0.0
	if s.AverageEnergy > 0 {
		lowEnergy = clamp((3-s.AverageEnergy)/2, 0, 1)
	}
	streak := math.Min(float64(s.SkipStreak)/3, 1)

	score := 0.35*(1-s.CompletionRate) +
		0.25*s.PainRate +
		0.15*streak +
		0.15*hardShare +
		0.10*lowEnergy
	return clamp(score, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
