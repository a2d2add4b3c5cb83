package usecases

import (
	"sort"
	"time"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/prediction"
)

// ScoredFinding pairs a finding with its prediction for one evaluation cycle
type ScoredFinding struct {
	Finding    entities.InspectionFinding `json:"finding"`
	Prediction prediction.Prediction      `json:"prediction"`
}

// Evaluate runs every finding through the predictor at now, preserving input order
func Evaluate(findings []entities.InspectionFinding, now time.Time) []ScoredFinding {
	scored := make([]ScoredFinding, 0, len(findings))
	for _, f := range findings {
		scored = append(scored, ScoredFinding{Finding: f, Prediction: prediction.GetTreePrediction(f, now)})
	}
	return scored
}

// SelectForCriticalChannel keeps findings whose tree is predicted to be touching the line already.
// No deduplication happens here.
func SelectForCriticalChannel(findings []entities.InspectionFinding, now time.Time) []ScoredFinding {
	return filterScored(Evaluate(findings, now), func(p prediction.Prediction) bool { return p.IsCritical })
}

// SelectForDailyChannel keeps urgent findings. Every critical finding is urgent too,
// so the digest always repeats the critical items.
func SelectForDailyChannel(findings []entities.InspectionFinding, now time.Time) []ScoredFinding {
	return filterScored(Evaluate(findings, now), func(p prediction.Prediction) bool { return p.IsUrgent })
}

func filterScored(scored []ScoredFinding, keep func(prediction.Prediction) bool) []ScoredFinding {
	out := make([]ScoredFinding, 0, len(scored))
	for _, s := range scored {
		if keep(s.Prediction) {
			out = append(out, s)
		}
	}
	return out
}

// RankByPriority orders by warning priority descending, then remaining days ascending.
// Ties keep their input order. The input slice is not modified.
func RankByPriority(findings []ScoredFinding) []ScoredFinding {
	ranked := make([]ScoredFinding, len(findings))
	copy(ranked, findings)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Prediction, ranked[j].Prediction
		if a.WarningLevel.Priority != b.WarningLevel.Priority {
			return a.WarningLevel.Priority > b.WarningLevel.Priority
		}
		return a.SisaHari < b.SisaHari
	})
	return ranked
}

// FilterByLevel keeps findings at the given warning tier
func FilterByLevel(findings []ScoredFinding, key prediction.LevelKey) []ScoredFinding {
	return filterScored(findings, func(p prediction.Prediction) bool { return p.WarningLevel.Key == key })
}

// CountByLevel tallies findings per warning tier
func CountByLevel(findings []ScoredFinding) map[prediction.LevelKey]int {
	counts := make(map[prediction.LevelKey]int, len(prediction.Levels))
	for _, l := range prediction.Levels {
		counts[l.Key] = 0
	}
	for _, s := range findings {
		counts[s.Prediction.WarningLevel.Key]++
	}
	return counts
}
