// Package prediction estimates when an inspected tree reaches the overhead conductors
// and grades the result into warning tiers. Everything here is pure: "now" is always an argument.
package prediction

import (
	"strings"
	"time"

	"github.com/ulpfield/hazard-bot/internal/entities"
)

const (
	// RegrowthDays is the horizon assumed after a tree has been cut back
	RegrowthDays = 90
	// DefaultHorizonDays applies to estimates outside the known vocabulary
	DefaultHorizonDays = 30

	millisPerDay = int64(24 * time.Hour / time.Millisecond)
)

// horizons maps the inspector's vocabulary to whole days
var horizons = map[string]int{
	"1 hari":   1,
	"1 minggu": 7,
	"1 bulan":  30,
	"2 bulan":  60,
	"3 bulan":  90,
}

// Prediction is the computed hazard outlook for one finding
type Prediction struct {
	SisaHari          int           `json:"sisaHari"`
	HorizonDays       int           `json:"horizonDays"`
	WarningLevel      WarningLevel  `json:"warningLevel"`
	DisplayFormat     DisplayFormat `json:"displayFormat"`
	NeedsAction       bool          `json:"needsAction"`
	IsUrgent          bool          `json:"isUrgent"`
	IsCritical        bool          `json:"isCritical"`
	ShouldTriggerBot  bool          `json:"shouldTriggerBot"`
	ShouldDailyNotify bool          `json:"shouldDailyNotify"`
	UnknownVocabulary bool          `json:"unknownVocabulary"`
}

// HorizonDays resolves an inspector estimate to days. The second result is false
// when the value is outside the vocabulary and the default was used.
func HorizonDays(prediksiInspektur string) (int, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(prediksiInspektur), " "))
	if days, ok := horizons[key]; ok {
		return days, true
	}
	return DefaultHorizonDays, false
}

// ElapsedDays is ceil(|now - ref| / 1 day) at millisecond resolution
func ElapsedDays(ref, now time.Time) int {
	ms := now.Sub(ref).Milliseconds()
	if ms < 0 {
		ms = -ms
	}
	return int((ms + millisPerDay - 1) / millisPerDay)
}

// ComputeRemainingDays returns the whole days left before the tree is expected to
// touch the conductors. It never fails and never returns a negative value.
func ComputeRemainingDays(prediksiInspektur, tglInspeksi, tglEksekusi string, status entities.Status, now time.Time) int {
	remaining, _ := remainingDays(prediksiInspektur, tglInspeksi, tglEksekusi, status, now)
	return remaining
}

func remainingDays(prediksiInspektur, tglInspeksi, tglEksekusi string, status entities.Status, now time.Time) (int, int) {
	horizon := RegrowthDays
	ref := strings.TrimSpace(tglEksekusi)
	if status != entities.StatusSelesai || ref == "" {
		horizon, _ = HorizonDays(prediksiInspektur)
		ref = tglInspeksi
	}

	elapsed := 0
	if t, ok := ParseDate(ref, now.Location()); ok {
		elapsed = ElapsedDays(t, now)
	}

	remaining := horizon - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, horizon
}

// GetTreePrediction composes remaining days, warning tier and display text for one finding
func GetTreePrediction(f entities.InspectionFinding, now time.Time) Prediction {
	sisa, horizon := remainingDays(f.PrediksiInspektur, f.TglInspeksi, f.TglEksekusi, f.Status, now)
	level := ClassifyWarningLevel(sisa)
	_, known := HorizonDays(f.PrediksiInspektur)
	remediated := f.Status == entities.StatusSelesai && strings.TrimSpace(f.TglEksekusi) != ""

	return Prediction{
		SisaHari:          sisa,
		HorizonDays:       horizon,
		WarningLevel:      level,
		DisplayFormat:     FormatDisplay(sisa, level, f.PrediksiInspektur),
		NeedsAction:       sisa <= 7,
		IsUrgent:          level.NeedsUrgentAction,
		IsCritical:        sisa < 1,
		ShouldTriggerBot:  sisa < 1,
		ShouldDailyNotify: sisa < 5,
		UnknownVocabulary: !known && !remediated,
	}
}

// Predictor binds GetTreePrediction to a clock
type Predictor struct {
	clock Clock
}

// NewPredictor creates a predictor. A nil clock means the system clock.
func NewPredictor(clock Clock) *Predictor {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Predictor{clock: clock}
}

// Now returns the predictor's current time
func (p *Predictor) Now() time.Time {
	return p.clock.Now()
}

// Predict evaluates a finding against the predictor's clock
func (p *Predictor) Predict(f entities.InspectionFinding) Prediction {
	return GetTreePrediction(f, p.clock.Now())
}
