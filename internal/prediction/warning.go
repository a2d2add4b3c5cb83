package prediction

// LevelKey identifies a warning tier
type LevelKey string

const (
	LevelSangatBerbahaya LevelKey = "SANGAT_BERBAHAYA"
	LevelWaspada         LevelKey = "WASPADA"
	LevelPerhatian       LevelKey = "PERHATIAN"
	LevelMonitoring      LevelKey = "MONITORING"
	LevelAman            LevelKey = "AMAN"
)

// WarningLevel is one of the five ordered severity tiers. Priority 5 is the most severe.
type WarningLevel struct {
	Key               LevelKey `json:"key"`
	Text              string   `json:"text"`
	Color             string   `json:"color"`
	Icon              string   `json:"icon"`
	Priority          int      `json:"priority"`
	NeedsUrgentAction bool     `json:"needsUrgentAction"`
}

var (
	SangatBerbahaya = WarningLevel{Key: LevelSangatBerbahaya, Text: "SANGAT BERBAHAYA", Color: "danger", Icon: "🔴", Priority: 5, NeedsUrgentAction: true}
	Waspada         = WarningLevel{Key: LevelWaspada, Text: "WASPADA", Color: "warning", Icon: "🟠", Priority: 4, NeedsUrgentAction: true}
	Perhatian       = WarningLevel{Key: LevelPerhatian, Text: "PERHATIAN", Color: "caution", Icon: "🟡", Priority: 3}
	Monitoring      = WarningLevel{Key: LevelMonitoring, Text: "MONITORING", Color: "info", Icon: "🔵", Priority: 2}
	Aman            = WarningLevel{Key: LevelAman, Text: "AMAN", Color: "success", Icon: "🟢", Priority: 1}
)

// Levels lists every tier from most to least severe
var Levels = []WarningLevel{SangatBerbahaya, Waspada, Perhatian, Monitoring, Aman}

// ClassifyWarningLevel maps remaining days to a tier. First match wins.
func ClassifyWarningLevel(sisaHari int) WarningLevel {
	switch {
	case sisaHari < 1:
		return SangatBerbahaya
	case sisaHari < 5:
		return Waspada
	case sisaHari <= 7:
		return Perhatian
	case sisaHari <= 30:
		return Monitoring
	default:
		return Aman
	}
}

// LevelByKey looks a tier up by its key
func LevelByKey(key string) (WarningLevel, bool) {
	for _, l := range Levels {
		if string(l.Key) == key {
			return l, true
		}
	}
	return WarningLevel{}, false
}
