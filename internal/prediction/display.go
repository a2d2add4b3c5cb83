package prediction

import (
	"fmt"
	"math"
	"strings"
)

// NotAvailable substitutes missing presentation fields
const NotAvailable = "tidak tersedia"

// DisplayFormat is the human-readable projection of a prediction
type DisplayFormat struct {
	Text     string `json:"text"`
	Subtext  string `json:"subtext"`
	FullText string `json:"fullText"`
}

// FormatDisplay renders remaining days into short, medium and long phrasing.
// The output depends only on its arguments.
func FormatDisplay(sisaHari int, level WarningLevel, prediksiInspektur string) DisplayFormat {
	awal := strings.TrimSpace(prediksiInspektur)
	if awal == "" {
		awal = NotAvailable
	}

	var d DisplayFormat
	switch {
	case sisaHari < 1:
		d.Text = "Hari ini"
		d.Subtext = "Segera pangkas"
		d.FullText = fmt.Sprintf("%s Pohon diprediksi sudah mendekati jaringan (prediksi awal: %s)", level.Icon, awal)
		return d
	case sisaHari == 1:
		d.Text = "1 hari lagi"
		d.Subtext = "Besok"
	case sisaHari <= 7:
		d.Text = fmt.Sprintf("%d hari lagi", sisaHari)
		d.Subtext = "Minggu ini"
	case sisaHari <= 30:
		d.Text = fmt.Sprintf("%d hari lagi", sisaHari)
		d.Subtext = fmt.Sprintf("± %d minggu", int(math.Round(float64(sisaHari)/7)))
	default:
		d.Text = fmt.Sprintf("%d hari lagi", sisaHari)
		d.Subtext = fmt.Sprintf("± %d bulan", int(math.Round(float64(sisaHari)/30)))
	}
	d.FullText = fmt.Sprintf("%s Diprediksi menyentuh jaringan dalam %d hari (%s), prediksi awal: %s",
		level.Icon, sisaHari, strings.ToLower(d.Subtext), awal)
	return d
}
