package usecases

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/prediction"
)

// digestListLimit is how many findings the daily digest lists by name
const digestListLimit = 5

// ErrUnknownTestType is returned for test notification types other than daily and critical
var ErrUnknownTestType = errors.New("unknown test notification type")

var bulan = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli",
	"Agustus", "September", "Oktober", "November", "Desember"}

var hari = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

// formatTanggal renders a date the way field teams write it, e.g. "15 Juni 2024"
func formatTanggal(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), bulan[t.Month()-1], t.Year())
}

func orNotAvailable(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return prediction.NotAvailable
	}
	return s
}

// displayDate renders a stored date string, falling back to the raw text
func displayDate(s string, loc *time.Location) string {
	if t, ok := prediction.ParseDate(s, loc); ok {
		return formatTanggal(t)
	}
	return orNotAvailable(s)
}

// BuildCriticalMessage renders the immediate alert for one finding
func BuildCriticalMessage(f entities.InspectionFinding, now time.Time) string {
	p := prediction.GetTreePrediction(f, now)

	var b strings.Builder
	b.WriteString("🚨 *PERINGATAN KRITIS: POHON BERBAHAYA* 🚨\n\n")
	b.WriteString(fmt.Sprintf("📍 Lokasi: %s\n", orNotAvailable(f.Lokasi)))
	b.WriteString(fmt.Sprintf("🌳 Jenis Pohon: %s\n", orNotAvailable(f.JenisPohon)))
	b.WriteString(fmt.Sprintf("🏢 ULP: %s\n", orNotAvailable(f.ULP)))
	b.WriteString(fmt.Sprintf("📅 Tanggal Inspeksi: %s\n", displayDate(f.TglInspeksi, now.Location())))
	b.WriteString(fmt.Sprintf("👷 Petugas: %s\n\n", orNotAvailable(f.Petugas)))
	b.WriteString(fmt.Sprintf("⏰ Prediksi: %s\n", p.DisplayFormat.FullText))
	b.WriteString(fmt.Sprintf("⚠️ Status: %s %s\n", p.WarningLevel.Icon, p.WarningLevel.Text))
	b.WriteString(fmt.Sprintf("🗺️ Koordinat: %s\n\n", orNotAvailable(f.Koordinat)))

	if p.SisaHari < 1 {
		b.WriteString("❗ *TINDAKAN SEGERA: lakukan pemangkasan hari ini!*")
	} else {
		b.WriteString("⚡ *Siapkan tim dan peralatan pemangkasan sekarang.*")
	}
	return b.String()
}

// BuildDailyDigest summarizes the urgent findings, most severe first.
// With nothing urgent it returns an explicit all-clear message.
func BuildDailyDigest(findings []entities.InspectionFinding, now time.Time) string {
	urgent := RankByPriority(SelectForDailyChannel(findings, now))

	var b strings.Builder
	b.WriteString("📊 *LAPORAN HARIAN POHON PRIORITAS*\n")
	b.WriteString(fmt.Sprintf("📅 %s, %s\n\n", hari[now.Weekday()], formatTanggal(now)))

	if len(urgent) == 0 {
		b.WriteString("✅ Tidak ada pohon yang perlu perhatian hari ini.")
		return b.String()
	}

	critical := 0
	for _, s := range urgent {
		if s.Prediction.IsCritical {
			critical++
		}
	}

	b.WriteString(fmt.Sprintf("Total pohon perlu tindakan: *%d*\n", len(urgent)))
	b.WriteString(fmt.Sprintf("%s Sangat berbahaya: %d\n", prediction.SangatBerbahaya.Icon, critical))
	b.WriteString(fmt.Sprintf("%s Waspada: %d\n\n", prediction.Waspada.Icon, len(urgent)-critical))

	b.WriteString("*Daftar prioritas:*\n")
	for i, s := range urgent {
		if i == digestListLimit {
			break
		}
		b.WriteString(fmt.Sprintf("%d. %s %s (%s), %s, ULP %s\n",
			i+1,
			s.Prediction.WarningLevel.Icon,
			orNotAvailable(s.Finding.Lokasi),
			orNotAvailable(s.Finding.JenisPohon),
			s.Prediction.DisplayFormat.Text,
			orNotAvailable(s.Finding.ULP),
		))
	}
	if extra := len(urgent) - digestListLimit; extra > 0 {
		b.WriteString(fmt.Sprintf("...dan %d pohon lainnya\n", extra))
	}

	b.WriteString("\nMohon segera ditindaklanjuti. Detail lengkap tersedia di dashboard.")
	return b.String()
}

// BuildTestMessage renders a synthetic message for smoke-testing a channel
func BuildTestMessage(typ string, now time.Time) (string, error) {
	stamp := fmt.Sprintf("%s %s", formatTanggal(now), now.Format("15:04"))
	switch typ {
	case "daily":
		return "🧪 *TEST LAPORAN HARIAN*\n\n" +
			"Ini adalah pesan uji coba notifikasi harian pohon prioritas.\n" +
			"Dikirim: " + stamp, nil
	case "critical":
		return "🧪 *TEST PERINGATAN KRITIS*\n\n" +
			"Ini adalah pesan uji coba peringatan pohon sangat berbahaya.\n" +
			"Dikirim: " + stamp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTestType, typ)
	}
}
