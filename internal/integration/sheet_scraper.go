// Package integration handles external service interactions
package integration

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/apex/log"

	"github.com/ulpfield/hazard-bot/internal/entities"
)

// SheetScraper reads inspection findings from a spreadsheet published to the web as HTML
type SheetScraper struct {
	sourceURL string
	client    *http.Client
}

// NewSheetScraper creates a new spreadsheet scraper
func NewSheetScraper(url string, timeout time.Duration) *SheetScraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SheetScraper{
		sourceURL: url,
		client:    &http.Client{Timeout: timeout},
	}
}

// column identifies one mapped spreadsheet column
type column int

const (
	colID column = iota
	colLokasi
	colJenisPohon
	colULP
	colPetugas
	colTglInspeksi
	colTglEksekusi
	colStatus
	colPrediksi
	colKoordinat
	colFotoSebelum
	colImage
)

// headerAliases maps normalized header text to a column
var headerAliases = map[string]column{
	"id":                colID,
	"idtemuan":          colID,
	"lokasi":            colLokasi,
	"jenispohon":        colJenisPohon,
	"ulp":               colULP,
	"petugas":           colPetugas,
	"tglinspeksi":       colTglInspeksi,
	"tanggalinspeksi":   colTglInspeksi,
	"tgleksekusi":       colTglEksekusi,
	"tanggaleksekusi":   colTglEksekusi,
	"status":            colStatus,
	"prediksiinspektur": colPrediksi,
	"prediksi":          colPrediksi,
	"koordinat":         colKoordinat,
	"fotosebelumurl":    colFotoSebelum,
	"fotosebelum":       colFotoSebelum,
	"imageurl":          colImage,
	"foto":              colImage,
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", ".", "", "-", "").Replace(s)
}

// FetchFindings downloads the published sheet and parses every data row
func (s *SheetScraper) FetchFindings() ([]entities.InspectionFinding, error) {
	if s.sourceURL == "" {
		return nil, fmt.Errorf("sheet url is not configured")
	}

	log.Infof("Sending HTTP request to published sheet")
	res, err := s.client.Get(s.sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the sheet: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the sheet: %w", err)
	}

	findings, err := ParseFindings(doc)
	if err != nil {
		return nil, err
	}
	log.Infof("Extracted %d findings from sheet", len(findings))
	return findings, nil
}

// ParseFindings locates the header row by column names and maps the rows below it
func ParseFindings(doc *goquery.Document) ([]entities.InspectionFinding, error) {
	var columns map[column]int
	var findings []entities.InspectionFinding
	dataRow := 0
	skipped := 0

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}

		if columns == nil {
			columns = detectHeader(cells)
			return
		}

		dataRow++
		cell := func(c column) *goquery.Selection {
			idx, ok := columns[c]
			if !ok || idx >= cells.Length() {
				return nil
			}
			return cells.Eq(idx)
		}
		text := func(c column) string {
			if sel := cell(c); sel != nil {
				return strings.TrimSpace(sel.Text())
			}
			return ""
		}
		link := func(c column) string {
			sel := cell(c)
			if sel == nil {
				return ""
			}
			if href, ok := sel.Find("a").Attr("href"); ok {
				return strings.TrimSpace(href)
			}
			if src, ok := sel.Find("img").Attr("src"); ok {
				return strings.TrimSpace(src)
			}
			return strings.TrimSpace(sel.Text())
		}

		f := entities.InspectionFinding{
			ID:                text(colID),
			Lokasi:            text(colLokasi),
			JenisPohon:        text(colJenisPohon),
			ULP:               text(colULP),
			Petugas:           text(colPetugas),
			TglInspeksi:       text(colTglInspeksi),
			TglEksekusi:       text(colTglEksekusi),
			Status:            normalizeStatus(text(colStatus)),
			PrediksiInspektur: text(colPrediksi),
			Koordinat:         text(colKoordinat),
			FotoSebelumURL:    link(colFotoSebelum),
			ImageURL:          link(colImage),
		}

		if f.ID == "" && f.Lokasi == "" && f.TglInspeksi == "" && f.PrediksiInspektur == "" {
			skipped++
			return
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("sheet-%d", dataRow)
		}
		findings = append(findings, f)
	})

	if columns == nil {
		return nil, fmt.Errorf("no header row found in sheet")
	}
	if skipped > 0 {
		log.Infof("Skipped %d blank sheet rows", skipped)
	}
	return findings, nil
}

// detectHeader returns the column positions when the row looks like the header, nil otherwise
func detectHeader(cells *goquery.Selection) map[column]int {
	columns := make(map[column]int)
	cells.Each(func(i int, c *goquery.Selection) {
		if col, ok := headerAliases[normalizeHeader(c.Text())]; ok {
			if _, seen := columns[col]; !seen {
				columns[col] = i
			}
		}
	})

	_, hasLokasi := columns[colLokasi]
	_, hasPrediksi := columns[colPrediksi]
	_, hasTgl := columns[colTglInspeksi]
	if !hasLokasi || !(hasPrediksi || hasTgl) {
		return nil
	}
	return columns
}

func normalizeStatus(s string) entities.Status {
	for _, known := range []entities.Status{entities.StatusTemuan, entities.StatusPending, entities.StatusSelesai} {
		if strings.EqualFold(s, string(known)) {
			return known
		}
	}
	return entities.Status(s)
}
