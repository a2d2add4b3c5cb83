// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/integration/openai"
	"github.com/ulpfield/hazard-bot/internal/metrics"
	"github.com/ulpfield/hazard-bot/internal/prediction"
	"github.com/ulpfield/hazard-bot/internal/repository"
)

// ErrUnknownLevel is returned when a level filter names no warning tier
var ErrUnknownLevel = errors.New("unknown warning level")

// FindingSource supplies findings from the upstream spreadsheet
type FindingSource interface {
	FetchFindings() ([]entities.InspectionFinding, error)
}

// FindingUseCase handles business logic related to inspection findings
type FindingUseCase struct {
	repo          repository.FindingRepository
	source        FindingSource
	openAIService openai.OpenAIService
	predictor     *prediction.Predictor
}

// NewFindingUseCase creates a new finding use case. source and openAIService may be nil.
func NewFindingUseCase(repo repository.FindingRepository, source FindingSource, openAIService openai.OpenAIService, predictor *prediction.Predictor) *FindingUseCase {
	if predictor == nil {
		predictor = prediction.NewPredictor(nil)
	}
	return &FindingUseCase{
		repo:          repo,
		source:        source,
		openAIService: openAIService,
		predictor:     predictor,
	}
}

// Now returns the current time of the use case clock
func (uc *FindingUseCase) Now() time.Time {
	return uc.predictor.Now()
}

// RefreshFindings fetches the spreadsheet and replaces the stored findings with its rows.
// Rows removed from the sheet disappear from the repository.
func (uc *FindingUseCase) RefreshFindings() error {
	if uc.source == nil {
		return fmt.Errorf("no finding source configured")
	}
	log.Info("Starting finding refresh process...")

	findings, err := uc.source.FetchFindings()
	if err != nil {
		metrics.SheetSyncTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("failed to fetch findings: %w", err)
	}
	log.Infof("Successfully fetched %d findings", len(findings))

	if err := uc.repo.ReplaceFindings(findings); err != nil {
		metrics.SheetSyncTotal.WithLabelValues("save_error").Inc()
		return fmt.Errorf("failed to save findings to repository: %w", err)
	}
	metrics.SheetSyncTotal.WithLabelValues("ok").Inc()
	return nil
}

// GetFindings returns all findings, or those of one unit when ulp is set
func (uc *FindingUseCase) GetFindings(ulp string) ([]entities.InspectionFinding, error) {
	if ulp != "" {
		return uc.repo.GetFindingsByULP(ulp)
	}
	return uc.repo.GetFindings()
}

// GetLastSyncTime reports when the findings were last refreshed
func (uc *FindingUseCase) GetLastSyncTime() (time.Time, error) {
	return uc.repo.GetLastSyncTime()
}

// GetPredictions evaluates findings now and ranks them by urgency.
// level, when set, keeps only that warning tier.
func (uc *FindingUseCase) GetPredictions(ulp, level string) ([]ScoredFinding, error) {
	findings, err := uc.GetFindings(ulp)
	if err != nil {
		return nil, err
	}
	scored := Evaluate(findings, uc.Now())
	ReportDataQuality(scored)

	if level != "" {
		l, ok := prediction.LevelByKey(strings.ToUpper(level))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
		}
		scored = FilterByLevel(scored, l.Key)
	}
	return RankByPriority(scored), nil
}

// GetPrediction evaluates a single finding
func (uc *FindingUseCase) GetPrediction(id string) (ScoredFinding, error) {
	f, err := uc.repo.GetFindingByID(id)
	if err != nil {
		return ScoredFinding{}, err
	}
	return ScoredFinding{Finding: f, Prediction: uc.predictor.Predict(f)}, nil
}

// FindByLocation returns the findings whose location contains the query, most urgent first
func (uc *FindingUseCase) FindByLocation(query string) ([]ScoredFinding, error) {
	findings, err := uc.repo.GetFindings()
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	var matched []entities.InspectionFinding
	for _, f := range findings {
		if query != "" && strings.Contains(strings.ToLower(f.Lokasi), query) {
			matched = append(matched, f)
		}
	}
	return RankByPriority(Evaluate(matched, uc.Now())), nil
}

// ReportDataQuality logs findings whose estimate fell back to the default horizon
func ReportDataQuality(scored []ScoredFinding) {
	for _, s := range scored {
		if s.Prediction.UnknownVocabulary {
			log.WithFields(log.Fields{
				"tree":     s.Finding.ID,
				"prediksi": s.Finding.PrediksiInspektur,
			}).Warnf("Unrecognized inspector estimate, assuming %d days", prediction.DefaultHorizonDays)
		}
	}
}

// FormatPredictionInfo formats one prediction for chat display
func (uc *FindingUseCase) FormatPredictionInfo(s ScoredFinding) string {
	var result strings.Builder
	p := s.Prediction
	result.WriteString(fmt.Sprintf("🌳 %s (%s)\n", orNotAvailable(s.Finding.Lokasi), s.Finding.ID))
	result.WriteString(fmt.Sprintf("Jenis: %s, ULP: %s\n", orNotAvailable(s.Finding.JenisPohon), orNotAvailable(s.Finding.ULP)))
	result.WriteString(fmt.Sprintf("Status temuan: %s\n", orNotAvailable(string(s.Finding.Status))))
	result.WriteString(fmt.Sprintf("%s %s: %s (%s)\n", p.WarningLevel.Icon, p.WarningLevel.Text, p.DisplayFormat.Text, p.DisplayFormat.Subtext))
	result.WriteString(p.DisplayFormat.FullText)
	return result.String()
}

// FormatCriticalList lists critical findings for chat display
func (uc *FindingUseCase) FormatCriticalList(findings []ScoredFinding) string {
	if len(findings) == 0 {
		return "✅ Tidak ada pohon dalam status SANGAT BERBAHAYA."
	}
	var result strings.Builder
	result.WriteString(fmt.Sprintf("🚨 %d pohon SANGAT BERBAHAYA:\n\n", len(findings)))
	for i, s := range findings {
		result.WriteString(fmt.Sprintf("%d. %s (%s), ULP %s, /pohon %s\n",
			i+1, orNotAvailable(s.Finding.Lokasi), orNotAvailable(s.Finding.JenisPohon), orNotAvailable(s.Finding.ULP), s.Finding.ID))
	}
	return result.String()
}

// GetCriticalFindings returns the critical subset ranked by urgency
func (uc *FindingUseCase) GetCriticalFindings() ([]ScoredFinding, error) {
	findings, err := uc.repo.GetFindings()
	if err != nil {
		return nil, err
	}
	return RankByPriority(SelectForCriticalChannel(findings, uc.Now())), nil
}

// GetDailyDigest renders today's digest without sending it
func (uc *FindingUseCase) GetDailyDigest() (string, error) {
	findings, err := uc.repo.GetFindings()
	if err != nil {
		return "", err
	}
	return BuildDailyDigest(findings, uc.Now()), nil
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service
// and returns an appropriate response string.
func (uc *FindingUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.openAIService == nil {
		return "Perintah tidak dikenali. Gunakan /help untuk melihat daftar perintah.", nil
	}
	log.Infof("Interpreting natural language query: %s", query)

	findings, err := uc.repo.GetFindings()
	if err != nil {
		log.WithError(err).Error("Error fetching findings")
		return "Maaf, data temuan tidak dapat diambil saat ini.", nil
	}
	locations := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Lokasi != "" {
			locations = append(locations, f.Lokasi)
		}
	}

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query, locations)
	if err != nil {
		log.WithError(err).Error("Error interpreting user query via OpenAI")
		return "Maaf, saya belum bisa memahami pesan itu. Coba lagi nanti atau gunakan /help.", nil
	}

	switch agentResp.CommandName {
	case openai.CommandTreePrediction:
		if agentResp.Location == "" {
			return agentResp.UserMessage, nil
		}
		matched, err := uc.FindByLocation(agentResp.Location)
		if err != nil {
			log.WithError(err).Error("Error fetching findings after agent interpretation")
			return "Maaf, data temuan tidak dapat diambil saat ini.", nil
		}
		msg := agentResp.UserMessage
		if msg != "" {
			msg += "\n\n"
		}
		if len(matched) == 0 {
			return msg + fmt.Sprintf("Tidak ada temuan di lokasi '%s'.", agentResp.Location), nil
		}
		parts := make([]string, 0, len(matched))
		for _, s := range matched {
			parts = append(parts, uc.FormatPredictionInfo(s))
		}
		return msg + strings.Join(parts, "\n\n"), nil
	case openai.CommandDailyDigest:
		return BuildDailyDigest(findings, uc.Now()), nil
	case openai.CommandGeneralQuery:
		return agentResp.UserMessage, nil
	default:
		log.Warnf("Agent returned unexpected command: %s", agentResp.CommandName)
		return "Saya tidak yakin harus menjawab apa. Gunakan /help untuk daftar perintah.", nil
	}
}
