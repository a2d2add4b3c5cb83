package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/integration/openai"
	"github.com/ulpfield/hazard-bot/internal/repository"
)

var wib = time.FixedZone("WIB", 7*60*60)

// midnight keeps date-only fixtures whole days away
var midnight = time.Date(2024, time.June, 15, 0, 0, 0, 0, wib)

func finding(id, prediksi string, daysAgo int) entities.InspectionFinding {
	return entities.InspectionFinding{
		ID:                id,
		Lokasi:            "Lokasi " + id,
		JenisPohon:        "Mahoni",
		ULP:               "ULP Kota",
		Petugas:           "Budi",
		TglInspeksi:       midnight.AddDate(0, 0, -daysAgo).Format("2006-01-02"),
		Status:            entities.StatusTemuan,
		PrediksiInspektur: prediksi,
	}
}

// fixtureFindings: A waspada(1), B kritis(0), C monitoring(20), D waspada(4), E kritis(0), F aman(89)
func fixtureFindings() []entities.InspectionFinding {
	return []entities.InspectionFinding{
		finding("A", "1 minggu", 6),
		finding("B", "1 hari", 2),
		finding("C", "1 bulan", 10),
		finding("D", "1 minggu", 3),
		finding("E", "1 hari", 5),
		finding("F", "3 bulan", 1),
	}
}

type sentMessage struct {
	message  string
	imageURL string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) Send(ctx context.Context, message, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{message: message, imageURL: imageURL})
	return nil
}

type fakeLogStore struct {
	entries []entities.NotificationLogEntry
	err     error
}

func (s *fakeLogStore) LogNotification(ctx context.Context, entry entities.NotificationLogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type fakeGuard struct {
	marked map[string]bool
	err    error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{marked: map[string]bool{}}
}

func (g *fakeGuard) AlreadySent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.marked[repository.DeliveryKey(typ, key, day)], nil
}

func (g *fakeGuard) MarkSent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) error {
	g.marked[repository.DeliveryKey(typ, key, day)] = true
	return nil
}

type fakeRepository struct {
	findings []entities.InspectionFinding
	saved    []entities.InspectionFinding
	err      error
}

func (r *fakeRepository) SaveFindings(findings []entities.InspectionFinding) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, findings...)
	return nil
}

func (r *fakeRepository) ReplaceFindings(findings []entities.InspectionFinding) error {
	if r.err != nil {
		return r.err
	}
	r.findings = append([]entities.InspectionFinding(nil), findings...)
	r.saved = r.findings
	return nil
}

func (r *fakeRepository) GetFindings() ([]entities.InspectionFinding, error) {
	return r.findings, r.err
}

func (r *fakeRepository) GetFindingsByULP(ulp string) ([]entities.InspectionFinding, error) {
	var out []entities.InspectionFinding
	for _, f := range r.findings {
		if strings.EqualFold(f.ULP, ulp) {
			out = append(out, f)
		}
	}
	return out, r.err
}

func (r *fakeRepository) GetFindingByID(id string) (entities.InspectionFinding, error) {
	for _, f := range r.findings {
		if f.ID == id {
			return f, nil
		}
	}
	return entities.InspectionFinding{}, repository.ErrFindingNotFound
}

func (r *fakeRepository) GetLastSyncTime() (time.Time, error) { return midnight, nil }
func (r *fakeRepository) Close() error                      { return nil }

type fakeSource struct {
	findings []entities.InspectionFinding
	err      error
}

func (s *fakeSource) FetchFindings() ([]entities.InspectionFinding, error) {
	return s.findings, s.err
}

type fakeOpenAI struct {
	resp *openai.AgentResponse
	err  error
}

func (f *fakeOpenAI) InterpretUserQuery(ctx context.Context, userMessage string, knownLocations []string) (*openai.AgentResponse, error) {
	return f.resp, f.err
}

var errBoom = errors.New("boom")
