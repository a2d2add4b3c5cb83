package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/prediction"
	"github.com/ulpfield/hazard-bot/internal/repository"
	"github.com/ulpfield/hazard-bot/internal/usecases"
)

var testNow = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.FixedZone("WIB", 7*60*60))

type stubRepository struct {
	findings []entities.InspectionFinding
}

func (r *stubRepository) SaveFindings(f []entities.InspectionFinding) error { return nil }
func (r *stubRepository) ReplaceFindings(f []entities.InspectionFinding) error { return nil }
func (r *stubRepository) GetFindings() ([]entities.InspectionFinding, error) {
	return r.findings, nil
}
func (r *stubRepository) GetFindingsByULP(ulp string) ([]entities.InspectionFinding, error) {
	var out []entities.InspectionFinding
	for _, f := range r.findings {
		if strings.EqualFold(f.ULP, ulp) {
			out = append(out, f)
		}
	}
	return out, nil
}
func (r *stubRepository) GetFindingByID(id string) (entities.InspectionFinding, error) {
	for _, f := range r.findings {
		if f.ID == id {
			return f, nil
		}
	}
	return entities.InspectionFinding{}, repository.ErrFindingNotFound
}
func (r *stubRepository) GetLastSyncTime() (time.Time, error) { return testNow, nil }
func (r *stubRepository) Close() error                      { return nil }

type stubSender struct {
	err  error
	sent []string
}

func (s *stubSender) Send(ctx context.Context, message, imageURL string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, message)
	return nil
}

type memoryGuard map[string]bool

func (g memoryGuard) AlreadySent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) (bool, error) {
	return g[repository.DeliveryKey(typ, key, day)], nil
}

func (g memoryGuard) MarkSent(ctx context.Context, typ entities.NotificationType, key string, day time.Time) error {
	g[repository.DeliveryKey(typ, key, day)] = true
	return nil
}

type stubLister struct {
	entries []entities.NotificationLogEntry
	limit   int
}

func (l *stubLister) ListRecent(ctx context.Context, limit int) ([]entities.NotificationLogEntry, error) {
	l.limit = limit
	return l.entries, nil
}

func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format("2006-01-02")
}

func newTestRouter(sender *stubSender, lister NotificationLister) *gin.Engine {
	repo := &stubRepository{findings: []entities.InspectionFinding{
		{ID: "T-1", Lokasi: "Jl. Sudirman", ULP: "ULP Kota", Status: entities.StatusTemuan, PrediksiInspektur: "1 hari", TglInspeksi: daysAgo(3)},
		{ID: "T-2", Lokasi: "Pasar Baru", ULP: "ULP Timur", Status: entities.StatusTemuan, PrediksiInspektur: "1 minggu", TglInspeksi: daysAgo(3)},
		{ID: "T-3", Lokasi: "Alun-alun", ULP: "ULP Kota", Status: entities.StatusSelesai, PrediksiInspektur: "1 hari", TglInspeksi: daysAgo(40), TglEksekusi: daysAgo(10)},
	}}
	findings := usecases.NewFindingUseCase(repo, nil, nil, prediction.NewPredictor(prediction.FixedClock(testNow)))

	var notifier *usecases.NotificationUseCase
	if sender != nil {
		notifier = usecases.NewNotificationUseCase(sender, nil, memoryGuard{}, usecases.NotificationConfig{DailyTime: "00:00"})
	}
	return SetupRouter(gin.TestMode, NewHandler(findings, notifier, lister, "+62 812-3456"))
}

func do(t *testing.T, router *gin.Engine, method, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(nil, nil)

	var resp HealthCheckResponse
	w := do(t, router, http.MethodGet, "/health", &resp)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", resp.Status)
	assert.NotEmpty(t, resp.LastSync)
}

func TestListPredictions(t *testing.T) {
	router := newTestRouter(nil, nil)

	var resp PredictionsResponse
	w := do(t, router, http.MethodGet, "/api/v1/predictions", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "T-1", resp.Findings[0].Finding.ID)
	assert.Equal(t, prediction.LevelSangatBerbahaya, resp.Findings[0].Prediction.WarningLevel.Key)
	assert.Equal(t, "T-2", resp.Findings[1].Finding.ID)
	assert.Equal(t, 4, resp.Findings[1].Prediction.SisaHari)
	assert.Equal(t, 80, resp.Findings[2].Prediction.SisaHari)

	resp = PredictionsResponse{}
	w = do(t, router, http.MethodGet, "/api/v1/predictions?ulp=ulp%20kota&level=aman", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "T-3", resp.Findings[0].Finding.ID)

	w = do(t, router, http.MethodGet, "/api/v1/predictions?level=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPrediction(t *testing.T) {
	router := newTestRouter(nil, nil)

	var s usecases.ScoredFinding
	w := do(t, router, http.MethodGet, "/api/v1/findings/T-2/prediction", &s)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prediction.LevelWaspada, s.Prediction.WarningLevel.Key)
	assert.True(t, s.Prediction.ShouldDailyNotify)

	w = do(t, router, http.MethodGet, "/api/v1/findings/nope/prediction", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareFinding(t *testing.T) {
	router := newTestRouter(nil, nil)

	var resp ShareResponse
	w := do(t, router, http.MethodGet, "/api/v1/findings/T-1/share", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Message, "Jl. Sudirman")
	assert.True(t, strings.HasPrefix(resp.URL, "https://wa.me/628123456?text="))
	assert.NotContains(t, resp.URL, "+")
	assert.Contains(t, resp.URL, "%20")

	w = do(t, router, http.MethodGet, "/api/v1/findings/T-1/share?phone=0811", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(resp.URL, "https://wa.me/0811?text="))
}

func TestListNotifications(t *testing.T) {
	w := do(t, newTestRouter(nil, nil), http.MethodGet, "/api/v1/notifications", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	lister := &stubLister{entries: []entities.NotificationLogEntry{
		{ID: "a", Type: entities.NotificationCritical, TreeID: "T-1", Status: entities.DeliverySent, SentAt: testNow},
	}}
	router := newTestRouter(nil, lister)

	var resp NotificationsResponse
	w = do(t, router, http.MethodGet, "/api/v1/notifications", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, defaultNotificationLimit, lister.limit)

	w = do(t, router, http.MethodGet, "/api/v1/notifications?limit=100000", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxNotificationLimit, lister.limit)

	w = do(t, router, http.MethodGet, "/api/v1/notifications?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestNotificationEndpoint(t *testing.T) {
	w := do(t, newTestRouter(nil, nil), http.MethodPost, "/api/v1/notifications/test", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	sender := &stubSender{}
	router := newTestRouter(sender, nil)

	var resp DispatchResponse
	w = do(t, router, http.MethodPost, "/api/v1/notifications/test?type=critical", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Sent)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "TEST PERINGATAN KRITIS")

	w = do(t, router, http.MethodPost, "/api/v1/notifications/test?type=weekly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := newTestRouter(&stubSender{err: errors.New("gateway down")}, nil)
	w = do(t, failing, http.MethodPost, "/api/v1/notifications/test", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDailyTickSendsOncePerDay(t *testing.T) {
	sender := &stubSender{}
	router := newTestRouter(sender, nil)

	var resp DispatchResponse
	w := do(t, router, http.MethodPost, "/api/v1/notifications/daily/tick", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Sent)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Total pohon perlu tindakan: *2*")

	w = do(t, router, http.MethodPost, "/api/v1/notifications/daily/tick", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Sent)
	assert.Len(t, sender.sent, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(t, newTestRouter(nil, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
