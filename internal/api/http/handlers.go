package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"github.com/ulpfield/hazard-bot/internal/entities"
	"github.com/ulpfield/hazard-bot/internal/integration/whatsapp"
	"github.com/ulpfield/hazard-bot/internal/repository"
	"github.com/ulpfield/hazard-bot/internal/usecases"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 500
)

// NotificationLister reads back the delivery log
type NotificationLister interface {
	ListRecent(ctx context.Context, limit int) ([]entities.NotificationLogEntry, error)
}

// Handler serves the HTTP endpoints
type Handler struct {
	findings   *usecases.FindingUseCase
	notifier   *usecases.NotificationUseCase
	logs       NotificationLister
	sharePhone string
}

// NewHandler creates the HTTP handlers. notifier and logs may be nil;
// the endpoints that need them then answer 503.
func NewHandler(findings *usecases.FindingUseCase, notifier *usecases.NotificationUseCase, logs NotificationLister, sharePhone string) *Handler {
	return &Handler{
		findings:   findings,
		notifier:   notifier,
		logs:       logs,
		sharePhone: sharePhone,
	}
}

type HealthCheckResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	LastSync string `json:"lastSync,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PredictionsResponse struct {
	Count    int                       `json:"count"`
	Findings []usecases.ScoredFinding `json:"findings"`
}

type ShareResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

type NotificationsResponse struct {
	Count         int                             `json:"count"`
	Notifications []entities.NotificationLogEntry `json:"notifications"`
}

type DispatchResponse struct {
	Type string `json:"type"`
	Sent bool   `json:"sent"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	resp := HealthCheckResponse{
		Status:  "OK",
		Message: "Tree hazard server is running",
	}
	if last, err := h.findings.GetLastSyncTime(); err == nil && !last.IsZero() {
		resp.LastSync = last.Format("2006-01-02T15:04:05Z07:00")
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListPredictions(c *gin.Context) {
	scored, err := h.findings.GetPredictions(c.Query("ulp"), c.Query("level"))
	if errors.Is(err, usecases.ErrUnknownLevel) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		log.WithError(err).Error("Error listing predictions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load findings"})
		return
	}
	if scored == nil {
		scored = []usecases.ScoredFinding{}
	}
	c.JSON(http.StatusOK, PredictionsResponse{Count: len(scored), Findings: scored})
}

func (h *Handler) GetPrediction(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s)
}

// ShareFinding returns a wa.me link carrying the critical alert for one finding.
// The phone query parameter overrides the configured target.
func (h *Handler) ShareFinding(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	phone := c.DefaultQuery("phone", h.sharePhone)
	message := usecases.BuildCriticalMessage(s.Finding, h.findings.Now())
	c.JSON(http.StatusOK, ShareResponse{
		Message: message,
		URL:     whatsapp.IntentURL(phone, message),
	})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "notification log is not configured"})
		return
	}
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	entries, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Error listing notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read notification log"})
		return
	}
	if entries == nil {
		entries = []entities.NotificationLogEntry{}
	}
	c.JSON(http.StatusOK, NotificationsResponse{Count: len(entries), Notifications: entries})
}

func (h *Handler) TestNotification(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "notification channel is not configured"})
		return
	}
	typ := c.DefaultQuery("type", "daily")
	if _, err := usecases.BuildTestMessage(typ, h.findings.Now()); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	sent := h.notifier.TestNotification(c.Request.Context(), typ, h.findings.Now())
	c.JSON(statusFor(sent), DispatchResponse{Type: typ, Sent: sent})
}

// DailyTick lets an external scheduler trigger the digest; repeated ticks on one day send once
func (h *Handler) DailyTick(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "notification channel is not configured"})
		return
	}
	findings, err := h.findings.GetFindings("")
	if err != nil {
		log.WithError(err).Error("Error loading findings for daily tick")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load findings"})
		return
	}
	sent := h.notifier.RunDailyTick(c.Request.Context(), findings, h.findings.Now())
	c.JSON(http.StatusOK, DispatchResponse{Type: string(entities.NotificationDaily), Sent: sent})
}

func (h *Handler) lookup(c *gin.Context) (usecases.ScoredFinding, bool) {
	id := c.Param("id")
	s, err := h.findings.GetPrediction(id)
	if errors.Is(err, repository.ErrFindingNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "finding not found"})
		return s, false
	}
	if err != nil {
		log.WithError(err).Errorf("Error loading finding %s", id)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load finding"})
		return s, false
	}
	return s, true
}

func statusFor(sent bool) int {
	if sent {
		return http.StatusOK
	}
	return http.StatusBadGateway
}
