// Package whatsapp delivers notifications to a WhatsApp group through an HTTP gateway
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
)

// Config is injected at construction instead of living in package state
type Config struct {
	APIURL  string // gateway endpoint accepting JSON messages
	Token   string // sent as the Authorization header
	Target  string // group or phone identifier
	Timeout time.Duration
}

// Sender posts messages to the gateway
type Sender struct {
	cfg    Config
	client *http.Client
}

type sendRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// NewSender validates the configuration and creates a sender
func NewSender(cfg Config) (*Sender, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("whatsapp api url is not configured")
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("whatsapp target is not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send delivers one message, attaching imageURL when given
func (s *Sender) Send(ctx context.Context, message, imageURL string) error {
	body, err := json.Marshal(sendRequest{Target: s.cfg.Target, Message: message, URL: imageURL})
	if err != nil {
		return fmt.Errorf("failed to encode whatsapp request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", s.cfg.Token)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	log.WithField("target", s.cfg.Target).Info("WhatsApp message delivered to gateway")
	return nil
}

// IntentURL builds a wa.me link that opens WhatsApp with text prefilled.
// Without a phone number the user picks the recipient.
func IntentURL(phone, text string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	// wa.me expects %20 for spaces
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits.String(), escaped)
}
