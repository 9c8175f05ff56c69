package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPStatusThreshold = 300
)

// SecurityAlertService pushes fire-and-forget notifications about suspicious
// session activity (refresh token replay, rotation races) to an external
// webhook. An empty URL disables delivery.
type SecurityAlertService struct {
	client     *http.Client
	log        *zap.SugaredLogger
	webhookURL string
}

func NewSecurityAlertService(log *zap.SugaredLogger, webhookURL string) *SecurityAlertService {
	return &SecurityAlertService{
		client:     &http.Client{},
		log:        log,
		webhookURL: webhookURL,
	}
}

// NotifyRefreshReplay reports a refresh token that was presented but no
// longer matches the stored reference. Delivery is asynchronous; the calling
// request never waits on the webhook.
func (s *SecurityAlertService) NotifyRefreshReplay(ctx context.Context, userID int64, reason string) {
	s.notify(ctx, map[string]interface{}{
		"event":       "refresh_token_replay",
		"user_id":     userID,
		"reason":      reason,
		"detected_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *SecurityAlertService) notify(ctx context.Context, data map[string]interface{}) {
	// Delivery outlives the originating request.
	ctx = context.WithoutCancel(ctx)

	go func() {
		if s.webhookURL == "" {
			return
		}

		payload, err := json.Marshal(data)
		if err != nil {
			s.log.Errorw("failed to marshal webhook payload", "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
		if err != nil {
			s.log.Errorw("failed to create webhook request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Errorw("failed to send webhook", "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= defaultHTTPStatusThreshold {
			s.log.Warnw("webhook returned non-2xx status", "status", resp.StatusCode)
		}
	}()
}
