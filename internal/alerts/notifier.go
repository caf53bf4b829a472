package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// notifyTimeout bounds each outbound webhook call.
const notifyTimeout = 10 * time.Second

// webhookPayload is the wire shape delivered to notification sinks.
type webhookPayload struct {
	Symbol      string     `json:"symbol,omitempty"`
	Condition   Condition  `json:"condition"`
	Value       float64    `json:"value"`
	Type        Type       `json:"type"`
	TriggeredAt *time.Time `json:"triggeredAt"`
}

// Notifier delivers fired alerts to configured webhook URLs. Delivery is
// best effort: a transport error or non-2xx response is logged and reported
// as a false return, never as an error, and is never retried within the
// cycle. The alert has already been persisted as triggered regardless of
// the outcome here.
type Notifier struct {
	httpClient  *http.Client
	webhookURLs []string
	enabled     bool
	logger      zerolog.Logger
}

// NewNotifier creates a webhook notifier. With no URLs configured every
// send is a no-op reporting success.
func NewNotifier(webhookURLs []string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: notifyTimeout,
		},
		webhookURLs: webhookURLs,
		enabled:     len(webhookURLs) > 0,
		logger:      logger.With().Str("component", "notifier").Logger(),
	}
}

// Send delivers one fired alert to all configured webhooks and reports
// whether every delivery succeeded.
func (n *Notifier) Send(ctx context.Context, alert *Alert) bool {
	if !n.enabled {
		return true
	}

	ok := true
	for _, webhookURL := range n.webhookURLs {
		if err := n.post(ctx, webhookURL, alert); err != nil {
			n.logger.Error().
				Err(err).
				Str("webhook", webhookURL).
				Str("alert_id", alert.ID).
				Str("symbol", alert.Symbol).
				Msg("webhook delivery failed")
			ok = false
			continue
		}

		n.logger.Debug().
			Str("webhook", webhookURL).
			Str("alert_id", alert.ID).
			Str("symbol", alert.Symbol).
			Msg("webhook delivered")
	}

	return ok
}

func (n *Notifier) post(ctx context.Context, webhookURL string, alert *Alert) error {
	body, err := json.Marshal(webhookPayload{
		Symbol:      alert.Symbol,
		Condition:   alert.Condition,
		Value:       alert.Threshold,
		Type:        alert.Type,
		TriggeredAt: alert.TriggeredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
