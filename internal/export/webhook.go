package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

const (
	DefaultWebhookInterval = 5 * time.Second
	DefaultWebhookBackoff  = 2 * time.Minute
	DefaultWebhookRetries  = 3
	defaultWebhookSource   = "postgresql_export"
)

var ErrRateLimited = eris.New("export: webhook rate limited")

// WebhookPayload is the JSON body posted for one fact.
type WebhookPayload struct {
	MemoryContent string  `json:"memoryContent"`
	MemoryType    string  `json:"memoryType"`
	Importance    int     `json:"importance"`
	Confidence    float64 `json:"confidence"`
	SupportCount  int     `json:"supportCount"`
	Status        string  `json:"status"`
	IsProtected   string  `json:"isProtected"`
	Source        string  `json:"source"`
}

func NewWebhookPayload(f model.Fact) WebhookPayload {
	p := WebhookPayload{
		MemoryContent: f.Content,
		MemoryType:    strings.ToLower(f.Type),
		Importance:    f.Importance,
		Confidence:    float64(f.Confidence),
		SupportCount:  f.SupportCount,
		Status:        strings.ToLower(string(f.Status)),
		IsProtected:   "no",
		Source:        f.Source,
	}
	if p.MemoryType == "" {
		p.MemoryType = "fact"
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if f.IsProtected {
		p.IsProtected = "yes"
	}
	if p.Source == "" {
		p.Source = defaultWebhookSource
	}
	return p
}

// WebhookReport counts the outcome of one push.
type WebhookReport struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// WebhookSender posts facts one at a time, spacing requests by Interval and
// waiting Backoff before retrying a 429.
type WebhookSender struct {
	URL     string
	Client  *http.Client
	Retries int
	Backoff time.Duration
	Logger  *zap.Logger
	limiter *rate.Limiter
}

func NewWebhookSender(url string, interval, backoff time.Duration) *WebhookSender {
	if interval <= 0 {
		interval = DefaultWebhookInterval
	}
	if backoff <= 0 {
		backoff = DefaultWebhookBackoff
	}
	return &WebhookSender{
		URL:     url,
		Client:  &http.Client{Timeout: 15 * time.Second},
		Retries: DefaultWebhookRetries,
		Backoff: backoff,
		Logger:  zap.L(),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Send pushes every fact. A fact that cannot be delivered is counted and
// logged; only a cancelled context stops the push early.
func (s *WebhookSender) Send(ctx context.Context, facts []model.Fact) (WebhookReport, error) {
	report := WebhookReport{Total: len(facts)}
	for _, f := range facts {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, eris.Wrap(err, "export: webhook push interrupted")
		}
		err := s.post(ctx, NewWebhookPayload(f))
		if err != nil {
			if ctx.Err() != nil {
				return report, eris.Wrap(ctx.Err(), "export: webhook push interrupted")
			}
			report.Failed++
			s.Logger.Warn("webhook delivery failed", zap.String("fact_id", f.ID), zap.Error(err))
			continue
		}
		report.Sent++
		s.Logger.Debug("webhook delivered",
			zap.String("fact_id", f.ID),
			zap.Int("sent", report.Sent),
			zap.Int("total", report.Total))
	}
	return report, nil
}

func (s *WebhookSender) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "export: encode webhook payload")
	}

	for attempt := 0; ; attempt++ {
		err := s.postOnce(ctx, body)
		if !eris.Is(err, ErrRateLimited) || attempt >= s.Retries {
			return err
		}
		s.Logger.Info("webhook rate limited, backing off",
			zap.Duration("backoff", s.Backoff),
			zap.Int("retry", attempt+1),
			zap.Int("max_retries", s.Retries))

		timer := time.NewTimer(s.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *WebhookSender) postOnce(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "export: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return eris.Wrap(err, "export: webhook request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return eris.Errorf("export: webhook returned %s", resp.Status)
	}
	return nil
}

// Push sends the profile's active facts to the webhook, most important first.
func Push(ctx context.Context, sender *WebhookSender, repo Lister, profileID string) (WebhookReport, error) {
	facts, err := ActiveFacts(ctx, repo, profileID)
	if err != nil {
		return WebhookReport{}, err
	}
	return sender.Send(ctx, facts)
}
