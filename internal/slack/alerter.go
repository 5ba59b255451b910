package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tnikhil-24/ElderCare/internal/dispatch"
)

// alertInterval bounds how often a caregiver channel is paged.
const alertInterval = 30 * time.Second

// Alerter posts emergency alerts to a caregiver Slack channel via
// chat.postMessage.
type Alerter struct {
	token   string
	channel string
	client  *http.Client
	apiURL  string

	mu       sync.Mutex
	lastSent time.Time
}

// NewAlerter creates a new Slack alerter.
func NewAlerter(token, channel string) *Alerter {
	return &Alerter{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  "https://slack.com/api/chat.postMessage",
	}
}

// NotifyCaregivers sends a Block Kit message for an emergency. Repeated
// emergencies within alertInterval of a successful post are dropped; the
// first one already paged the channel. A failed post does not start the
// interval.
func (a *Alerter) NotifyCaregivers(ctx context.Context, alert dispatch.Alert) error {
	a.mu.Lock()
	suppressed := time.Since(a.lastSent) < alertInterval
	a.mu.Unlock()
	if suppressed {
		slog.Info("emergency alert suppressed by rate limit", "channel", a.channel)
		return nil
	}

	name := alert.UserName
	if name == "" {
		name = "The user"
	}
	said := alert.Text
	if said == "" {
		said = "(no words captured)"
	}
	at := alert.At
	if at.IsZero() {
		at = time.Now()
	}

	var contacts []string
	for _, c := range alert.Contacts {
		line := fmt.Sprintf("%s: %s", c.Name, c.Phone)
		if c.Relation != "" {
			line = fmt.Sprintf("%s (%s): %s", c.Name, c.Relation, c.Phone)
		}
		contacts = append(contacts, line)
	}
	if len(contacts) == 0 {
		contacts = append(contacts, "none on file")
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": "Emergency Assistance Requested",
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Who:*\n%s", name)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Said:*\n%s", said)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Contacts:*\n%s", strings.Join(contacts, "\n"))},
			},
		},
		{
			"type": "context",
			"elements": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("Raised at %s", at.UTC().Format(time.RFC3339))},
			},
		},
	}

	body, err := json.Marshal(map[string]any{
		"channel": a.channel,
		"blocks":  blocks,
		"text":    fmt.Sprintf("Emergency: %s asked for help: %q", name, said),
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}

	a.mu.Lock()
	a.lastSent = time.Now()
	a.mu.Unlock()
	slog.Info("emergency alert posted to Slack", "channel", a.channel)
	return nil
}
