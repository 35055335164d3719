package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sostawatch/sostawatch/agent/internal/config"
	"github.com/sostawatch/sostawatch/pkg/types"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Notifier formats change summaries and posts them to every configured
// channel.
type Notifier struct {
	channels   []config.ChannelConfig
	maxEntries int
	loc        *time.Location
	client     *http.Client
}

// New creates a Notifier. Timestamps are rendered in loc.
func New(cfg config.NotifyConfig, loc *time.Location) *Notifier {
	return NewWithClient(cfg, loc, &http.Client{Timeout: defaultTimeout})
}

// NewWithClient creates a Notifier that sends through client.
func NewWithClient(cfg config.NotifyConfig, loc *time.Location, client *http.Client) *Notifier {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = config.DefaultMaxEntries
	}
	return &Notifier{
		channels:   cfg.Channels,
		maxEntries: maxEntries,
		loc:        loc,
		client:     client,
	}
}

// Format returns the HTML message body Telegram receives for events detected
// at ts.
func (n *Notifier) Format(events []types.ChangeEvent, ts time.Time) string {
	return n.buildMessage(events, ts).html()
}

// Notify sends one message summarizing events to every channel. It is a no-op
// when events is empty. Failures from all channels are joined; each is a
// *DeliveryError.
func (n *Notifier) Notify(ctx context.Context, events []types.ChangeEvent, ts time.Time) error {
	if len(events) == 0 {
		return nil
	}
	if len(n.channels) == 0 {
		slog.Warn("notify: no channels configured, changes not delivered", "changes", len(events))
		return nil
	}

	msg := n.buildMessage(events, ts)

	var errs []error
	for _, ch := range n.channels {
		var err error
		switch ch.Type {
		case "telegram":
			err = n.sendTelegram(ctx, ch, msg)
		case "slack":
			err = n.sendSlack(ctx, ch, msg)
		case "http":
			err = n.sendHTTP(ctx, ch, msg, events)
		default:
			err = &DeliveryError{Channel: ch.Type, Err: fmt.Errorf("unknown channel type %q", ch.Type)}
		}

		if err != nil {
			slog.Error("notify: delivery failed", "channel", ch.Type, "err", err)
			errs = append(errs, err)
			continue
		}
		slog.Info("notify: delivered", "channel", ch.Type, "entries", len(msg.entries), "changes", len(events))
	}
	return errors.Join(errs...)
}

// telegramRequest is the sendMessage payload.
type telegramRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (n *Notifier) sendTelegram(ctx context.Context, ch config.ChannelConfig, msg message) error {
	token, chatID := ch.Token(), ch.ChatID()
	if token == "" || chatID == "" {
		return &DeliveryError{Channel: "telegram", Err: fmt.Errorf("%w: set %s and %s",
			ErrMissingCredentials, ch.TokenEnv, ch.ChatIDEnv)}
	}

	base := strings.TrimRight(ch.APIBase, "/")
	if base == "" {
		base = config.DefaultTelegramAPI
	}
	endpoint := base + "/bot" + token + "/sendMessage"

	body, err := json.Marshal(telegramRequest{
		ChatID:                chatID,
		Text:                  msg.html(),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return &DeliveryError{Channel: "telegram", Err: fmt.Errorf("marshal payload: %w", err)}
	}

	return n.post(ctx, "telegram", endpoint, body, token)
}

func (n *Notifier) sendSlack(ctx context.Context, ch config.ChannelConfig, msg message) error {
	hook := ch.URL()
	if hook == "" {
		return &DeliveryError{Channel: "slack", Err: fmt.Errorf("%w: set %s", ErrMissingCredentials, ch.URLEnv)}
	}
	body, err := json.Marshal(map[string]interface{}{
		"text":         msg.mrkdwn(),
		"unfurl_links": false,
		"unfurl_media": false,
	})
	if err != nil {
		return &DeliveryError{Channel: "slack", Err: fmt.Errorf("marshal payload: %w", err)}
	}
	return n.post(ctx, "slack", hook, body, hook)
}

// httpChange is one entry of the generic JSON payload.
type httpChange struct {
	Source       string `json:"source"`
	URL          string `json:"url"`
	PreviousHash string `json:"previous_hash"`
	CurrentHash  string `json:"current_hash"`
}

func (n *Notifier) sendHTTP(ctx context.Context, ch config.ChannelConfig, msg message, events []types.ChangeEvent) error {
	target := ch.URL()
	if target == "" {
		return &DeliveryError{Channel: "http", Err: fmt.Errorf("%w: set %s", ErrMissingCredentials, ch.URLEnv)}
	}

	changes := make([]httpChange, 0, len(msg.entries))
	for _, e := range msg.entries {
		changes = append(changes, httpChange(e))
	}
	body, err := json.Marshal(map[string]interface{}{
		"detected_at":   msg.detectedAt.Format(time.RFC3339),
		"total_changes": len(events),
		"changes":       changes,
		"text":          msg.html(),
	})
	if err != nil {
		return &DeliveryError{Channel: "http", Err: fmt.Errorf("marshal payload: %w", err)}
	}
	return n.post(ctx, "http", target, body, target)
}

// post sends body to endpoint. secret, when set, is the part of endpoint that
// carries credentials (the bot token, or a whole webhook URL) and is scrubbed
// from any error before it is wrapped.
func (n *Notifier) post(ctx context.Context, channel, endpoint string, body []byte, secret string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Channel: channel, Err: fmt.Errorf("build request: %w", redact(err, secret))}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &DeliveryError{Channel: channel, Err: fmt.Errorf("http post: %w", redact(err, secret))}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DeliveryError{
			Channel: channel,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(snippet)),
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// redact removes secret from the request URL embedded in transport and
// parse errors. It must run before the error is formatted.
func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, secret, "<redacted>")
	}
	return err
}
