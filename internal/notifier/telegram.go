package notifier

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

	"go.uber.org/zap"

	"QuantSentinel/internal/model"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramNotifier talks to one chat through the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	BaseURL  string
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// NewTelegramNotifier returns a notifier for chatID, optionally routed
// through proxyURL.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *zap.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		ChatID:     chatID,
		Client:     &http.Client{Timeout: 30 * time.Second, Transport: transport},
		BaseURL:    defaultTelegramURL,
		Backoff:    time.Second,
		MaxRetries: 3,
		Logger:     logger,
	}
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.BaseURL, "/"), t.BotToken, method)
}

// call performs one Bot API request and returns its result field. A nil body
// sends a GET.
func (t *TelegramNotifier) call(ctx context.Context, client *http.Client, method string, query url.Values, body any) (json.RawMessage, error) {
	u := t.endpoint(method)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	httpMethod, reader := http.MethodGet, io.Reader(nil)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", method, err)
		}
		httpMethod, reader = http.MethodPost, bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !env.OK {
		return nil, fmt.Errorf("telegram %s: %s", method, env.Description)
	}
	return env.Result, nil
}

// Send posts an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	_, err := t.call(ctx, t.Client, "sendMessage", nil, sendMessageRequest{
		ChatID:    t.ChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

// SendWithRetry retries Send up to maxRetries times, doubling the delay
// between attempts.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	delay := t.Backoff
	var err error
	for attempt := 0; ; attempt++ {
		if err = t.Send(ctx, text); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		t.logger().Warn("telegram send failed, retrying",
			zap.Int("attempt", attempt+1), zap.Int("attempts", maxRetries+1),
			zap.Duration("backoff", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, err)
}

// NotifySignal sends a signal alert to the chat.
func (t *TelegramNotifier) NotifySignal(ctx context.Context, symbol string, sig model.Signal, row model.IndicatorRow) error {
	return t.SendWithRetry(ctx, FormatSignalAlert(symbol, sig, row), t.MaxRetries)
}

func (t *TelegramNotifier) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}
