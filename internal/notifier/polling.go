package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CommandHandler answers one chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type chatUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// PollInterval is how long polling waits after a failed request.
var PollInterval = 5 * time.Second

// longPollTimeout is the server-side wait of getUpdates.
const longPollTimeout = 30 * time.Second

// StartPolling long-polls getUpdates and passes every text message to
// handler. It blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	log := t.logger()
	// Must outlive the server-side wait.
	client := &http.Client{Timeout: longPollTimeout + 5*time.Second, Transport: t.Client.Transport}
	offset := 0

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("telegram getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(PollInterval):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			text := strings.TrimSpace(u.Message.Text)
			if text == "" {
				continue
			}
			log.Info("command received", zap.String("command", text))
			if reply := handler(ctx, text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					log.Error("send reply", zap.String("command", text), zap.Error(err))
				}
			}
		}
	}
	log.Info("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]chatUpdate, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("timeout", strconv.Itoa(int(longPollTimeout.Seconds())))

	raw, err := t.call(ctx, client, "getUpdates", q, nil)
	if err != nil {
		return nil, err
	}
	var updates []chatUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}
