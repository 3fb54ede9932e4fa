package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"QuantSentinel/internal/model"
	"QuantSentinel/mocks"
)

var (
	sigTime = time.Date(2024, 4, 2, 14, 0, 0, 0, time.UTC)
	buy     = model.Signal{Time: sigTime, Direction: model.DirectionBuy, Price: 2931.456}
	buyRow  = model.IndicatorRow{
		OHLCV:    model.OHLCV{Time: sigTime, Close: 2931.456},
		MAShort:  optional.Some(2930.1),
		MALong:   optional.Some(2925.0),
		RSI:      optional.Some(61.234),
		MACD:     1.5,
		MACDHist: 0.25,
	}
)

func newTestTelegram(t *testing.T, srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", zaptest.NewLogger(t))
	n.BaseURL = srv.URL
	n.Client = srv.Client()
	n.Backoff = time.Millisecond
	return n
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := newTestTelegram(t, srv)
	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := newTestTelegram(t, srv)
	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(-10)
	err := n.SendWithRetry(context.Background(), "hi", 1)
	assert.ErrorContains(t, err, "all 2 retries exhausted")
	assert.ErrorContains(t, err, "status 429")
}

func TestTelegramNotifySignal(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		text = payload["text"]
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := newTestTelegram(t, srv)
	require.NoError(t, n.NotifySignal(context.Background(), "RELIANCE.NS", buy, buyRow))
	assert.Contains(t, text, "BUY RELIANCE.NS</b> @ 2931.46")
	assert.Contains(t, text, "RSI: 61.23")
}

func TestTelegramPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		replies []string
		served  atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served.Swap(true) {
				assert.Equal(t, "8", r.URL.Query().Get("offset"))
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":6,"message":{"text":"  /signal TCS.NS "}},
				{"update_id":7}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			mu.Lock()
			replies = append(replies, payload["text"])
			mu.Unlock()
			cancel()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := newTestTelegram(t, srv)
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			return "echo " + cmd
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"echo /signal TCS.NS"}, replies)
}

func TestMultiJoinsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	ok := mocks.NewMockSignalNotifier(ctrl)
	bad := mocks.NewMockSignalNotifier(ctrl)
	errBus := errors.New("bus down")

	ok.EXPECT().NotifySignal(ctx, "TCS.NS", buy, buyRow).Return(nil)
	bad.EXPECT().NotifySignal(ctx, "TCS.NS", buy, buyRow).Return(errBus)

	err := Multi{ok, bad}.NotifySignal(ctx, "TCS.NS", buy, buyRow)
	assert.ErrorIs(t, err, errBus)

	assert.NoError(t, Multi{}.NotifySignal(ctx, "TCS.NS", buy, buyRow))
}

func TestEncodeSignal(t *testing.T) {
	payload, err := encodeSignal("TCS.NS", buy, buyRow, sigTime)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "TCS.NS", doc["symbol"])
	sig := doc["signal"].(map[string]any)
	assert.Equal(t, "BUY", sig["direction"])
	assert.Equal(t, 2931.456, sig["price"])
	row := doc["row"].(map[string]any)
	assert.Equal(t, 0.25, row["macd_hist"])
	assert.Equal(t, "signal:latest:TCS.NS", LatestKey("TCS.NS"))
}

func TestNewRedisPublisherUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisPublisher(ctx, "127.0.0.1:1", "", "signals")
	assert.ErrorContains(t, err, "redis ping")
}
