package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"QuantSentinel/internal/model"
)

// SignalMessage is the JSON document published for every signal.
type SignalMessage struct {
	Symbol    string             `json:"symbol"`
	Signal    model.Signal       `json:"signal"`
	Row       model.IndicatorRow `json:"row"`
	Published time.Time          `json:"published"`
}

// RedisPublisher publishes signals on a pub/sub channel and keeps the latest
// signal per symbol under signal:latest:<symbol>.
type RedisPublisher struct {
	client  *goredis.Client
	channel string
}

// NewRedisPublisher connects to addr and pings the server.
func NewRedisPublisher(ctx context.Context, addr, password, channel string) (*RedisPublisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// LatestKey is the key holding the latest signal of symbol.
func LatestKey(symbol string) string {
	return "signal:latest:" + symbol
}

func encodeSignal(symbol string, sig model.Signal, row model.IndicatorRow, now time.Time) ([]byte, error) {
	return json.Marshal(SignalMessage{Symbol: symbol, Signal: sig, Row: row, Published: now})
}

func (p *RedisPublisher) NotifySignal(ctx context.Context, symbol string, sig model.Signal, row model.IndicatorRow) error {
	payload, err := encodeSignal(symbol, sig, row, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.Set(ctx, LatestKey(symbol), payload, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
