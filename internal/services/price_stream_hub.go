package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// PriceChannel is the Redis pub/sub channel sync publishes quote updates on.
const PriceChannel = "bluewhale:prices"

// PriceUpdate is the payload pushed to SSE clients after a quote is stored
type PriceUpdate struct {
	Ticker             string    `json:"ticker"`
	LastPrice          float64   `json:"lastPrice"`
	PriceChange        float64   `json:"priceChange"`
	PriceChangePercent float64   `json:"priceChangePercent"`
	Volume             int64     `json:"volume"`
	MarketCap          float64   `json:"marketCap"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// PricePublisher announces stored quotes
type PricePublisher interface {
	PublishPrice(ctx context.Context, update PriceUpdate) error
}

// RedisPricePublisher publishes price updates on PriceChannel
type RedisPricePublisher struct {
	Redis *redis.Client
}

func (p RedisPricePublisher) PublishPrice(ctx context.Context, update PriceUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, PriceChannel, payload).Err()
}

// PriceStreamHub fans one Redis subscription out to many SSE clients.
type PriceStreamHub struct {
	redis       *redis.Client
	channelName string

	ready     chan struct{}
	readyOnce sync.Once

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewPriceStreamHub starts the hub. It stops when ctx is cancelled.
func NewPriceStreamHub(ctx context.Context, rdb *redis.Client, channel string) *PriceStreamHub {
	hub := &PriceStreamHub{
		redis:       rdb,
		channelName: channel,
		ready:       make(chan struct{}),
		subscribers: make(map[chan []byte]struct{}),
	}

	go hub.run(ctx)

	return hub
}

// Ready is closed once the first Redis subscription is confirmed.
func (h *PriceStreamHub) Ready() <-chan struct{} {
	return h.ready
}

func (h *PriceStreamHub) run(ctx context.Context) {
	for {
		pubsub := h.redis.Subscribe(ctx, h.channelName)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Warn("[PriceStream] subscribe to %s failed: %v", h.channelName, err)
		} else {
			h.readyOnce.Do(func() { close(h.ready) })
			h.consume(ctx, pubsub.Channel(redis.WithChannelSize(1024)))
			_ = pubsub.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (h *PriceStreamHub) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *PriceStreamHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- payload:
		default:
			// slow subscriber: drop its oldest message
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- payload:
			default:
			}
		}
	}
}

// Subscribe registers a listener and returns its channel plus a cleanup function.
func (h *PriceStreamHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}
