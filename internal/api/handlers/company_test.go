package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPrices(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := services.NewPriceStreamHub(hubCtx, redisClient, services.PriceChannel)
	select {
	case <-hub.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("hub never subscribed")
	}

	handler := NewCompanyHandler(nil, hub)
	app := fiber.New()
	app.Get("/api/v1/companies/stream", handler.StreamPrices)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/companies/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", first)

	publisher := services.RedisPricePublisher{Redis: redisClient}
	update := services.PriceUpdate{Ticker: "APN", LastPrice: 156.50, PriceChange: 2.30, PriceChangePercent: 1.49}
	require.NoError(t, publisher.PublishPrice(context.Background(), update))

	lines := make(chan string)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for SSE data")
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before data arrived")
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var got services.PriceUpdate
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &got))
			assert.Equal(t, "APN", got.Ticker)
			assert.Equal(t, 156.50, got.LastPrice)
			return
		}
	}
}
