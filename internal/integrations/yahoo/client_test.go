package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bluewhale-terminal/backend/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart":{"result":[{
  "meta":{"symbol":"APN.JO","regularMarketPrice":156.5,"chartPreviousClose":150.0,"regularMarketVolume":1200000},
  "timestamp":[1725235200,1725321600,1725408000],
  "indicators":{"quote":[{
    "open":[150.0,null,155.0],
    "high":[152.0,null,157.0],
    "low":[149.0,null,154.0],
    "close":[151.0,null,156.5],
    "volume":[1000,null,1200]
  }]}
}],"error":null}}`

func newServer(t *testing.T, body string, gotPath *string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotPath != nil {
			*gotPath = r.URL.Path + "?" + r.URL.RawQuery
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, ".JO", httpclient.New(httpclient.WithDelay(0)))
}

func TestGetQuote(t *testing.T) {
	var path string
	c := newServer(t, chartJSON, &path)

	q, err := c.GetQuote(context.Background(), "apn")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Contains(t, path, "/v8/finance/chart/APN.JO")
	assert.Contains(t, path, "range=1d")

	assert.Equal(t, 156.5, *q.Price)
	assert.InDelta(t, 6.5, *q.Change, 1e-9)
	assert.InDelta(t, 4.3333, *q.ChangePercent, 1e-3)
	assert.Equal(t, 1200000.0, *q.Volume)
}

func TestGetHistorySkipsMissingCloses(t *testing.T) {
	c := newServer(t, chartJSON, nil)

	bars, err := c.GetHistory(context.Background(), "APN")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC), bars[0].Date, "most recent first")
	assert.Equal(t, 156.5, bars[0].Close)
	assert.Equal(t, int64(1200), bars[0].Volume)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), bars[1].Date)
}

func TestUnknownSymbol(t *testing.T) {
	c := newServer(t, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, nil)

	q, err := c.GetQuote(context.Background(), "ZZZ")
	require.Error(t, err)
	assert.Nil(t, q)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestEmptyResult(t *testing.T) {
	c := newServer(t, `{"chart":{"result":[],"error":null}}`, nil)

	bars, err := c.GetHistory(context.Background(), "APN")
	require.NoError(t, err)
	assert.Empty(t, bars)
}
