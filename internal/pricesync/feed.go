package pricesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapEngine/internal/metrics"
	"swapEngine/internal/model"
)

// FeedClient queries the external OHLCV feed. The feed returns candles in
// reverse-chronological order; the client reverses them before returning.
type FeedClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewFeedClient builds a FeedClient for the feed base URL.
func NewFeedClient(baseURL string, logger *zap.Logger) *FeedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		logger:     logger,
	}
}

type ohlcvResponse struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]json.Number `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}

// FetchCandles fetches up to limit candles for a pool, bucketed by timeframe
// (e.g. "minute") and aggregation factor, oldest first.
func (c *FeedClient) FetchCandles(ctx context.Context, poolAddress, timeframe string, aggregate, limit int) ([]model.Candle, error) {
	endpoint := fmt.Sprintf("%s/pools/%s/ohlcv/%s", c.baseURL, url.PathEscape(poolAddress), url.PathEscape(timeframe))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	query := req.URL.Query()
	query.Set("aggregate", fmt.Sprintf("%d", aggregate))
	query.Set("limit", fmt.Sprintf("%d", limit))
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch ohlcv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var payload ohlcvResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode ohlcv: %w", err)
	}

	candles, err := parseCandles(payload.Data.Attributes.OHLCVList)
	if err != nil {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.FeedFetches.WithLabelValues("ok").Inc()
	return candles, nil
}

// parseCandles converts raw [timestamp, o, h, l, c, v] rows and reverses the
// feed's reverse-chronological order.
func parseCandles(rows [][]json.Number) ([]model.Candle, error) {
	candles := make([]model.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("ohlcv row has %d fields", len(row))
		}

		ts, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}

		values := make([]decimal.Decimal, 5)
		for j := 1; j < 6; j++ {
			values[j-1], err = decimal.NewFromString(row[j].String())
			if err != nil {
				return nil, fmt.Errorf("parse ohlcv field %d: %w", j, err)
			}
		}

		candles = append(candles, model.Candle{
			Timestamp: ts,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}
	return candles, nil
}
