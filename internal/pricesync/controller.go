package pricesync

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapEngine/internal/metrics"
	"swapEngine/internal/model"
)

// State is the controller's lifecycle for the active pair.
type State int

const (
	Idle State = iota
	Loading
	Live
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

// Fetcher is the feed surface the controller polls.
type Fetcher interface {
	FetchCandles(ctx context.Context, poolAddress, timeframe string, aggregate, limit int) ([]model.Candle, error)
}

// SeriesSink receives incremental series changes. Reset is used only for the
// initial load of a pair; while live, only Append and Update are issued so
// the presentation layer never sees a discontinuity.
type SeriesSink interface {
	Reset(candles []model.Candle)
	Append(candle model.Candle)
	Update(candle model.Candle)
}

// Options tunes the polling cadence.
type Options struct {
	Timeframe     string
	Aggregate     int
	Limit         int
	SteadyPoll    time.Duration
	BoostPoll     time.Duration
	BoostDuration time.Duration
}

func (o *Options) applyDefaults() {
	if o.Timeframe == "" {
		o.Timeframe = "minute"
	}
	if o.Aggregate <= 0 {
		o.Aggregate = 1
	}
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.SteadyPoll <= 0 {
		o.SteadyPoll = 5 * time.Second
	}
	if o.BoostPoll <= 0 {
		o.BoostPoll = 2 * time.Second
	}
	if o.BoostDuration <= 0 {
		o.BoostDuration = 30 * time.Second
	}
}

// Controller polls the price feed for one pair and reconciles it against a
// short-lived optimistic local update applied after a confirmed swap.
type Controller struct {
	fetcher Fetcher
	sink    SeriesSink
	pool    string
	opts    Options
	logger  *zap.Logger

	mu         sync.Mutex
	state      State
	series     []model.Candle
	boostUntil time.Time
	lastErr    error
}

// NewController builds a Controller for one pool's feed.
func NewController(fetcher Fetcher, sink SeriesSink, poolAddress string, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Controller{
		fetcher: fetcher,
		sink:    sink,
		pool:    poolAddress,
		opts:    opts,
		logger:  logger,
		state:   Idle,
	}
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent fetch error, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Series returns a copy of the in-memory candle series.
func (c *Controller) Series() []model.Candle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Candle, len(c.series))
	copy(out, c.series)
	return out
}

// Load performs the initial full fetch for the pair and transitions to Live
// on success. On failure the controller returns to Idle and stays retryable.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = Loading
	c.mu.Unlock()

	candles, err := c.fetcher.FetchCandles(ctx, c.pool, c.opts.Timeframe, c.opts.Aggregate, c.opts.Limit)
	if err != nil {
		c.mu.Lock()
		c.state = Idle
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("initial candle load failed", zap.String("pool", c.pool), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.state = Live
	c.lastErr = nil
	c.series = append(c.series[:0], candles...)
	c.mu.Unlock()

	c.sink.Reset(candles)
	c.logger.Info("price sync live", zap.String("pool", c.pool), zap.Int("candles", len(candles)))
	return nil
}

// Run polls the feed until ctx is cancelled. It calls Load first if the
// controller is not yet live.
func (c *Controller) Run(ctx context.Context) error {
	if c.State() != Live {
		if err := c.Load(ctx); err != nil {
			return err
		}
	}

	for {
		timer := time.NewTimer(c.pollInterval(time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("feed refresh failed", zap.String("pool", c.pool), zap.Error(err))
		}
	}
}

// Refresh fetches the latest snapshot and applies only changed or newly
// appended candles, never a full replace.
func (c *Controller) Refresh(ctx context.Context) error {
	candles, err := c.fetcher.FetchCandles(ctx, c.pool, c.opts.Timeframe, c.opts.Aggregate, c.opts.Limit)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	appended, updated := c.merge(candles)
	if appended > 0 || updated > 0 {
		c.logger.Debug("series merged",
			zap.String("pool", c.pool),
			zap.Int("appended", appended),
			zap.Int("updated", updated))
	}

	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// merge reconciles a fetched snapshot against the in-memory series: candles
// sharing a timestamp with a stored one replace it only when their values
// changed; newer candles are appended. Older history is left untouched.
func (c *Controller) merge(latest []model.Candle) (appended, updated int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make(map[int64]int, len(c.series))
	for i, candle := range c.series {
		index[candle.Timestamp] = i
	}

	var lastTS int64
	if len(c.series) > 0 {
		lastTS = c.series[len(c.series)-1].Timestamp
	}

	for _, candle := range latest {
		if i, ok := index[candle.Timestamp]; ok {
			if !c.series[i].Equal(candle) {
				c.series[i] = candle
				c.sink.Update(candle)
				metrics.CandlesApplied.WithLabelValues("update").Inc()
				updated++
			}
			continue
		}
		if candle.Timestamp > lastTS {
			c.series = append(c.series, candle)
			lastTS = candle.Timestamp
			c.sink.Append(candle)
			metrics.CandlesApplied.WithLabelValues("append").Inc()
			appended++
		}
	}
	return appended, updated
}

// NotifySwapConfirmed applies one optimistic synthetic candle at the last
// known price and accelerates polling for the boost window. The synthetic
// point is explicitly superseded by the next real fetch.
func (c *Controller) NotifySwapConfirmed(price decimal.Decimal, now time.Time) {
	c.mu.Lock()
	c.boostUntil = now.Add(c.opts.BoostDuration)
	if c.state != Live {
		c.mu.Unlock()
		return
	}

	bucket := int64(c.opts.Aggregate) * 60
	ts := now.Unix() - now.Unix()%bucket

	synthetic := model.Candle{
		Timestamp: ts,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
	}

	if len(c.series) > 0 && c.series[len(c.series)-1].Timestamp == ts {
		last := c.series[len(c.series)-1]
		synthetic.Open = last.Open
		if last.High.GreaterThan(price) {
			synthetic.High = last.High
		}
		if last.Low.LessThan(price) {
			synthetic.Low = last.Low
		}
		synthetic.Volume = last.Volume
		c.series[len(c.series)-1] = synthetic
		c.mu.Unlock()
		c.sink.Update(synthetic)
		metrics.CandlesApplied.WithLabelValues("optimistic").Inc()
		return
	}

	c.series = append(c.series, synthetic)
	c.mu.Unlock()
	c.sink.Append(synthetic)
	metrics.CandlesApplied.WithLabelValues("optimistic").Inc()
}

func (c *Controller) pollInterval(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.boostUntil) {
		return c.opts.BoostPoll
	}
	return c.opts.SteadyPoll
}
