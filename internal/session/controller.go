package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapEngine/internal/approval"
	"swapEngine/internal/batch"
	"swapEngine/internal/metrics"
	"swapEngine/internal/model"
	"swapEngine/internal/pool"
	"swapEngine/internal/quote"
	"swapEngine/internal/router"
)

// Submitter signs and sends planned calls. Implementations live with the
// wallet layer; a rejection surfaces as model.ErrUserRejected.
type Submitter interface {
	Address() common.Address
	Submit(ctx context.Context, call model.PlannedCall) (common.Hash, error)
	SubmitBatch(ctx context.Context, calls []model.PlannedCall) (common.Hash, error)
}

// SwapNotifier receives confirmed swap notifications. The price sync
// controller implements it to boost polling and seed an optimistic candle.
type SwapNotifier interface {
	NotifySwapConfirmed(price decimal.Decimal, now time.Time)
}

// Options tunes the controller.
type Options struct {
	SlippageBps   uint32
	SubmitTimeout time.Duration
	ProxyGrantTTL time.Duration
}

func (o *Options) applyDefaults() {
	if o.SlippageBps == 0 {
		o.SlippageBps = 50
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 60 * time.Second
	}
	if o.ProxyGrantTTL <= 0 {
		o.ProxyGrantTTL = 30 * 24 * time.Hour
	}
}

// Controller is the swap subsystem's produced interface to the surrounding
// UI: debounced quoting, approval state, submission, and the last error. All
// state mutations run on the caller's single control flow; locks only guard
// incidental readers.
type Controller struct {
	resolver  *pool.Resolver
	engine    *quote.Engine
	debouncer *quote.Debouncer
	reader    *approval.Reader
	planner   *batch.Planner
	submitter Submitter
	receipts  ReceiptPoller
	opts      Options
	logger    *zap.Logger

	mu            sync.Mutex
	notifier      SwapNotifier
	route         quote.Route
	pairIDs       []string
	intent        *model.TradeIntent
	currentQuote  *model.Quote
	approvalState model.ApprovalState
	lastErr       error
}

// NewController wires the subsystem components.
func NewController(
	resolver *pool.Resolver,
	engine *quote.Engine,
	debouncer *quote.Debouncer,
	reader *approval.Reader,
	planner *batch.Planner,
	submitter Submitter,
	receipts ReceiptPoller,
	opts Options,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Controller{
		resolver:      resolver,
		engine:        engine,
		debouncer:     debouncer,
		reader:        reader,
		planner:       planner,
		submitter:     submitter,
		receipts:      receipts,
		opts:          opts,
		logger:        logger,
		approvalState: model.NotRequired,
	}
}

// AttachPriceSync registers the notifier invoked after a confirmed swap.
func (c *Controller) AttachPriceSync(notifier SwapNotifier) {
	c.mu.Lock()
	c.notifier = notifier
	c.mu.Unlock()
}

// SetRoute resolves the pools for the active pair and resets all per-pair
// state: in-flight quotes are cancelled and the approval state is discarded,
// since a pair change changes which token is being checked.
func (c *Controller) SetRoute(ctx context.Context, pairIDs []string, indirect bool) error {
	if len(pairIDs) == 0 || len(pairIDs) > 2 {
		return fmt.Errorf("route must name one or two pairs, got %d", len(pairIDs))
	}

	keys := make([]model.PoolKey, 0, len(pairIDs))
	for _, pairID := range pairIDs {
		key, err := c.resolver.Resolve(ctx, pairID)
		if err != nil {
			c.setError(err)
			return err
		}
		keys = append(keys, key)
	}

	c.debouncer.Cancel()

	c.mu.Lock()
	c.pairIDs = append(c.pairIDs[:0], pairIDs...)
	c.route = quote.Route{Keys: keys, Indirect: indirect}
	c.intent = nil
	c.currentQuote = nil
	c.approvalState = model.NotRequired
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("route set", zap.Strings("pairs", pairIDs), zap.Bool("indirect", indirect))
	return nil
}

// UpdateIntent replaces the pending trade intent. It schedules a debounced
// quote (last request wins) and recomputes the approval state, since both
// depend on the input amount.
func (c *Controller) UpdateIntent(ctx context.Context, intent model.TradeIntent) {
	if intent.SlippageBps == 0 {
		intent.SlippageBps = c.opts.SlippageBps
	}

	c.mu.Lock()
	route := c.route
	c.intent = &intent
	c.mu.Unlock()

	if len(route.Keys) == 0 {
		c.setError(fmt.Errorf("no route set"))
		return
	}

	c.debouncer.Trigger(ctx, func(ctx context.Context, gen uint64) {
		q, err := c.engine.Quote(ctx, intent, route)
		if gen != c.debouncer.Latest() {
			// Superseded while in flight; discard on arrival.
			return
		}
		c.mu.Lock()
		if err != nil {
			c.lastErr = err
			c.currentQuote = nil
		} else {
			c.lastErr = nil
			c.currentQuote = &q
		}
		c.mu.Unlock()
	})

	if err := c.refreshApprovalState(ctx, intent); err != nil {
		c.setError(err)
	}
}

// CurrentQuote returns the latest applied quote, if any.
func (c *Controller) CurrentQuote() *model.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentQuote == nil {
		return nil
	}
	q := *c.currentQuote
	return &q
}

// ApprovalState returns the last derived approval state.
func (c *Controller) ApprovalState() model.ApprovalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.approvalState
}

// LastError returns the most recent error surfaced to the UI.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// refreshApprovalState re-derives the approval state from fresh allowance
// reads. Never cached across a change of amount or traded asset.
func (c *Controller) refreshApprovalState(ctx context.Context, intent model.TradeIntent) error {
	state, err := c.deriveState(ctx, intent)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.approvalState = state
	c.mu.Unlock()
	return nil
}

func (c *Controller) deriveState(ctx context.Context, intent model.TradeIntent) (model.ApprovalState, error) {
	if intent.InputAsset == model.NativeCurrency {
		return model.NotRequired, nil
	}

	owner := c.submitter.Address()
	tokenAllowance, err := c.reader.TokenAllowance(ctx, intent.InputAsset, owner)
	if err != nil {
		return model.NotRequired, fmt.Errorf("token allowance: %w", err)
	}
	proxyAllowance, err := c.reader.ProxyAllowanceFor(ctx, owner, intent.InputAsset)
	if err != nil {
		return model.NotRequired, fmt.Errorf("proxy allowance: %w", err)
	}

	return approval.DeriveState(tokenAllowance, proxyAllowance, intent.InputAmount, time.Now().Unix()), nil
}

// Submit turns the current intent and quote into one or more transactions.
// The approval state is re-derived immediately before planning; the
// batch-vs-sequential decision is made once and not revisited mid-flight.
func (c *Controller) Submit(ctx context.Context) (model.PendingSubmission, error) {
	c.mu.Lock()
	intent := c.intent
	q := c.currentQuote
	route := c.route
	c.mu.Unlock()

	if intent == nil {
		return model.PendingSubmission{}, fmt.Errorf("no trade intent")
	}
	if q == nil {
		return model.PendingSubmission{}, fmt.Errorf("no quote available")
	}

	state, err := c.deriveState(ctx, *intent)
	if err != nil {
		c.setError(err)
		return model.PendingSubmission{}, err
	}
	c.mu.Lock()
	c.approvalState = state
	c.mu.Unlock()

	call, err := router.Build(*intent, *q, route.Keys)
	if err != nil {
		c.setError(err)
		return model.PendingSubmission{}, err
	}
	swapCalldata, err := router.EncodeExecute(call)
	if err != nil {
		c.setError(err)
		return model.PendingSubmission{}, err
	}

	grantExpiry := time.Now().Add(c.opts.ProxyGrantTTL).Unix()
	plan, err := c.planner.Plan(ctx, state, *intent, swapCalldata, c.submitter.Address(), grantExpiry)
	if err != nil {
		c.setError(err)
		return model.PendingSubmission{}, err
	}

	submission, err := c.execute(ctx, plan, *intent)
	if err != nil {
		c.setError(err)
		metrics.Submissions.WithLabelValues("failed").Inc()
		return submission, err
	}

	metrics.Submissions.WithLabelValues(string(submission.Status)).Inc()
	c.notifySwapConfirmed(*intent, *q)
	return submission, nil
}

// notifySwapConfirmed reports the executed price to the attached price sync.
// The price is oriented as input per output unit for buys and output per
// input unit for sells, matching the chart's native-per-token axis.
func (c *Controller) notifySwapConfirmed(intent model.TradeIntent, q model.Quote) {
	c.mu.Lock()
	notifier := c.notifier
	c.mu.Unlock()
	if notifier == nil {
		return
	}
	price, ok := executionPrice(intent, q)
	if !ok {
		return
	}
	notifier.NotifySwapConfirmed(price, time.Now())
}

func executionPrice(intent model.TradeIntent, q model.Quote) (decimal.Decimal, bool) {
	if intent.InputAmount == nil || q.EstimatedOut == nil ||
		intent.InputAmount.Sign() <= 0 || q.EstimatedOut.Sign() <= 0 {
		return decimal.Decimal{}, false
	}
	in := decimal.NewFromBigInt(intent.InputAmount, 0)
	out := decimal.NewFromBigInt(q.EstimatedOut, 0)
	if intent.Direction == model.Buy {
		return in.Div(out), true
	}
	return out.Div(in), true
}

// execute runs a plan: one request for an atomic plan, sequential
// transactions otherwise, re-deriving the approval state between steps.
func (c *Controller) execute(ctx context.Context, plan model.BatchPlan, intent model.TradeIntent) (model.PendingSubmission, error) {
	if plan.Atomic {
		txHash, err := c.submitter.SubmitBatch(ctx, plan.Calls)
		if err != nil {
			return model.PendingSubmission{}, c.classifySubmitError(err)
		}
		return c.track(ctx, txHash, "swap batch")
	}

	for i, call := range plan.Calls {
		last := i == len(plan.Calls)-1

		if !last {
			txHash, err := c.submitter.Submit(ctx, call)
			if err != nil {
				return model.PendingSubmission{}, c.classifySubmitError(err)
			}
			if err := awaitConfirmation(ctx, c.receipts, txHash, c.opts.SubmitTimeout); err != nil {
				return model.PendingSubmission{}, err
			}
			// Approval landed; re-derive before the dependent step.
			if err := c.refreshApprovalState(ctx, intent); err != nil {
				return model.PendingSubmission{}, err
			}
			continue
		}

		txHash, err := c.submitter.Submit(ctx, call)
		if err != nil {
			return model.PendingSubmission{}, c.classifySubmitError(err)
		}
		return c.track(ctx, txHash, call.Label)
	}

	return model.PendingSubmission{}, fmt.Errorf("empty plan")
}

// track records a pending submission and resolves it by confirmation polling
// bounded by the submission timeout.
func (c *Controller) track(ctx context.Context, txHash common.Hash, label string) (model.PendingSubmission, error) {
	submission := model.PendingSubmission{
		TxID:        txHash.Hex(),
		Label:       label,
		SubmittedAt: time.Now(),
		Status:      model.StatusPending,
	}

	err := awaitConfirmation(ctx, c.receipts, txHash, c.opts.SubmitTimeout)
	switch {
	case err == nil:
		submission.Status = model.StatusSuccess
	case errors.Is(err, model.ErrSubmissionTimeout):
		// Conservative UX timeout; the transaction may still confirm later.
		submission.Status = model.StatusFailed
		c.logger.Warn("submission timed out", zap.String("tx", submission.TxID))
		return submission, err
	default:
		submission.Status = model.StatusFailed
		return submission, err
	}

	c.logger.Info("submission confirmed", zap.String("tx", submission.TxID), zap.String("label", label))
	return submission, nil
}

func (c *Controller) classifySubmitError(err error) error {
	if errors.Is(err, model.ErrUserRejected) {
		// Form returns to editable state; no automatic retry.
		return err
	}
	return fmt.Errorf("submit: %w", err)
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// Balance reads the connected account's balance for a token, for the
// surrounding UI's balance display.
func (c *Controller) Balance(ctx context.Context, token common.Address) (*big.Int, error) {
	return c.reader.Balance(ctx, token, c.submitter.Address())
}
