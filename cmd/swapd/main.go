package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapEngine/internal/approval"
	"swapEngine/internal/batch"
	"swapEngine/internal/chain"
	"swapEngine/internal/config"
	"swapEngine/internal/model"
	"swapEngine/internal/pool"
	"swapEngine/internal/pricesync"
	"swapEngine/internal/quote"
	"swapEngine/internal/router"
	"swapEngine/internal/session"
	"swapEngine/internal/token"
)

func main() {
	root := &cobra.Command{
		Use:          "swapd",
		Short:        "Hybrid AMM/OTC swap engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Print a one-shot quote for a trade",
		RunE:  runQuote,
	}
	addTradeFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Build the router calldata and submission plan for a trade",
		RunE:  runSwap,
	}
	addTradeFlags(swapCmd)
	swapCmd.Flags().String("signer", "", "signer account address")
	root.AddCommand(swapCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the price feed for a pool and log series changes",
		RunE:  runWatch,
	}
	watchCmd.Flags().String("rpc", "", "chain RPC URL")
	watchCmd.Flags().String("feed-url", "", "price feed base URL")
	watchCmd.Flags().String("pool", "", "pool address to watch")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("router", "", "swap router address")
	cmd.Flags().String("quoter", "", "quoter contract address")
	cmd.Flags().String("proxy", "", "spender proxy address")
	cmd.Flags().String("hybrid", "", "hybrid AMM/OTC source address")
	cmd.Flags().String("launcher", "", "launcher registry address")
	cmd.Flags().StringSlice("pair", nil, "static pair specs (id=c0,c1,fee,tickSpacing[,hooks])")
	cmd.Flags().StringSlice("route", nil, "pair ids in hop order")
	cmd.Flags().Bool("indirect", false, "route's forward leg is not independently quotable")
	cmd.Flags().Bool("sell", false, "sell the target token instead of buying")
	cmd.Flags().String("input", "", "input asset address (empty for native)")
	cmd.Flags().String("output", "", "output asset address")
	cmd.Flags().String("amount", "", "input amount in smallest units")
	cmd.Flags().Uint32("slippage-bps", 50, "slippage tolerance in bps")
	cmd.Flags().Int("probe-decimals", 18, "decimals of the reverse-probe unit for the second hop")
	cmd.Flags().Int64("deadline", 0, "deadline unix seconds (0 means now+20m)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

type tradeSetup struct {
	cfg         config.Config
	logger      *zap.Logger
	chainClient *chain.Client
	resolver    *pool.Resolver
	routeIDs    []string
	route       quote.Route
	intent      model.TradeIntent
}

func setupTrade(ctx context.Context, cmd *cobra.Command) (*tradeSetup, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	static, err := pool.ParseStaticPairs(cfg.Pairs)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	resolver := pool.NewResolver(chainClient, common.HexToAddress(cfg.LauncherAddress), static, pool.NewKeyCache(), logger)
	resolver.SetRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff)

	routeIDs, _ := cmd.Flags().GetStringSlice("route")
	if len(routeIDs) == 0 {
		chainClient.Close()
		return nil, fmt.Errorf("at least one route pair id is required")
	}
	keys := make([]model.PoolKey, 0, len(routeIDs))
	for _, pairID := range routeIDs {
		key, err := resolver.Resolve(ctx, pairID)
		if err != nil {
			chainClient.Close()
			return nil, err
		}
		keys = append(keys, key)
	}
	indirect, _ := cmd.Flags().GetBool("indirect")

	intent, err := parseIntent(cmd, cfg)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	return &tradeSetup{
		cfg:         cfg,
		logger:      logger,
		chainClient: chainClient,
		resolver:    resolver,
		routeIDs:    routeIDs,
		route:       quote.Route{Keys: keys, Indirect: indirect},
		intent:      intent,
	}, nil
}

func newQuoteEngine(setup *tradeSetup) *quote.Engine {
	engine := quote.NewEngine(setup.chainClient,
		common.HexToAddress(setup.cfg.QuoterAddress),
		common.HexToAddress(setup.cfg.HybridAddress),
		setup.cfg.HopCorrection, setup.logger)
	engine.SetProbeDecimals(setup.cfg.ProbeDecimals)
	return engine
}

func parseIntent(cmd *cobra.Command, cfg config.Config) (model.TradeIntent, error) {
	amountStr, _ := cmd.Flags().GetString("amount")
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok || amount.Sign() <= 0 {
		return model.TradeIntent{}, fmt.Errorf("amount must be a positive integer")
	}

	inputStr, _ := cmd.Flags().GetString("input")
	input := model.NativeCurrency
	if inputStr != "" {
		if !common.IsHexAddress(inputStr) {
			return model.TradeIntent{}, fmt.Errorf("invalid input asset address")
		}
		input = common.HexToAddress(inputStr)
	}

	outputStr, _ := cmd.Flags().GetString("output")
	if !common.IsHexAddress(outputStr) {
		return model.TradeIntent{}, fmt.Errorf("invalid output asset address")
	}
	output := common.HexToAddress(outputStr)

	direction := model.Buy
	if sell, _ := cmd.Flags().GetBool("sell"); sell {
		direction = model.Sell
	}

	slippage, _ := cmd.Flags().GetUint32("slippage-bps")
	if slippage == 0 {
		slippage = cfg.SlippageBps
	}
	if slippage > 10000 {
		return model.TradeIntent{}, fmt.Errorf("slippage-bps must not exceed 10000")
	}

	deadline, _ := cmd.Flags().GetInt64("deadline")
	if deadline == 0 {
		deadline = nowPlus20m()
	}

	return model.TradeIntent{
		Direction:   direction,
		InputAsset:  input,
		OutputAsset: output,
		InputAmount: amount,
		SlippageBps: slippage,
		Deadline:    deadline,
	}, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup, err := setupTrade(ctx, cmd)
	if err != nil {
		return err
	}
	defer setup.chainClient.Close()
	defer setup.logger.Sync()

	engine := newQuoteEngine(setup)

	q, err := engine.Quote(ctx, setup.intent, setup.route)
	if err != nil {
		return err
	}

	tokens := token.NewReader(setup.chainClient, "", setup.logger)
	outMeta, err := tokens.Meta(ctx, setup.intent.OutputAsset)
	if err != nil {
		setup.logger.Warn("output token metadata unavailable", zap.Error(err))
		outMeta = token.Meta{Address: setup.intent.OutputAsset}
	}
	inMeta, err := tokens.Meta(ctx, setup.intent.InputAsset)
	if err != nil {
		setup.logger.Warn("input token metadata unavailable", zap.Error(err))
		inMeta = token.Meta{Address: setup.intent.InputAsset}
	}

	fmt.Printf("estimated out: %s (%s)\n", outMeta.FormatAmount(q.EstimatedOut), q.Confidence)
	for _, portion := range q.Breakdown {
		fmt.Printf("  %-4s in=%s out=%s\n",
			portion.Source, inMeta.FormatAmount(portion.InputPortion), outMeta.FormatAmount(portion.OutputPortion))
	}
	return nil
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup, err := setupTrade(ctx, cmd)
	if err != nil {
		return err
	}
	defer setup.chainClient.Close()
	defer setup.logger.Sync()

	signerStr, _ := cmd.Flags().GetString("signer")
	if !common.IsHexAddress(signerStr) {
		return fmt.Errorf("signer address is required")
	}
	signer := common.HexToAddress(signerStr)

	proxyAddr := common.HexToAddress(setup.cfg.ProxyAddress)
	routerAddr := common.HexToAddress(setup.cfg.RouterAddress)

	engine := newQuoteEngine(setup)
	reader := approval.NewReader(setup.chainClient, proxyAddr, routerAddr, setup.logger)
	reader.SetRetryPolicy(setup.cfg.MaxRetries, setup.cfg.RetryBackoff)
	capability := batch.NewCapability(setup.chainClient, setup.logger)
	planner := batch.NewPlanner(capability, proxyAddr, routerAddr, setup.logger)

	controller := session.NewController(setup.resolver, engine,
		quote.NewDebouncer(setup.cfg.QuoteDebounce), reader, planner,
		planOnlySubmitter{addr: signer}, setup.chainClient, session.Options{
			SlippageBps:   setup.cfg.SlippageBps,
			SubmitTimeout: setup.cfg.SubmitTimeout,
		}, setup.logger)

	if err := controller.SetRoute(ctx, setup.routeIDs, setup.route.Indirect); err != nil {
		return err
	}
	controller.UpdateIntent(ctx, setup.intent)

	q, err := awaitQuote(ctx, controller, setup.cfg.QuoteDebounce)
	if err != nil {
		return err
	}
	state := controller.ApprovalState()

	call, err := router.Build(setup.intent, *q, setup.route.Keys)
	if err != nil {
		return err
	}
	swapCalldata, err := router.EncodeExecute(call)
	if err != nil {
		return err
	}

	plan, err := planner.Plan(ctx, state, setup.intent, swapCalldata, signer, nowUnix()+30*24*3600)
	if err != nil {
		return err
	}

	fmt.Printf("approval state: %s\n", state)
	fmt.Printf("atomic: %v\n", plan.Atomic)
	for _, planned := range plan.Calls {
		fmt.Printf("  %-14s to=%s value=%s data=%s\n",
			planned.Label, planned.Target.Hex(), planned.Value, hexutil.Encode(planned.Calldata))
	}
	return nil
}

// planOnlySubmitter satisfies session.Submitter for flows that stop at the
// plan; the CLI holds no signing key.
type planOnlySubmitter struct {
	addr common.Address
}

func (s planOnlySubmitter) Address() common.Address { return s.addr }

func (s planOnlySubmitter) Submit(context.Context, model.PlannedCall) (common.Hash, error) {
	return common.Hash{}, model.ErrUserRejected
}

func (s planOnlySubmitter) SubmitBatch(context.Context, []model.PlannedCall) (common.Hash, error) {
	return common.Hash{}, model.ErrUserRejected
}

// awaitQuote waits out the debounce window for the controller to apply a
// quote or record an error.
func awaitQuote(ctx context.Context, controller *session.Controller, debounce time.Duration) (*model.Quote, error) {
	deadline := time.Now().Add(debounce + 15*time.Second)
	for {
		if q := controller.CurrentQuote(); q != nil {
			return q, nil
		}
		if err := controller.LastError(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("quote timed out")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// logSink logs series changes instead of driving a chart.
type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Reset(candles []model.Candle) {
	s.logger.Info("series loaded", zap.Int("candles", len(candles)))
}

func (s *logSink) Append(candle model.Candle) {
	s.logger.Info("candle append",
		zap.Int64("ts", candle.Timestamp),
		zap.String("close", candle.Close.String()))
}

func (s *logSink) Update(candle model.Candle) {
	s.logger.Info("candle update",
		zap.Int64("ts", candle.Timestamp),
		zap.String("close", candle.Close.String()))
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolAddr, _ := cmd.Flags().GetString("pool")
	if poolAddr == "" {
		return fmt.Errorf("pool address is required")
	}
	if cfg.FeedURL == "" {
		return fmt.Errorf("feed url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := pricesync.NewFeedClient(cfg.FeedURL, logger)
	controller := pricesync.NewController(feed, &logSink{logger: logger}, poolAddr, pricesync.Options{
		Timeframe:     cfg.FeedTimeframe,
		Aggregate:     cfg.FeedAggregate,
		Limit:         cfg.FeedLimit,
		SteadyPoll:    cfg.SteadyPoll,
		BoostPoll:     cfg.BoostPoll,
		BoostDuration: cfg.BoostWindow,
	}, logger)

	logger.Info("watch start", zap.String("pool", poolAddr), zap.String("feed", cfg.FeedURL))
	if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}

func nowPlus20m() int64 {
	return time.Now().Add(20 * time.Minute).Unix()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
