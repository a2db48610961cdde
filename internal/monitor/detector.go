// internal/monitor/detector.go
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ataxdi-dev/solana-token-monitor/internal/blockchain"
	"github.com/ataxdi-dev/solana-token-monitor/internal/events"
)

const (
	// scanInterval is the fixed cadence of the confirmation scan loop,
	// deliberately faster than the default poll interval.
	scanInterval = 500 * time.Millisecond

	DefaultPollInterval   = 1 * time.Second
	DefaultSignatureLimit = 25
)

// Config configures a LaunchDetector.
type Config struct {
	ProgramAddress    string
	PollInterval      time.Duration
	SignatureLimit    int
	MinValueToTrack   float64 // SOL
	ConfirmationDelay time.Duration
	Source            SignatureSource
	Fetcher           TransactionFetcher
	Bus               *events.Bus
	Logger            *zap.Logger
}

// LaunchDetector drives the poll → dedup → fetch → extract → track pipeline
// and the independent confirmation scan, publishing one launch event per
// confirmed mint.
type LaunchDetector struct {
	cfg       Config
	extractor *Extractor
	tracker   *TokenTracker
	bus       *events.Bus
	logger    *zap.Logger

	// processed is touched only from the poll loop goroutine.
	processed map[string]struct{}
	startTime time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	nowFn func() time.Time
}

// NewLaunchDetector validates the configuration and builds the detector.
// A nil logger is replaced with the no-op logger; a nil bus gets an internal
// one.
func NewLaunchDetector(cfg Config) (*LaunchDetector, error) {
	if cfg.ProgramAddress == "" {
		return nil, fmt.Errorf("program address cannot be empty")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("signature source cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("transaction fetcher cannot be nil")
	}
	if cfg.MinValueToTrack <= 0 {
		return nil, fmt.Errorf("min value to track must be positive")
	}
	if cfg.ConfirmationDelay <= 0 {
		return nil, fmt.Errorf("confirmation delay must be positive")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = DefaultSignatureLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logger := cfg.Logger.Named("launch_detector")
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus(cfg.Logger, 64)
	}

	return &LaunchDetector{
		cfg:       cfg,
		extractor: NewExtractor(cfg.ProgramAddress, cfg.Logger),
		tracker:   NewTokenTracker(cfg.MinValueToTrack, cfg.ConfirmationDelay, cfg.ProgramAddress, cfg.Logger),
		bus:       bus,
		logger:    logger,
		processed: make(map[string]struct{}),
		nowFn:     time.Now,
	}, nil
}

// Bus exposes the event bus launches are published on.
func (d *LaunchDetector) Bus() *events.Bus {
	return d.bus
}

// RegisterListener subscribes fn to confirmed launches. Listeners run
// synchronously in registration order; a panicking listener is isolated by
// the bus.
func (d *LaunchDetector) RegisterListener(fn LaunchListener) events.Subscription {
	return d.bus.SubscribeFunc(events.TokenLaunchDetected, func(_ context.Context, event events.Event) error {
		launch, ok := event.(events.TokenLaunchDetectedEvent)
		if !ok {
			return nil
		}
		fn(TokenLaunch{
			Mint:             launch.Mint,
			DetectedAt:       launch.DetectedAt,
			AccumulatedSOL:   launch.AccumulatedSOL,
			TransactionCount: launch.TransactionCount,
			Source:           launch.Source,
		})
		return nil
	})
}

// Start launches the poll and scan loops. Calling Start on a running
// detector warns and no-ops.
func (d *LaunchDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		d.logger.Warn("Launch detector already running, ignoring start")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	d.running = true
	d.cancel = cancel
	d.group = group
	d.startTime = d.nowFn()
	d.processed = make(map[string]struct{})

	d.logger.Info("🚀 Launch detector started",
		zap.String("program", d.cfg.ProgramAddress),
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Float64("min_value_sol", d.cfg.MinValueToTrack),
		zap.Duration("confirmation_delay", d.cfg.ConfirmationDelay))

	_ = d.bus.PublishSync(runCtx, events.MonitoringStartedEvent{
		BaseEvent:      events.BaseEvent{EventType: events.MonitoringStarted, EventTime: d.startTime},
		ProgramAddress: d.cfg.ProgramAddress,
	})

	group.Go(func() error {
		d.runPollLoop(groupCtx)
		return nil
	})
	group.Go(func() error {
		d.runScanLoop(groupCtx)
		return nil
	})

	return nil
}

// Stop cancels both loops and waits for in-flight ticks to finish.
// Stopping a stopped detector is a no-op.
func (d *LaunchDetector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	group := d.group
	d.mu.Unlock()

	cancel()
	_ = group.Wait()

	_ = d.bus.PublishSync(context.Background(), events.MonitoringStoppedEvent{
		BaseEvent:      events.BaseEvent{EventType: events.MonitoringStopped, EventTime: d.nowFn()},
		ProgramAddress: d.cfg.ProgramAddress,
		Reason:         "stopped",
	})

	d.logger.Info("🛑 Launch detector stopped",
		zap.Int("tracked_tokens", d.tracker.TrackedCount()),
		zap.Int("processed_signatures", len(d.processed)))
}

// runPollLoop drives the discovery pipeline. A tick runs to completion
// inside this goroutine, so two poll ticks can never overlap.
func (d *LaunchDetector) runPollLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Poll loop stopped")
			return
		case <-ticker.C:
			d.pollTick(ctx)
		}
	}
}

// runScanLoop drives the confirmation scan on its fixed interval.
func (d *LaunchDetector) runScanLoop(ctx context.Context) {
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Scan loop stopped")
			return
		case <-ticker.C:
			d.scanTick(ctx)
		}
	}
}

// pollTick lists recent signatures, filters them, fetches the survivors and
// feeds extracted observations into the tracker. Transport failures abort
// only the affected signature, never the tick.
func (d *LaunchDetector) pollTick(ctx context.Context) {
	sigs, err := d.cfg.Source.RecentSignatures(ctx, d.cfg.SignatureLimit)
	if err != nil {
		d.logger.Warn("Failed to list signatures", zap.Error(err))
		return
	}

	fresh := d.filterNew(sigs)
	if len(fresh) == 0 {
		return
	}
	d.logger.Debug("Processing new signatures", zap.Int("count", len(fresh)))

	for _, sig := range fresh {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := d.cfg.Fetcher.FetchTransaction(ctx, sig.Signature)
		if err != nil {
			d.logger.Debug("Transaction fetch failed, dropping signature",
				zap.String("signature", sig.Signature), zap.Error(err))
			continue
		}
		if record == nil {
			d.logger.Debug("Transaction not available yet, dropping signature",
				zap.String("signature", sig.Signature))
			continue
		}

		mint, amountSOL := d.extractor.Extract(record)
		if mint == "" || amountSOL <= 0 {
			continue
		}

		d.tracker.Record(mint, sig.Signature, amountSOL, d.nowFn())
	}
}

// filterNew applies dedup and the start-time filter. Every surviving
// signature is marked processed before it is handed downstream: a later
// fetch failure drops the transaction instead of retrying it (at-most-once).
// Signatures with unknown block time pass the time filter since their age
// cannot be judged.
func (d *LaunchDetector) filterNew(sigs []blockchain.SignatureInfo) []blockchain.SignatureInfo {
	var fresh []blockchain.SignatureInfo
	for _, sig := range sigs {
		if _, seen := d.processed[sig.Signature]; seen {
			continue
		}
		if sig.BlockTime != nil && sig.BlockTime.Before(d.startTime) {
			continue
		}
		d.processed[sig.Signature] = struct{}{}
		if sig.Failed {
			continue
		}
		fresh = append(fresh, sig)
	}
	return fresh
}

// scanTick confirms qualified tokens and publishes one event per launch.
func (d *LaunchDetector) scanTick(ctx context.Context) {
	launches := d.tracker.Scan(d.nowFn())
	for _, launch := range launches {
		d.logger.Info("✅ Token launch confirmed",
			zap.String("mint", launch.Mint),
			zap.Float64("accumulated_sol", launch.AccumulatedSOL),
			zap.Int("tx_count", launch.TransactionCount))

		_ = d.bus.PublishSync(ctx, events.TokenLaunchDetectedEvent{
			BaseEvent:        events.BaseEvent{EventType: events.TokenLaunchDetected, EventTime: launch.DetectedAt},
			Mint:             launch.Mint,
			DetectedAt:       launch.DetectedAt,
			AccumulatedSOL:   launch.AccumulatedSOL,
			TransactionCount: launch.TransactionCount,
			Source:           launch.Source,
		})
	}
}
