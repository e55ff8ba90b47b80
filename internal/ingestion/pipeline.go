// Package ingestion drives the crash-recoverable bar pipeline: buffer
// arrivals, backfill gaps, restore in-memory state, replay missed bars,
// then cut over to live processing with zero bar loss.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"trading-core/internal/aggregator"
	"trading-core/internal/model"
	"trading-core/internal/monitor"
	"trading-core/internal/outcome"
	"trading-core/internal/ports"
	"trading-core/internal/signalgen"
	"trading-core/internal/streak"
	"trading-core/pkg/i18n"
)

// Phase is the pipeline state machine position.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseInit       Phase = "INIT"
	PhaseCheckState Phase = "CHECK_STATE"
	PhaseBackfill   Phase = "BACKFILL"
	PhaseRestore    Phase = "RESTORE"
	PhaseReplay     Phase = "REPLAY"
	PhaseCutover    Phase = "CUTOVER"
	PhaseLive       Phase = "LIVE"
)

// ErrStartupDeadline is returned when INIT..LIVE exceeds the deadline.
var ErrStartupDeadline = errors.New("ingestion: startup deadline exceeded")

// ErrFatal wraps invariant violations that must stop the core.
var ErrFatal = errors.New("ingestion: fatal invariant violation")

// Config holds the pipeline tuning knobs.
type Config struct {
	Instruments           []string
	Timeframes            []string // aggregated targets; nil = defaults
	WindowSize            int      // bar window per series, default 200
	BufferCapacity        int      // max buffered arrivals, default 10000
	ReplayCheckpointEvery int      // default 100
	InitialHistoryHours   int      // default 48
	ATRWarmupBars         int      // 1m bars loaded per series for ATR warmup, default 2000
	StartupDeadline       time.Duration
	PortTimeout           time.Duration
	// StaleAfter is the LIVE silence window before the stream is
	// declared disconnected. Zero disables the watchdog (tests).
	StaleAfter time.Duration
	// Now supplies the current time; tests override it.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 200
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = 10_000
	}
	if c.ReplayCheckpointEvery <= 0 {
		c.ReplayCheckpointEvery = 100
	}
	if c.InitialHistoryHours <= 0 {
		c.InitialHistoryHours = 48
	}
	if c.ATRWarmupBars <= 0 {
		c.ATRWarmupBars = 2000
	}
	if c.StartupDeadline <= 0 {
		c.StartupDeadline = 2 * time.Minute
	}
	if c.PortTimeout <= 0 {
		c.PortTimeout = 5 * time.Second
	}
	if c.Timeframes == nil {
		c.Timeframes = model.AggregatedTimeframes
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Pipeline owns the core serialization domain. Every closed-bar
// mutation (windows, aggregator, signal generation, checkpoints) runs
// under procMu, whether the bar comes from replay, cutover or a live
// arrival. The tick path only touches the outcome tracker, which
// serializes itself.
type Pipeline struct {
	cfg Config

	source      ports.ExchangeSource
	bars        ports.BarStore
	checkpoints ports.CheckpointStore
	gen         *signalgen.Generator
	outcomes    *outcome.Tracker
	streaks     *streak.Tracker
	agg         *aggregator.Aggregator
	metrics     *monitor.EngineMetrics
	bus         ports.ObserverBus

	// Buffer between the upstream listener and the closed-bar handler;
	// the only producer/consumer queue in the core. Holds bar values,
	// not references.
	bufMu     sync.Mutex
	buffering bool
	buffer    []model.Bar

	procMu  sync.Mutex
	windows map[string][]model.Bar
	last1m  map[string]int64 // per instrument, last processed 1m open time

	phaseMu sync.RWMutex
	phase   Phase

	arrivalMu   sync.Mutex
	lastArrival time.Time

	stopBars   func()
	stopTrades func()

	fatalMu  sync.Mutex
	fatalErr error
}

// New wires the core loop: emitted signals enter the outcome tracker,
// closures advance streaks and release the position lock.
func New(cfg Config, source ports.ExchangeSource, bars ports.BarStore, checkpoints ports.CheckpointStore,
	gen *signalgen.Generator, outcomes *outcome.Tracker, streaks *streak.Tracker,
	metrics *monitor.EngineMetrics, bus ports.ObserverBus) *Pipeline {

	cfg.defaults()
	if metrics == nil {
		metrics = monitor.NewEngineMetrics()
	}
	if bus == nil {
		bus = ports.NoopBus{}
	}

	p := &Pipeline{
		cfg:         cfg,
		source:      source,
		bars:        bars,
		checkpoints: checkpoints,
		gen:         gen,
		outcomes:    outcomes,
		streaks:     streaks,
		agg:         aggregator.New(cfg.Timeframes),
		metrics:     metrics,
		bus:         bus,
		buffering:   true,
		windows:     make(map[string][]model.Bar),
		last1m:      make(map[string]int64),
		phase:       PhaseIdle,
	}

	gen.OnSignal(func(s model.Signal) {
		outcomes.Add(s)
		metrics.IncSignals()
	})
	outcomes.OnOutcome(p.onOutcome)
	return p
}

func (p *Pipeline) onOutcome(s model.Signal, o model.Outcome) {
	key := model.Key(s.Instrument, s.Timeframe)
	if err := p.streaks.Record(context.Background(), s.Instrument, s.Timeframe, o); err != nil {
		log.Printf(i18n.Get("StreakSaveFailed"), key, err)
	}
	st := p.streaks.State(s.Instrument, s.Timeframe)
	log.Printf(i18n.Get("StreakUpdated"), key, st.Streak, st.Wins, st.Losses)

	p.gen.ReleaseLock(s.Instrument, s.Timeframe)
	p.metrics.IncClosed()
}

// Phase returns the current state machine position.
func (p *Pipeline) Phase() Phase {
	p.phaseMu.RLock()
	defer p.phaseMu.RUnlock()
	return p.phase
}

func (p *Pipeline) setPhase(next Phase) {
	p.phaseMu.Lock()
	prev := p.phase
	p.phase = next
	p.phaseMu.Unlock()
	log.Printf(i18n.Get("PhaseTransition"), prev, next)
}

// Buffered returns the number of bars queued during buffering phases.
func (p *Pipeline) Buffered() int {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	return len(p.buffer)
}

func (p *Pipeline) portCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.PortTimeout)
}

// Run executes the state machine until ctx is cancelled or a fatal
// invariant violation stops the core. Disconnects loop back to INIT.
func (p *Pipeline) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := p.startup(ctx)
		if err == nil {
			err = p.watchLive(ctx)
			p.teardownStreams()
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrFatal) {
				p.bus.Publish(ports.EventCoreFatal, ports.FatalEvent{Reason: err.Error()})
				return err
			}
			log.Printf(i18n.Get("Disconnected"), err)
			backoff = time.Second
			continue
		}

		p.teardownStreams()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrFatal) {
			p.bus.Publish(ports.EventCoreFatal, ports.FatalEvent{Reason: err.Error()})
			return err
		}
		if errors.Is(err, ErrStartupDeadline) {
			return err
		}

		log.Printf(i18n.Get("Disconnected"), err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// Startup runs INIT..CUTOVER once and leaves the pipeline LIVE.
// Exported for the backtester and the layer verification scripts.
func (p *Pipeline) Startup(ctx context.Context) error {
	return p.startup(ctx)
}

func (p *Pipeline) startup(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, p.cfg.StartupDeadline)
	defer cancel()

	err := p.runStartupPhases(parent, ctx)
	if err != nil && ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
		log.Printf(i18n.Get("StartupDeadline"), p.cfg.StartupDeadline)
		return fmt.Errorf("%w: %v", ErrStartupDeadline, err)
	}
	return err
}

// runStartupPhases runs INIT..CUTOVER. Subscriptions use the parent
// context so they outlive the startup deadline; every other phase is
// bounded by ctx.
func (p *Pipeline) runStartupPhases(parent, ctx context.Context) error {
	// INIT: open subscriptions in buffered mode.
	p.setPhase(PhaseInit)
	p.bufMu.Lock()
	p.buffering = true
	p.bufMu.Unlock()

	stopBars, err := p.source.SubscribeBars1m(parent, p.cfg.Instruments, p.handleArrival)
	if err != nil {
		return fmt.Errorf("subscribe bars: %w", err)
	}
	p.stopBars = stopBars

	stopTrades, err := p.source.SubscribeTrades(parent, p.cfg.Instruments, p.handleTrade)
	if err != nil {
		return fmt.Errorf("subscribe trades: %w", err)
	}
	p.stopTrades = stopTrades
	log.Println(i18n.Get("BufferingStarted"))

	// CHECK_STATE: load or initialize per-instrument checkpoints.
	p.setPhase(PhaseCheckState)
	checkpoints, err := p.checkState(ctx)
	if err != nil {
		return err
	}

	// BACKFILL: fill [checkpoint, now] from the REST port.
	p.setPhase(PhaseBackfill)
	if err := p.backfill(ctx, checkpoints); err != nil {
		return err
	}

	// RESTORE: seed windows, aggregator and ATR history, no emissions.
	p.setPhase(PhaseRestore)
	if err := p.restore(ctx, checkpoints); err != nil {
		return err
	}

	// REPLAY: run persisted bars after the checkpoint through the same
	// closed-bar handler LIVE uses.
	p.setPhase(PhaseReplay)
	if err := p.replay(ctx, checkpoints); err != nil {
		return err
	}

	// CUTOVER: two-phase buffer drain, then LIVE.
	p.setPhase(PhaseCutover)
	if err := p.cutover(ctx); err != nil {
		return err
	}

	p.setPhase(PhaseLive)
	return nil
}

func (p *Pipeline) checkState(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(p.cfg.Instruments))
	for _, inst := range p.cfg.Instruments {
		pctx, cancel := p.portCtx(ctx)
		cp, ok, err := p.checkpoints.Get(pctx, inst, "1m")
		cancel()
		if err != nil {
			return nil, fmt.Errorf("load checkpoint %s: %w", inst, err)
		}
		if !ok {
			first := p.cfg.Now().Add(-time.Duration(p.cfg.InitialHistoryHours) * time.Hour).UnixMilli()
			first = (first / model.MsPerMinute) * model.MsPerMinute
			out[inst] = first
			log.Printf(i18n.Get("CheckpointFirstRun"), inst, p.cfg.InitialHistoryHours)
			continue
		}
		if cp.Phase == model.PhasePending {
			log.Printf(i18n.Get("CheckpointPending"), inst)
		}
		out[inst] = cp.LastOpenTime
		log.Printf(i18n.Get("CheckpointResuming"), inst, cp.LastOpenTime)
	}
	return out, nil
}

func (p *Pipeline) backfill(ctx context.Context, checkpoints map[string]int64) error {
	now := p.cfg.Now().UnixMilli()
	for _, inst := range p.cfg.Instruments {
		from := checkpoints[inst]
		pctx, cancel := p.portCtx(ctx)
		fetched, err := p.source.FetchBars(pctx, inst, from, now)
		cancel()
		if err != nil {
			return fmt.Errorf("backfill %s: %w", inst, err)
		}

		valid := fetched[:0]
		for _, b := range fetched {
			if !b.Closed {
				continue
			}
			if err := b.Validate(); err != nil {
				log.Println(err)
				continue
			}
			valid = append(valid, b)
		}
		if len(valid) == 0 {
			continue
		}
		pctx, cancel = p.portCtx(ctx)
		err = p.bars.UpsertBatch(pctx, valid)
		cancel()
		if err != nil {
			return fmt.Errorf("backfill upsert %s: %w", inst, err)
		}
		log.Printf(i18n.Get("BackfillFetched"), len(valid), inst)
	}
	return nil
}

func (p *Pipeline) restore(ctx context.Context, checkpoints map[string]int64) error {
	p.procMu.Lock()
	defer p.procMu.Unlock()

	p.agg.Reset()
	p.windows = make(map[string][]model.Bar)

	timeframes := append([]string{"1m"}, p.cfg.Timeframes...)
	for _, inst := range p.cfg.Instruments {
		cp := checkpoints[inst]
		for _, tf := range timeframes {
			period := model.PeriodMs[tf]
			from := cp - int64(p.cfg.WindowSize)*period

			pctx, cancel := p.portCtx(ctx)
			window, err := p.bars.Range(pctx, inst, tf, from, cp)
			cancel()
			if err != nil {
				return fmt.Errorf("restore %s %s: %w", inst, tf, err)
			}
			if len(window) > p.cfg.WindowSize {
				window = window[len(window)-p.cfg.WindowSize:]
			}
			p.windows[model.Key(inst, tf)] = window
			log.Printf(i18n.Get("RestoreSeeded"), len(window), inst, tf)

			// ATR percentile history needs far more than one window;
			// bulk-replay a deeper range of past bars per series.
			warmFrom := cp - int64(p.cfg.ATRWarmupBars)*period
			pctx, cancel = p.portCtx(ctx)
			warm, err := p.bars.Range(pctx, inst, tf, warmFrom, cp)
			cancel()
			if err != nil {
				return fmt.Errorf("atr warmup %s %s: %w", inst, tf, err)
			}
			if n := p.gen.WarmupATR(inst, tf, warm); n > 0 {
				log.Printf(i18n.Get("ATRWarmupDone"), inst, tf, n)
			}
		}

		// Advance aggregator slots over the restored 1m window without
		// emitting: the derived bars are already persisted.
		for _, b := range p.windows[model.Key(inst, "1m")] {
			if _, err := p.agg.Add(b); err != nil {
				return fmt.Errorf("restore aggregator %s: %w", inst, err)
			}
		}
		p.last1m[inst] = cp
	}

	// Re-acquire position locks and resume outcome tracking for every
	// signal still ACTIVE in the store.
	pctx, cancel := p.portCtx(ctx)
	defer cancel()
	if err := p.gen.LoadActiveLocks(pctx); err != nil {
		return err
	}
	if err := p.outcomes.LoadActive(pctx); err != nil {
		return fmt.Errorf("load active signals: %w", err)
	}
	return nil
}

func (p *Pipeline) replay(ctx context.Context, checkpoints map[string]int64) error {
	now := p.cfg.Now().UnixMilli()
	for _, inst := range p.cfg.Instruments {
		cp := checkpoints[inst]

		pctx, cancel := p.portCtx(ctx)
		err := p.checkpoints.Save(pctx, model.Checkpoint{
			Instrument: inst, Timeframe: "1m", LastOpenTime: cp, Phase: model.PhasePending,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("mark checkpoint pending %s: %w", inst, err)
		}

		pctx, cancel = p.portCtx(ctx)
		missed, err := p.bars.Range(pctx, inst, "1m", cp+model.MsPerMinute, now)
		cancel()
		if err != nil {
			return fmt.Errorf("replay range %s: %w", inst, err)
		}
		log.Printf(i18n.Get("ReplayStarted"), inst, cp)

		sinceCkpt := 0
		last := cp
		for _, b := range missed {
			p.procMu.Lock()
			err := p.processClosedBar(ctx, b, false, false)
			p.procMu.Unlock()
			if err != nil {
				return err
			}
			last = b.OpenTime
			sinceCkpt++
			if sinceCkpt >= p.cfg.ReplayCheckpointEvery {
				sinceCkpt = 0
				pctx, cancel := p.portCtx(ctx)
				err := p.checkpoints.Save(pctx, model.Checkpoint{
					Instrument: inst, Timeframe: "1m", LastOpenTime: last, Phase: model.PhasePending,
				})
				cancel()
				if err != nil {
					return fmt.Errorf("replay checkpoint %s: %w", inst, err)
				}
			}
		}

		pctx, cancel = p.portCtx(ctx)
		err = p.checkpoints.Save(pctx, model.Checkpoint{
			Instrument: inst, Timeframe: "1m", LastOpenTime: last, Phase: model.PhaseConfirmed,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("confirm checkpoint %s: %w", inst, err)
		}
		log.Printf(i18n.Get("ReplayFinished"), len(missed), inst)
	}
	return nil
}

func (p *Pipeline) cutover(ctx context.Context) error {
	// Phase 1: snapshot the buffer under the lock, process outside it.
	// Arrivals during processing keep buffering.
	p.bufMu.Lock()
	s1 := p.buffer
	p.buffer = nil
	p.bufMu.Unlock()

	if err := p.drain(ctx, s1); err != nil {
		return err
	}
	log.Printf(i18n.Get("CutoverDrained"), 1, len(s1))

	// Phase 2: snapshot the remainder and flip to live while still
	// holding the lock, so no arrival can fall between the snapshot
	// and the mode switch.
	p.bufMu.Lock()
	s2 := p.buffer
	p.buffer = nil
	p.buffering = false
	p.bufMu.Unlock()

	if err := p.drain(ctx, s2); err != nil {
		return err
	}
	log.Printf(i18n.Get("CutoverDrained"), 2, len(s2))
	log.Printf(i18n.Get("LiveMode"), len(s1)+len(s2))
	return nil
}

// drain processes a buffer snapshot in per-instrument open-time order.
// Bars already covered by replay fall out via the stale check.
func (p *Pipeline) drain(ctx context.Context, snapshot []model.Bar) error {
	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Instrument != snapshot[j].Instrument {
			return snapshot[i].Instrument < snapshot[j].Instrument
		}
		return snapshot[i].OpenTime < snapshot[j].OpenTime
	})
	for _, b := range snapshot {
		p.procMu.Lock()
		err := p.processClosedBar(ctx, b, true, true)
		p.procMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// handleArrival is the upstream bar listener. In buffering phases it
// enqueues closed bars; in LIVE it runs them straight through the
// closed-bar handler.
func (p *Pipeline) handleArrival(b model.Bar) {
	p.arrivalMu.Lock()
	p.lastArrival = p.cfg.Now()
	p.arrivalMu.Unlock()

	if !b.Closed {
		return
	}

	p.bufMu.Lock()
	if p.buffering {
		if len(p.buffer) >= p.cfg.BufferCapacity {
			p.bufMu.Unlock()
			log.Printf(i18n.Get("BufferOverflow"), p.cfg.BufferCapacity, b.Instrument, b.OpenTime)
			p.metrics.IncErrors()
			return
		}
		p.buffer = append(p.buffer, b)
		p.bufMu.Unlock()
		return
	}
	p.bufMu.Unlock()

	start := time.Now()
	p.procMu.Lock()
	err := p.processClosedBar(context.Background(), b, true, true)
	p.procMu.Unlock()
	p.metrics.BarLatency.Record(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		p.metrics.IncErrors()
		if errors.Is(err, ErrFatal) {
			p.fatalMu.Lock()
			if p.fatalErr == nil {
				p.fatalErr = err
			}
			p.fatalMu.Unlock()
			log.Printf(i18n.Get("CoreFatal"), err)
			return
		}
		log.Println(err)
	}
}

// handleTrade routes trade prints to the outcome tracker. The tick
// path never emits signals, so it may interleave with bar processing.
func (p *Pipeline) handleTrade(t model.Trade) {
	start := time.Now()
	p.outcomes.OnTrade(context.Background(), t)
	p.metrics.IncTicks()
	p.metrics.TickLatency.Record(float64(time.Since(start).Microseconds()) / 1000)
}

// processClosedBar is the single closed-bar handler shared by replay,
// cutover and live. Callers hold procMu. Order within one invocation:
// bar-path outcome check, 1m signal generation, aggregator emission,
// then per-higher-timeframe signal generation.
func (p *Pipeline) processClosedBar(ctx context.Context, b model.Bar, persist, checkpoint bool) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Timeframe != "1m" {
		return fmt.Errorf("closed-bar handler expects 1m bars, got %s", b.Timeframe)
	}

	// Stale or duplicate bars never advance the checkpoint. During
	// cutover drains a duplicate is expected (replay covered it), so
	// only LIVE counts them.
	if last, ok := p.last1m[b.Instrument]; ok && b.OpenTime <= last {
		if p.Phase() == PhaseLive {
			total := p.metrics.IncStale()
			log.Printf(i18n.Get("StaleBarDropped"), b.Instrument, b.OpenTime, total)
		}
		return nil
	}

	if persist {
		pctx, cancel := p.portCtx(ctx)
		err := p.bars.Upsert(pctx, b)
		cancel()
		if err != nil {
			return fmt.Errorf("upsert bar %s @%d: %w", b.Instrument, b.OpenTime, err)
		}
	}

	// Outcomes first: a signal closed on this bar contributes to the
	// streak stamped on any signal emitted on this same bar.
	p.outcomes.OnBar(ctx, b)

	if err := p.runGenerator(ctx, b); err != nil {
		return err
	}

	emitted, err := p.agg.Add(b)
	if err != nil {
		return fmt.Errorf("aggregate %s @%d: %w", b.Instrument, b.OpenTime, err)
	}
	for _, hb := range emitted {
		if persist {
			pctx, cancel := p.portCtx(ctx)
			err := p.bars.Upsert(pctx, hb)
			cancel()
			if err != nil {
				return fmt.Errorf("upsert bar %s %s @%d: %w", hb.Instrument, hb.Timeframe, hb.OpenTime, err)
			}
		}
		if err := p.runGenerator(ctx, hb); err != nil {
			return err
		}
	}

	p.last1m[b.Instrument] = b.OpenTime
	p.metrics.IncBars()

	if checkpoint {
		pctx, cancel := p.portCtx(ctx)
		err := p.checkpoints.Save(pctx, model.Checkpoint{
			Instrument: b.Instrument, Timeframe: "1m",
			LastOpenTime: b.OpenTime, Phase: model.PhaseConfirmed,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("save checkpoint %s: %w", b.Instrument, err)
		}
	}
	return nil
}

// runGenerator appends the bar to its series window and invokes signal
// detection. Persistence failures are per-signal (logged inside the
// generator, skipped here); a duplicate ACTIVE signal is fatal.
func (p *Pipeline) runGenerator(ctx context.Context, b model.Bar) error {
	key := model.Key(b.Instrument, b.Timeframe)
	window := append(p.windows[key], b)
	if len(window) > p.cfg.WindowSize {
		window = window[len(window)-p.cfg.WindowSize:]
	}
	p.windows[key] = window

	if _, err := p.gen.OnClosedBar(ctx, window); err != nil {
		if errors.Is(err, signalgen.ErrDuplicateActive) {
			return fmt.Errorf("%w: %v", ErrFatal, err)
		}
		// Transient persistence failure: the candidate is dropped, the
		// lock was never taken, the next bar may retry.
		p.metrics.IncErrors()
		return nil
	}
	return nil
}

// watchLive blocks while the pipeline is LIVE, returning on context
// cancellation, a recorded fatal error, or stream silence beyond the
// staleness window.
func (p *Pipeline) watchLive(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	p.arrivalMu.Lock()
	p.lastArrival = p.cfg.Now()
	p.arrivalMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.fatalMu.Lock()
			fatal := p.fatalErr
			p.fatalMu.Unlock()
			if fatal != nil {
				return fatal
			}

			if p.cfg.StaleAfter > 0 {
				p.arrivalMu.Lock()
				silent := p.cfg.Now().Sub(p.lastArrival)
				p.arrivalMu.Unlock()
				if silent > p.cfg.StaleAfter {
					return fmt.Errorf("no upstream data for %v", silent)
				}
			}
		}
	}
}

func (p *Pipeline) teardownStreams() {
	if p.stopBars != nil {
		p.stopBars()
		p.stopBars = nil
	}
	if p.stopTrades != nil {
		p.stopTrades()
		p.stopTrades = nil
	}
}

// Pause switches arrivals back into the buffer without tearing the
// subscription down. Resume drains the buffer and goes live again.
func (p *Pipeline) Pause() {
	p.bufMu.Lock()
	p.buffering = true
	p.bufMu.Unlock()
	p.setPhase(PhaseCutover)
}

// Resume replays the pause buffer through the two-phase drain and
// returns the pipeline to LIVE.
func (p *Pipeline) Resume(ctx context.Context) error {
	if err := p.cutover(ctx); err != nil {
		return err
	}
	p.setPhase(PhaseLive)
	return nil
}
