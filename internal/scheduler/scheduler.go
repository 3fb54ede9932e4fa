package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"QuantSentinel/internal/collector"
	"QuantSentinel/internal/metrics"
	"QuantSentinel/internal/model"
	"QuantSentinel/internal/notifier"
	"QuantSentinel/internal/recorder"
)

// maxParallel bounds how many symbols refresh at once.
const maxParallel = 4

// Scheduler manages the refresh job and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  notifier.SignalNotifier // nil disables alerts
	Recorder  recorder.Recorder
	Symbols   []string
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Ctx       context.Context

	// flight runs at most one refresh per symbol at a time.
	flight    singleflight.Group
	mu        sync.RWMutex
	snapshots map[string]*collector.Snapshot
	announced map[string]model.Signal
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, n notifier.SignalNotifier, rec recorder.Recorder,
	symbols []string, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	// A tick that fires while the previous refresh still runs is skipped.
	cl := cronLogger{s: logger.Named("cron").Sugar()}
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	return &Scheduler{
		Cron:      c,
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Symbols:   symbols,
		Metrics:   m,
		Logger:    logger,
		Ctx:       ctx,
		snapshots: make(map[string]*collector.Snapshot),
		announced: make(map[string]model.Signal),
	}
}

// RegisterAll registers the refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Strings("symbols", s.Symbols))
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	if err := s.RefreshAll(s.Ctx); err != nil {
		s.Logger.Error("refresh failed", zap.Error(err))
	}
}

// RefreshAll refreshes every symbol concurrently. Symbols are independent:
// one failure does not cancel the others, and the first error is returned.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for _, symbol := range s.Symbols {
		g.Go(func() error {
			return s.Refresh(ctx, symbol)
		})
	}
	return g.Wait()
}

// Refresh collects one symbol, records the outcome and announces a new
// latest signal. A call that arrives while the same symbol is already
// refreshing waits for that refresh and shares its result.
func (s *Scheduler) Refresh(ctx context.Context, symbol string) error {
	_, err, _ := s.flight.Do(symbol, func() (interface{}, error) {
		return nil, s.refresh(ctx, symbol)
	})
	return err
}

func (s *Scheduler) refresh(ctx context.Context, symbol string) error {
	run := &recorder.Run{ID: uuid.NewString(), Symbol: symbol, StartedAt: time.Now()}
	log := s.Logger.With(zap.String("symbol", symbol), zap.String("run_id", run.ID))

	snap, err := s.Collector.Collect(ctx, symbol)
	run.FinishedAt = time.Now()
	if err != nil {
		run.Err = err.Error()
		s.recordRun(ctx, log, run)
		return fmt.Errorf("refresh %s: %w", symbol, err)
	}

	res := snap.Result
	run.Source = snap.Source
	run.MinuteBars = snap.MinuteBars
	run.Buckets = len(res.Buckets)
	run.Signals = len(res.Signals)
	s.recordRun(ctx, log, run)

	s.seedAnnounced(ctx, symbol)
	if err := s.Recorder.RecordIndicators(ctx, symbol, res.Rows); err != nil {
		log.Error("record indicators", zap.Error(err))
	}
	for _, dir := range []model.Direction{model.DirectionBuy, model.DirectionSell} {
		n, err := s.Recorder.RecordSignals(ctx, symbol, byDirection(res.Signals, dir))
		if err != nil {
			log.Error("record signals", zap.String("direction", string(dir)), zap.Error(err))
			continue
		}
		s.Metrics.SignalsRecorded(symbol, string(dir), n)
	}

	s.mu.Lock()
	s.snapshots[symbol] = snap
	s.mu.Unlock()

	log.Info("refreshed",
		zap.String("source", snap.Source),
		zap.Int("buckets", len(res.Buckets)),
		zap.Int("signals", len(res.Signals)),
	)
	s.announce(ctx, log, snap)
	return nil
}

func (s *Scheduler) recordRun(ctx context.Context, log *zap.Logger, run *recorder.Run) {
	if err := s.Recorder.RecordRun(ctx, run); err != nil {
		log.Error("record run", zap.Error(err))
	}
}

// seedAnnounced treats the newest recorded signal of a symbol as already
// announced, so a restart does not repeat the last alert.
func (s *Scheduler) seedAnnounced(ctx context.Context, symbol string) {
	s.mu.RLock()
	_, seen := s.announced[symbol]
	s.mu.RUnlock()
	if seen {
		return
	}
	recent, err := s.Recorder.RecentSignals(ctx, symbol, 1)
	if err != nil || len(recent) == 0 {
		return
	}
	s.mu.Lock()
	if _, ok := s.announced[symbol]; !ok {
		s.announced[symbol] = recent[0]
	}
	s.mu.Unlock()
}

// announce notifies when the latest signal is newer than the last one
// announced for the symbol.
func (s *Scheduler) announce(ctx context.Context, log *zap.Logger, snap *collector.Snapshot) {
	if s.Notifier == nil || snap.Result.Latest.IsNone() {
		return
	}
	sig := snap.Result.Latest.Unwrap()

	s.mu.RLock()
	prev, seen := s.announced[snap.Symbol]
	s.mu.RUnlock()
	if seen && !sig.Time.After(prev.Time) {
		return
	}

	row, ok := rowAt(snap.Result.Rows, sig.Time)
	if !ok {
		return
	}
	if err := s.Notifier.NotifySignal(ctx, snap.Symbol, sig, row); err != nil {
		log.Error("notify signal", zap.Stringer("signal", sig), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.announced[snap.Symbol] = sig
	s.mu.Unlock()
	log.Info("signal announced", zap.Stringer("signal", sig))
}

// Snapshot returns the latest refresh of symbol.
func (s *Scheduler) Snapshot(symbol string) (*collector.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[symbol]
	return snap, ok
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends @botname to commands in groups.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch cmd {
	case "/refresh":
		if err := s.RefreshAll(ctx); err != nil {
			return fmt.Sprintf("❌ refresh failed: %v", err)
		}
		return fmt.Sprintf("✅ refreshed %d symbol(s)", len(s.Symbols))
	case "/symbols":
		return "Symbols: " + strings.Join(s.Symbols, ", ")
	case "/signal", "/signals", "/indicators":
	default:
		return helpText
	}

	symbol, ok := s.symbolArg(fields)
	if !ok {
		return fmt.Sprintf("Usage: %s SYMBOL", cmd)
	}
	snap, ok := s.Snapshot(symbol)

	switch cmd {
	case "/signal":
		if !ok {
			return noData(symbol)
		}
		return notifier.FormatReport(notifier.ReportFromSnapshot(snap))
	case "/signals":
		if ok {
			return notifier.FormatSignals(symbol, snap.Result.Signals)
		}
		recent, err := s.Recorder.RecentSignals(ctx, symbol, 10)
		if err != nil {
			return fmt.Sprintf("❌ load signals: %v", err)
		}
		return notifier.FormatSignals(symbol, recent)
	default:
		if !ok {
			return noData(symbol)
		}
		return notifier.FormatIndicators(symbol, snap.Result.Rows)
	}
}

// symbolArg returns the symbol named in a command. With a single configured
// symbol the argument is optional.
func (s *Scheduler) symbolArg(fields []string) (string, bool) {
	if len(fields) > 1 {
		return strings.ToUpper(fields[1]), true
	}
	if len(s.Symbols) == 1 {
		return s.Symbols[0], true
	}
	return "", false
}

const helpText = "Available commands:\n" +
	"• /signal SYMBOL - latest signal and report\n" +
	"• /signals SYMBOL - last 10 signals\n" +
	"• /indicators SYMBOL - last 3 indicator rows\n" +
	"• /refresh - refresh all symbols now\n" +
	"• /symbols - configured symbols"

func noData(symbol string) string {
	return fmt.Sprintf("No data for %s yet, try /refresh.", symbol)
}

func byDirection(signals []model.Signal, dir model.Direction) []model.Signal {
	var out []model.Signal
	for _, s := range signals {
		if s.Direction == dir {
			out = append(out, s)
		}
	}
	return out
}

// rowAt finds the indicator row with timestamp t.
func rowAt(rows []model.IndicatorRow, t time.Time) (model.IndicatorRow, bool) {
	i := sort.Search(len(rows), func(i int) bool { return !rows[i].Time.Before(t) })
	if i < len(rows) && rows[i].Time.Equal(t) {
		return rows[i], true
	}
	return model.IndicatorRow{}, false
}
