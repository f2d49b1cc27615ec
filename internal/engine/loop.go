package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LoopState is the refresh loop state machine:
// Idle → Fetching → Ready → (wait) → Fetching → … ; Failed is terminal.
type LoopState string

const (
	StateIdle     LoopState = "idle"
	StateFetching LoopState = "fetching"
	StateReady    LoopState = "ready"
	StateFailed   LoopState = "failed"
)

// CycleRecord is the outcome of one loop tick.
type CycleRecord struct {
	ChannelID  string
	StartedAt  time.Time
	FinishedAt time.Time
	State      LoopState
	Videos     int
	Error      string
}

// CycleRecorder receives every tick outcome (e.g. the history journal).
type CycleRecorder interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
}

// LoopStatus is a point-in-time view of the loop.
type LoopStatus struct {
	State    LoopState
	LastErr  error
	Snapshot *AnalyticsSnapshot
	NextRun  time.Time
}

// RefreshLoop re-invokes the Monitor each time the current snapshot expires
// and hands fresh snapshots to an optional callback. Any cycle error moves it
// to StateFailed and stops it.
type RefreshLoop struct {
	monitor    *Monitor
	recorder   CycleRecorder
	onSnapshot func(*AnalyticsSnapshot)
	wake       chan struct{}

	mu      sync.Mutex
	state   LoopState
	lastErr error
	last    *AnalyticsSnapshot
	nextRun time.Time
}

// LoopOption configures a RefreshLoop.
type LoopOption func(*RefreshLoop)

// WithRecorder sets the cycle recorder.
func WithRecorder(r CycleRecorder) LoopOption {
	return func(l *RefreshLoop) { l.recorder = r }
}

// WithSnapshotHandler sets the callback invoked with every Ready snapshot.
func WithSnapshotHandler(fn func(*AnalyticsSnapshot)) LoopOption {
	return func(l *RefreshLoop) { l.onSnapshot = fn }
}

// NewRefreshLoop creates an idle loop driving m.
func NewRefreshLoop(m *Monitor, opts ...LoopOption) *RefreshLoop {
	l := &RefreshLoop{
		monitor: m,
		state:   StateIdle,
		wake:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Run ticks once immediately, then whenever the snapshot expires. It returns
// the cycle error on failure, or ctx.Err() when cancelled.
func (l *RefreshLoop) Run(ctx context.Context) error {
	_, policy := l.monitor.Settings()
	slog.Info("refresh: loop starting", slog.Duration("interval", policy.Interval))

	if err := l.tick(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(l.untilNext())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := l.tick(ctx); err != nil {
				return err
			}
			timer.Reset(l.untilNext())
		case <-l.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(l.untilNext())
		case <-ctx.Done():
			l.setState(StateIdle, nil, nil)
			slog.Info("refresh: loop stopping (context cancelled)")
			return ctx.Err()
		}
	}
}

// Reconfigure applies new settings and reschedules the next tick.
func (l *RefreshLoop) Reconfigure(channelID string, refreshSeconds int) error {
	if err := l.monitor.Configure(channelID, refreshSeconds); err != nil {
		return err
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Resumed fires after Reconfigure. A supervisor waits on it to restart a
// loop that halted in StateFailed.
func (l *RefreshLoop) Resumed() <-chan struct{} {
	return l.wake
}

// Status returns the current loop state.
func (l *RefreshLoop) Status() LoopStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoopStatus{State: l.state, LastErr: l.lastErr, Snapshot: l.last, NextRun: l.nextRun}
}

// tick runs one cycle through the Monitor.
func (l *RefreshLoop) tick(ctx context.Context) error {
	channelID, _ := l.monitor.Settings()
	start := time.Now()
	l.setState(StateFetching, nil, nil)

	snap, err := l.monitor.Snapshot(ctx)

	rec := CycleRecord{ChannelID: channelID, StartedAt: start, FinishedAt: time.Now()}
	if err != nil && ctx.Err() != nil {
		l.setState(StateIdle, nil, nil)
		return ctx.Err()
	}
	if err != nil {
		rec.State = StateFailed
		rec.Error = err.Error()
		l.setState(StateFailed, err, nil)
		l.record(ctx, rec)
		slog.Error("refresh: cycle failed, loop halted",
			slog.String("channel", channelID), slog.Any("error", err))
		return err
	}

	rec.State = StateReady
	rec.Videos = len(snap.Records)
	l.setState(StateReady, nil, snap)
	l.record(ctx, rec)
	slog.Info("refresh: snapshot ready",
		slog.String("channel", channelID),
		slog.Int("videos", len(snap.Records)),
		slog.Duration("elapsed", rec.FinishedAt.Sub(start).Round(time.Millisecond)))

	if l.onSnapshot != nil {
		l.onSnapshot(snap)
	}
	return nil
}

// untilNext returns the wait until the current snapshot expires under the
// active policy, or zero after a channel switch. Timers never fire early, so
// the next tick always refreshes.
func (l *RefreshLoop) untilNext() time.Duration {
	channelID, policy := l.monitor.Settings()
	l.mu.Lock()
	defer l.mu.Unlock()
	next := time.Now()
	if l.last != nil && l.last.ChannelID == channelID {
		next = l.last.FetchedAt.Add(policy.Interval)
	}
	l.nextRun = next
	return max(time.Until(next), 0)
}

func (l *RefreshLoop) setState(s LoopState, err error, snap *AnalyticsSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
	if s != StateIdle {
		l.lastErr = err
	}
	if snap != nil {
		l.last = snap
	}
}

func (l *RefreshLoop) record(ctx context.Context, rec CycleRecord) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.RecordCycle(ctx, rec); err != nil {
		slog.Warn("refresh: record cycle failed", slog.Any("error", err))
	}
}
