package txn

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// MetricsRecorder receives commit/abort/retry notifications from every Txn
// built by a Manager. github.com/lever-go/stm/stmmetrics.Collector satisfies
// this interface; it is declared here rather than imported so that txn never
// depends on the OTel SDK directly.
type MetricsRecorder interface {
	RecordCommit(isolation string)
	RecordAbort(isolation string)
	RecordRetry(isolation string)
}

// Manager owns the monotone version clock and the TVar-id dispenser. Both
// are per-instance rather than package globals, so independent tables and
// tests never share a clock.
type Manager struct {
	versionClock atomic.Uint64
	nextTVarID   atomic.Uint64
	logger       *slog.Logger
	metrics      MetricsRecorder
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger installs a custom *slog.Logger on the manager.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics attaches a MetricsRecorder that every Txn built by this
// Manager reports commit/abort/retry outcomes to. Unset by default: a
// Manager with no recorder simply skips the bookkeeping.
func WithMetrics(r MetricsRecorder) ManagerOption {
	return func(m *Manager) { m.metrics = r }
}

// NewManager constructs a Manager with its version clock and id dispenser
// initialized to zero.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// dispenseTVarID returns the next TVar id, unique within this Manager.
func (m *Manager) dispenseTVarID() uint64 {
	return m.nextTVarID.Add(1)
}

// gvc returns the current value of the version clock without advancing it.
func (m *Manager) gvc() uint64 {
	return m.versionClock.Load()
}

// beginAttempt samples the version clock for a fresh read-timestamp.
func (m *Manager) beginAttempt() uint64 {
	return m.gvc()
}

// newWriteStamp draws a fresh write-stamp. Called only after successful
// validation and lock acquisition, immediately before publication.
func (m *Manager) newWriteStamp() uint64 {
	return m.versionClock.Add(1)
}

// Build validates cfg and constructs a Txn bound to this manager. It is the
// sole place {Optimistic,ReadCommitted} and any Pessimistic combination are
// refused.
func (m *Manager) Build(cfg Config) (*Txn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Txn{
		mgr:    m,
		cfg:    cfg,
		state:  Unknown,
		reads:  make(map[uint64]*readEntry),
		writes: make(map[uint64]*writeEntry),
	}, nil
}
