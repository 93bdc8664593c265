package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/syssam/quarry/dialect"
)

// StatementKind classifies a statement by its leading keyword.
type StatementKind uint8

// Statement kinds counted by QueryStats.
const (
	KindOther StatementKind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	numKinds
)

var kindNames = [numKinds]string{"other", "select", "insert", "update", "delete"}

// String implements the fmt.Stringer interface.
func (k StatementKind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "other"
}

// KindOf returns the kind of a statement. Leading spaces and parentheses are
// ignored; a WITH clause counts as a select.
func KindOf(query string) StatementKind {
	q := strings.TrimLeft(query, " \t\r\n(")
	if i := strings.IndexAny(q, " \t\r\n("); i >= 0 {
		q = q[:i]
	}
	switch strings.ToUpper(q) {
	case "SELECT", "WITH":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	}
	return KindOther
}

// QueryStats collects execution counters. It is safe for concurrent use.
type QueryStats struct {
	queries  atomic.Int64
	execs    atomic.Int64
	duration atomic.Int64 // nanoseconds
	slow     atomic.Int64
	errors   atomic.Int64
	kinds    [numKinds]atomic.Int64
}

func (s *QueryStats) observe(kind StatementKind, isQuery bool, d time.Duration, err error, slow bool) {
	if isQuery {
		s.queries.Add(1)
	} else {
		s.execs.Add(1)
	}
	s.kinds[kind].Add(1)
	s.duration.Add(int64(d))
	if err != nil {
		s.errors.Add(1)
	}
	if slow {
		s.slow.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.queries.Load(),
		TotalExecs:    s.execs.Load(),
		TotalDuration: time.Duration(s.duration.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errors.Load(),
		Selects:       s.kinds[KindSelect].Load(),
		Inserts:       s.kinds[KindInsert].Load(),
		Updates:       s.kinds[KindUpdate].Load(),
		Deletes:       s.kinds[KindDelete].Load(),
	}
}

// Reset sets all counters to zero.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.queries, &s.execs, &s.duration, &s.slow, &s.errors} {
		c.Store(0)
	}
	for i := range s.kinds {
		s.kinds[i].Store(0)
	}
}

// StatsSnapshot is a point-in-time copy of QueryStats. Queries and execs
// count the executor method used; the kind counters count statements by
// their leading keyword.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64

	Selects int64
	Inserts int64
	Updates int64
	Deletes int64
}

// AvgQueryDuration returns the mean duration of all statements.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String implements the fmt.Stringer interface.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d select=%d insert=%d update=%d delete=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.Selects, s.Inserts, s.Updates, s.Deletes,
		s.TotalDuration, s.AvgQueryDuration(), s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called for every statement slower than the threshold.
// Args are the parameter values in placeholder order.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver is a Session that counts the statements it executes,
// including those of its transactions.
type StatsDriver struct {
	Session
	stats *QueryStats

	mu            sync.RWMutex
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.slowThreshold = d }
}

// WithSlowQueryHook sets the function called for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.slowHook = hook }
}

// WithSlowQueryLog logs slow statements with slog at warning level.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		slog.WarnContext(ctx, "slow query detected",
			"kind", KindOf(query).String(),
			"duration", duration,
			"query", query,
			"args", args,
		)
	})
}

// NewStatsDriver wraps a Session with statistics collection.
//
//	stats := sql.NewStatsDriver(drv,
//		sql.WithSlowThreshold(200*time.Millisecond),
//		sql.WithSlowQueryLog(),
//	)
//	users, err := sql.Query[User](ctx, stats, query, params)
//	...
//	slog.Info("database", "stats", stats.QueryStats().Stats())
func NewStatsDriver(drv Session, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Session:       drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold changes the slow statement threshold at runtime.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query implements the Executor interface.
func (d *StatsDriver) Query(ctx context.Context, query string, params []dialect.Param) (*Rows, error) {
	start := time.Now()
	rows, err := d.Session.Query(ctx, query, params)
	d.record(ctx, query, params, start, err, true)
	return rows, err
}

// Exec implements the Executor interface.
func (d *StatsDriver) Exec(ctx context.Context, query string, params []dialect.Param) (sql.Result, error) {
	start := time.Now()
	res, err := d.Session.Exec(ctx, query, params)
	d.record(ctx, query, params, start, err, false)
	return res, err
}

func (d *StatsDriver) record(ctx context.Context, query string, params []dialect.Param, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	d.mu.RLock()
	threshold, hook := d.slowThreshold, d.slowHook
	d.mu.RUnlock()
	slow := duration > threshold
	d.stats.observe(KindOf(query), isQuery, duration, err, slow)
	if slow && hook != nil {
		hook(ctx, query, paramValues(params), duration)
	}
}

// Tx starts a transaction whose statements are counted by the driver.
func (d *StatsDriver) Tx(ctx context.Context) (Transaction, error) {
	tx, err := d.Session.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Transaction: tx, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	Transaction
	driver *StatsDriver
}

// Query implements the Executor interface.
func (tx *StatsTx) Query(ctx context.Context, query string, params []dialect.Param) (*Rows, error) {
	start := time.Now()
	rows, err := tx.Transaction.Query(ctx, query, params)
	tx.driver.record(ctx, query, params, start, err, true)
	return rows, err
}

// Exec implements the Executor interface.
func (tx *StatsTx) Exec(ctx context.Context, query string, params []dialect.Param) (sql.Result, error) {
	start := time.Now()
	res, err := tx.Transaction.Exec(ctx, query, params)
	tx.driver.record(ctx, query, params, start, err, false)
	return res, err
}

// DebugDriver is a Session that logs every statement with its bound
// parameters before executing it.
type DebugDriver struct {
	Session
	log func(context.Context, ...any)
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog replaces the default slog output.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) { d.log = logFunc }
}

// NewDebugDriver wraps a Session with statement logging. Statements are
// logged with their @pN placeholders, before rebinding.
func NewDebugDriver(drv Session, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Session: drv,
		log: func(ctx context.Context, v ...any) {
			slog.InfoContext(ctx, fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query implements the Executor interface.
func (d *DebugDriver) Query(ctx context.Context, query string, params []dialect.Param) (*Rows, error) {
	d.log(ctx, fmt.Sprintf("query: %s args: %v", query, params))
	return d.Session.Query(ctx, query, params)
}

// Exec implements the Executor interface.
func (d *DebugDriver) Exec(ctx context.Context, query string, params []dialect.Param) (sql.Result, error) {
	d.log(ctx, fmt.Sprintf("exec: %s args: %v", query, params))
	return d.Session.Exec(ctx, query, params)
}

// Tx starts a logged transaction.
func (d *DebugDriver) Tx(ctx context.Context) (Transaction, error) {
	d.log(ctx, "begin transaction")
	tx, err := d.Session.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Transaction: tx, ctx: ctx, log: d.log}, nil
}

// DebugTx is a transaction of a DebugDriver.
type DebugTx struct {
	Transaction
	ctx context.Context
	log func(context.Context, ...any)
}

// Query implements the Executor interface.
func (tx *DebugTx) Query(ctx context.Context, query string, params []dialect.Param) (*Rows, error) {
	tx.log(ctx, fmt.Sprintf("tx query: %s args: %v", query, params))
	return tx.Transaction.Query(ctx, query, params)
}

// Exec implements the Executor interface.
func (tx *DebugTx) Exec(ctx context.Context, query string, params []dialect.Param) (sql.Result, error) {
	tx.log(ctx, fmt.Sprintf("tx exec: %s args: %v", query, params))
	return tx.Transaction.Exec(ctx, query, params)
}

// Commit logs and commits the transaction. It is logged with the context
// the transaction was started with.
func (tx *DebugTx) Commit() error {
	tx.log(tx.ctx, "commit transaction")
	return tx.Transaction.Commit()
}

// Rollback logs and rolls back the transaction.
func (tx *DebugTx) Rollback() error {
	tx.log(tx.ctx, "rollback transaction")
	return tx.Transaction.Rollback()
}

var (
	_ Session     = (*StatsDriver)(nil)
	_ Transaction = (*StatsTx)(nil)
	_ Session     = (*DebugDriver)(nil)
	_ Transaction = (*DebugTx)(nil)
)

func paramValues(params []dialect.Param) []any {
	return lo.Map(params, func(p dialect.Param, _ int) any { return p.Value })
}
