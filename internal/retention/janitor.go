// Package retention runs the periodic purge that keeps the content store
// bounded: records older than the retention horizon and idempotency keys
// past their TTL are deleted on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// runTimeout bounds a single scheduled run.
const runTimeout = 2 * time.Minute

// Purger is the subset of the dedup service the janitor drives.
type Purger interface {
	Purge(ctx context.Context, olderThanDays int) (int64, error)
	ExpireIdempotency(ctx context.Context) (int64, error)
}

// Result reports what a single run removed.
type Result struct {
	Records     int64
	Idempotency int64
}

// Janitor schedules retention runs. The zero value is not usable; call New.
type Janitor struct {
	purger        Purger
	retentionDays int
	schedule      string

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

// New validates schedule and returns a stopped Janitor. Both standard
// five-field specs ("0 3 * * *") and descriptors ("@every 6h", "@daily")
// are accepted. An empty schedule yields a Janitor whose Start is a no-op.
func New(p Purger, retentionDays int, schedule string) (*Janitor, error) {
	if p == nil {
		return nil, errors.New("retention: nil purger")
	}
	if retentionDays < 0 {
		return nil, fmt.Errorf("retention: negative retention days %d", retentionDays)
	}
	schedule = strings.TrimSpace(schedule)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	j := &Janitor{
		purger:        p,
		retentionDays: retentionDays,
		schedule:      schedule,
		cron:          cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
	if schedule == "" {
		return j, nil
	}

	id, err := j.cron.AddFunc(schedule, j.tick)
	if err != nil {
		return nil, fmt.Errorf("retention: invalid schedule %q: %w", schedule, err)
	}
	j.entryID = id
	return j, nil
}

// Enabled reports whether a schedule is configured.
func (j *Janitor) Enabled() bool { return j.schedule != "" }

// Start begins running on the schedule. Calling Start twice is harmless.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.Enabled() || j.running {
		return
	}
	j.cron.Start()
	j.running = true
	log.Info().
		Str("schedule", j.schedule).
		Int("retention_days", j.retentionDays).
		Msg("retention janitor started")
}

// Stop halts the scheduler and waits for an in-flight run (or ctx) to finish.
func (j *Janitor) Stop(ctx context.Context) {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("retention janitor stop timed out")
		return
	}
	log.Info().Msg("retention janitor stopped")
}

// Next returns the next scheduled run time, or zero when not running.
func (j *Janitor) Next() time.Time {
	if !j.Enabled() {
		return time.Time{}
	}
	return j.cron.Entry(j.entryID).Next
}

// RunOnce purges aged records and expired idempotency keys immediately.
// Both steps are attempted; their errors are joined.
func (j *Janitor) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	var errs []error

	n, err := j.purger.Purge(ctx, j.retentionDays)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge records: %w", err))
	}
	res.Records = n

	m, err := j.purger.ExpireIdempotency(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire idempotency: %w", err))
	}
	res.Idempotency = m

	return res, errors.Join(errs...)
}

func (j *Janitor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	res, err := j.RunOnce(ctx)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int64("records_deleted", res.Records).
		Int64("idempotency_deleted", res.Idempotency).
		Int("retention_days", j.retentionDays).
		Dur("took", time.Since(start)).
		Msg("retention run")
}
