package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
	"github.com/cassiomorais/gateway-reconciler/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway-reconciler/internal/testutil"
)

type fakeLock struct {
	available  bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	return f.available, f.acquireErr
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	return nil
}

type fakeCheckpoints struct {
	ts   time.Time
	sets []time.Time
}

func (f *fakeCheckpoints) Get(ctx context.Context) (time.Time, error) {
	return f.ts, nil
}

func (f *fakeCheckpoints) Set(ctx context.Context, ts time.Time) error {
	f.ts = ts
	f.sets = append(f.sets, ts)
	return nil
}

type replayRecorder struct {
	events   []notification.Event
	outcome  reconciliation.Outcome
	errOn    string
	err      error
	errCount int
}

func (r *replayRecorder) ProcessNotification(ctx context.Context, ev notification.Event) (reconciliation.Outcome, error) {
	if r.errOn != "" && ev.PSPReference == r.errOn {
		r.errCount++
		return reconciliation.Outcome{}, r.err
	}
	r.events = append(r.events, ev)
	return r.outcome, nil
}

func orphanEntry(psp string, recordedAt time.Time) *reconciliation.JournalEntry {
	intent := notification.IntentCapture
	return &reconciliation.JournalEntry{
		ID:         uuid.New(),
		Intent:     &intent,
		Event:      testutil.NewTestEvent("CAPTURE", psp),
		RecordedAt: recordedAt,
	}
}

func newSweeper(store *testutil.MockStore, proc *replayRecorder, lock *fakeLock, cps *fakeCheckpoints, now time.Time) *Sweeper {
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	s := NewSweeper(store, proc, lock, cps, Config{
		Interval:  time.Minute,
		BatchSize: 10,
		Lookback:  24 * time.Hour,
	}, metrics, zerolog.Nop())
	return s.WithClock(func() time.Time { return now })
}

func TestSweepSkipsWhenLockHeldElsewhere(t *testing.T) {
	store := testutil.NewMockStore()
	proc := &replayRecorder{}
	lock := &fakeLock{available: false}
	cps := &fakeCheckpoints{}

	s := newSweeper(store, proc, lock, cps, time.Now())

	require.NoError(t, s.Sweep(context.Background()))
	assert.Empty(t, proc.events)
	assert.Zero(t, lock.releases)
}

func TestSweepReplaysOrphansAndAdvancesCheckpoint(t *testing.T) {
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	store := testutil.NewMockStore()
	first := orphanEntry("psp-1", now.Add(-2*time.Hour))
	second := orphanEntry("psp-2", now.Add(-time.Hour))
	store.Journal = append(store.Journal, first, second)

	proc := &replayRecorder{outcome: reconciliation.Outcome{Action: reconciliation.ActionCreatedPayment}}
	lock := &fakeLock{available: true}
	cps := &fakeCheckpoints{ts: now.Add(-3 * time.Hour)}

	s := newSweeper(store, proc, lock, cps, now)

	require.NoError(t, s.Sweep(context.Background()))

	require.Len(t, proc.events, 2)
	assert.Equal(t, "psp-1", proc.events[0].PSPReference)
	assert.Equal(t, "psp-2", proc.events[1].PSPReference)
	assert.True(t, cps.ts.Equal(second.RecordedAt))
	assert.Equal(t, 1, lock.releases)
}

func TestSweepHonorsCheckpoint(t *testing.T) {
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	store := testutil.NewMockStore()
	old := orphanEntry("psp-old", now.Add(-2*time.Hour))
	fresh := orphanEntry("psp-new", now.Add(-30*time.Minute))
	store.Journal = append(store.Journal, old, fresh)

	proc := &replayRecorder{outcome: reconciliation.Outcome{Action: reconciliation.ActionJournaledOnly}}
	lock := &fakeLock{available: true}
	cps := &fakeCheckpoints{ts: now.Add(-time.Hour)}

	s := newSweeper(store, proc, lock, cps, now)

	require.NoError(t, s.Sweep(context.Background()))

	require.Len(t, proc.events, 1)
	assert.Equal(t, "psp-new", proc.events[0].PSPReference)
}

func TestSweepCapsLookbackWithoutCheckpoint(t *testing.T) {
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	store := testutil.NewMockStore()
	ancient := orphanEntry("psp-ancient", now.Add(-48*time.Hour))
	recent := orphanEntry("psp-recent", now.Add(-time.Hour))
	store.Journal = append(store.Journal, ancient, recent)

	proc := &replayRecorder{outcome: reconciliation.Outcome{Action: reconciliation.ActionJournaledOnly}}
	lock := &fakeLock{available: true}
	cps := &fakeCheckpoints{}

	s := newSweeper(store, proc, lock, cps, now)

	require.NoError(t, s.Sweep(context.Background()))

	require.Len(t, proc.events, 1)
	assert.Equal(t, "psp-recent", proc.events[0].PSPReference)
}

func TestSweepStopsOnRetryableFailure(t *testing.T) {
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	store := testutil.NewMockStore()
	first := orphanEntry("psp-1", now.Add(-2*time.Hour))
	failing := orphanEntry("psp-2", now.Add(-time.Hour))
	store.Journal = append(store.Journal, first, failing)

	proc := &replayRecorder{
		outcome: reconciliation.Outcome{Action: reconciliation.ActionCreatedPayment},
		errOn:   "psp-2",
		err:     domainErrors.Retryable("notify transaction state", errors.New("platform down")),
	}
	lock := &fakeLock{available: true}
	cps := &fakeCheckpoints{ts: now.Add(-3 * time.Hour)}

	s := newSweeper(store, proc, lock, cps, now)

	err := s.Sweep(context.Background())
	require.Error(t, err)

	// Checkpoint sits after the replayed entry but before the failed one.
	require.Len(t, proc.events, 1)
	assert.True(t, cps.ts.Equal(first.RecordedAt))
	assert.Equal(t, 1, lock.releases)
}

func TestSweepSkipsFatalOrphanAndContinues(t *testing.T) {
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	store := testutil.NewMockStore()
	poisoned := orphanEntry("psp-bad", now.Add(-2*time.Hour))
	later := orphanEntry("psp-good", now.Add(-time.Hour))
	store.Journal = append(store.Journal, poisoned, later)

	proc := &replayRecorder{
		outcome: reconciliation.Outcome{Action: reconciliation.ActionCreatedPayment},
		errOn:   "psp-bad",
		err:     domainErrors.Fatal(`parse currency "XXX"`, domainErrors.ErrUnknownCurrency),
	}
	lock := &fakeLock{available: true}
	cps := &fakeCheckpoints{ts: now.Add(-3 * time.Hour)}

	s := newSweeper(store, proc, lock, cps, now)

	// The fatal entry cannot be repaired by replaying it, so the pass keeps
	// going and the checkpoint moves past it.
	require.NoError(t, s.Sweep(context.Background()))
	require.Len(t, proc.events, 1)
	assert.Equal(t, "psp-good", proc.events[0].PSPReference)
	assert.True(t, cps.ts.Equal(later.RecordedAt))

	// A second pass must not re-fail on the poisoned entry.
	require.NoError(t, s.Sweep(context.Background()))
	assert.Equal(t, 1, proc.errCount)
}

func TestSweepEmptyJournalLeavesCheckpointAlone(t *testing.T) {
	store := testutil.NewMockStore()
	proc := &replayRecorder{}
	lock := &fakeLock{available: true}
	cps := &fakeCheckpoints{ts: time.Now().Add(-time.Hour)}

	s := newSweeper(store, proc, lock, cps, time.Now())

	require.NoError(t, s.Sweep(context.Background()))
	assert.Empty(t, cps.sets)
}
