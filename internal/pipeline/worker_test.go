package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/isdaudit/internal/extract"
	"github.com/dgallion1/isdaudit/internal/history"
	"github.com/dgallion1/isdaudit/internal/reports"
)

const auditText = `Sample Independent School District
For the year ended August 31, 2023
STATEMENT OF NET POSITION
Total Assets $ 1,000,000
Total Liabilities $ 400,000
Net Position $ 600,000
`

type fakeReports struct {
	mu      sync.Mutex
	byHash  map[string]reports.Report
	saveErr error
	saved   int
}

func newFakeReports() *fakeReports {
	return &fakeReports{byHash: make(map[string]reports.Report)}
}

func (f *fakeReports) FindByHash(_ context.Context, hash string) (reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byHash[hash]
	if !ok {
		return reports.Report{}, reports.ErrNotFound
	}
	return r, nil
}

func (f *fakeReports) Save(_ context.Context, filename, hash string, rec extract.FinancialRecord) (reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return reports.Report{}, f.saveErr
	}
	f.saved++
	r := reports.Report{Key: reports.Key(filename), Filename: filename, ContentHash: hash, Data: rec}
	f.byHash[hash] = r
	return r, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (n *fakeNotifier) Deliver(_ context.Context, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	return n.err
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, history.Session) error {
	return errors.New("database is locked")
}

func (failingHistory) List(context.Context) ([]history.Session, error) { return nil, nil }

func (failingHistory) Clear(context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerProcessCompletes(t *testing.T) {
	rep := newFakeReports()
	hist := history.NewMemoryStore()
	hook := &fakeNotifier{}
	w := NewWorker(Deps{
		Reports:  rep,
		History:  history.NewRecorder(hist, discardLogger()),
		Notifier: hook,
	}, discardLogger())

	job := NewJob("sample.txt", []byte(auditText), false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, "errors: %v", snap.Errors)
	require.NotNil(t, snap.Result)
	assert.Equal(t, extract.NetPosition{TotalAssets: 1000000, TotalLiabilities: 400000, NetPosition: 600000}, snap.Result.Record.NetPosition)
	assert.Equal(t, "sample independent school district", snap.Result.Record.DistrictName)
	assert.Equal(t, "2023", snap.Result.Record.FiscalYear)
	assert.Equal(t, "sample.txt", snap.Result.ReportKey)
	assert.NotEmpty(t, snap.ContentHash)

	sessions, err := hist.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sample.txt", sessions[0].Filename)
	require.Len(t, hook.payloads, 1)
	assert.Equal(t, 1, rep.saved)
}

func TestWorkerSkipsDuplicatesUnlessForced(t *testing.T) {
	rep := newFakeReports()
	w := NewWorker(Deps{Reports: rep}, discardLogger())

	first := NewJob("a.txt", []byte(auditText), false)
	w.Process(context.Background(), first)
	require.Equal(t, StatusCompleted, first.Snapshot().Status)

	dup := NewJob("b.txt", []byte(auditText), false)
	w.Process(context.Background(), dup)
	snap := dup.Snapshot()
	assert.Equal(t, StatusDupSkipped, snap.Status)
	assert.Equal(t, "a.txt", snap.Result.ReportKey)

	forced := NewJob("b.txt", []byte(auditText), true)
	w.Process(context.Background(), forced)
	assert.Equal(t, StatusCompleted, forced.Snapshot().Status)
	assert.Equal(t, 2, rep.saved)
}

func TestWorkerPartialWhenStorageFails(t *testing.T) {
	rep := newFakeReports()
	rep.saveErr = errors.New("disk full")
	w := NewWorker(Deps{
		Reports:  rep,
		History:  history.NewRecorder(failingHistory{}, discardLogger()),
		Notifier: &fakeNotifier{err: errors.New("status 500")},
	}, discardLogger())

	job := NewJob("a.txt", []byte(auditText), false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Len(t, snap.Errors, 3)
	assert.Equal(t, int64(1000000), snap.Result.Record.NetPosition.TotalAssets)
}

func TestWorkerFailsOnUnreadableSource(t *testing.T) {
	w := NewWorker(Deps{}, discardLogger())

	unsupported := NewJob("a.xls", []byte("x"), false)
	w.Process(context.Background(), unsupported)
	assert.Equal(t, StatusFailed, unsupported.Snapshot().Status)

	corrupt := NewJob("a.pdf", []byte("not a pdf"), false)
	w.Process(context.Background(), corrupt)
	snap := corrupt.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "source unavailable")
}

func TestWorkerEmptyDocumentStillCompletes(t *testing.T) {
	w := NewWorker(Deps{}, discardLogger())
	job := NewJob("empty.txt", nil, false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, extract.FinancialRecord{}, snap.Result.Record)
}

func TestOrchestratorProcessesInOrder(t *testing.T) {
	hist := history.NewMemoryStore()
	o := NewOrchestrator(Options{MaxQueueSize: 4}, Deps{
		History: history.NewRecorder(hist, discardLogger()),
	}, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var jobs []*Job
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		job := NewJob(name, []byte(auditText), false)
		require.NoError(t, o.Enqueue(ctx, job))
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		snap, err := job.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, snap.Status)
		assert.Same(t, job, o.GetJob(job.ID))
	}

	sessions, err := hist.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "three.txt", sessions[0].Filename)
	assert.Equal(t, 3, o.Stats().Count)
}

func TestOrchestratorSubmitQueueFull(t *testing.T) {
	o := NewOrchestrator(Options{MaxQueueSize: 1}, Deps{}, discardLogger())
	// Not started: nothing drains the queue.
	require.NoError(t, o.Submit(NewJob("a.txt", nil, false)))

	job := NewJob("b.txt", nil, false)
	err := o.Submit(job)
	assert.ErrorContains(t, err, "queue is full")
	assert.Equal(t, StatusFailed, job.Snapshot().Status)
	assert.Equal(t, 1, o.QueueDepth())

	o.Stop()
	assert.Zero(t, o.QueueDepth())
}
