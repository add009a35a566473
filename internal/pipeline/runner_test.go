package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dunamismax/blastflow/internal/blast"
	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const hitReport = `<BlastOutput><BlastOutput_iterations><Iteration><Iteration_hits>
<Hit><Hit_def>insulin [Homo sapiens]</Hit_def><Hit_accession>NP_000198</Hit_accession>
<Hit_hsps><Hsp><Hsp_bit-score>227.6</Hsp_bit-score><Hsp_evalue>1.2e-75</Hsp_evalue></Hsp></Hit_hsps></Hit>
</Iteration_hits></Iteration></BlastOutput_iterations></BlastOutput>`

// scriptedAccession describes how the fake search service treats one accession.
type scriptedAccession struct {
	fetchErr  error
	submitErr error
	status    blast.PollStatus
	result    string
	resultErr error
	gene      string
	panics    bool
}

type fakeSearch struct {
	mu       sync.Mutex
	script   map[string]scriptedAccession
	byRID    map[string]string
	taxIDs   []string
	budgets  []time.Duration
	geneRefs []string
}

func newFakeSearch(script map[string]scriptedAccession) *fakeSearch {
	return &fakeSearch{script: script, byRID: make(map[string]string)}
}

func (f *fakeSearch) FetchSequence(_ context.Context, accession string) (string, error) {
	s := f.script[accession]
	if s.panics {
		panic("boom")
	}
	if s.fetchErr != nil {
		return "", s.fetchErr
	}
	return ">" + accession + "\nMALW", nil
}

func (f *fakeSearch) Submit(_ context.Context, sequence, taxID string) (string, error) {
	accession := sequence[1:len(sequence)-5]
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taxIDs = append(f.taxIDs, taxID)
	if err := f.script[accession].submitErr; err != nil {
		return "", err
	}
	rid := "RID-" + accession
	f.byRID[rid] = accession
	return rid, nil
}

func (f *fakeSearch) Poll(_ context.Context, rid string, budget time.Duration) (blast.PollStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgets = append(f.budgets, budget)
	return f.script[f.byRID[rid]].status, nil
}

func (f *fakeSearch) FetchResult(_ context.Context, rid string) (string, error) {
	f.mu.Lock()
	s := f.script[f.byRID[rid]]
	f.mu.Unlock()
	if s.resultErr != nil {
		return "", s.resultErr
	}
	return s.result, nil
}

func (f *fakeSearch) GeneSymbol(_ context.Context, accession string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geneRefs = append(f.geneRefs, accession)
	for _, s := range f.script {
		if s.gene != "" {
			return s.gene
		}
	}
	return "NA"
}

type reported struct {
	jobID string
	step  string
	err   error
}

type captureSink struct {
	mu      sync.Mutex
	reports []reported
}

func (s *captureSink) Report(_ context.Context, jobID, step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, reported{jobID: jobID, step: step, err: err})
}

func (s *captureSink) steps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r.step)
	}
	return out
}

// progressRecorder wraps the memory store and remembers every progress
// value and status it observed.
type progressRecorder struct {
	*store.MemoryStore
	mu       sync.Mutex
	progress []int
	failStep string
}

func (p *progressRecorder) UpdateProgress(ctx context.Context, id string, progress int) error {
	if p.failStep == StepUpdateProgress {
		return errors.New("progress write failed")
	}
	p.mu.Lock()
	p.progress = append(p.progress, progress)
	p.mu.Unlock()
	return p.MemoryStore.UpdateProgress(ctx, id, progress)
}

func (p *progressRecorder) AppendResult(ctx context.Context, r domain.ResultRecord) error {
	if p.failStep == StepAppendResult {
		return errors.New("result write failed")
	}
	return p.MemoryStore.AppendResult(ctx, r)
}

func (p *progressRecorder) MarkRunning(ctx context.Context, id string) error {
	if p.failStep == StepMarkRunning {
		return errors.New("database unavailable")
	}
	return p.MemoryStore.MarkRunning(ctx, id)
}

func seedJob(t *testing.T, s *store.MemoryStore, jobID string) {
	t.Helper()
	require.NoError(t, s.CreateJob(context.Background(), domain.Job{
		ID:        jobID,
		Organism:  "human",
		Status:    domain.JobStatusRunning,
		CreatedAt: time.Now().UTC(),
	}))
}

func newTestRunner(t *testing.T, search SearchClient, w JobWriter, opts Options) *Runner {
	t.Helper()
	opts.Client = search
	opts.Store = w
	opts.RequestDelay = -1
	runner, err := NewRunner(opts)
	require.NoError(t, err)
	return runner
}

func TestRunScenarioHitAndFetchFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-1")

	search := newFakeSearch(map[string]scriptedAccession{
		"P01308": {status: blast.StatusReady, result: hitReport, gene: "INS"},
		"BAD1":   {fetchErr: &blast.Error{Op: blast.OpFetchSequence, Target: "BAD1", Err: errors.New("unexpected status 400")}},
	})
	runner := newTestRunner(t, search, mem, Options{})

	summary, err := runner.Run(ctx, Request{JobID: "job-1", Organism: "human", Accessions: []string{"P01308", "BAD1"}, TimeoutSeconds: 900})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusDone, summary.Status)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Hits)
	assert.Equal(t, 1, summary.Errors)

	job, ok, err := mem.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusDone, job.Status)
	assert.Equal(t, 100, job.Progress)

	results, err := mem.ListResults(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "P01308", results[0].Accession)
	assert.Equal(t, "NP_000198", results[0].TopHit)
	assert.Equal(t, "INS", results[0].Gene)
	assert.Equal(t, "Homo sapiens", results[0].Species)
	assert.Equal(t, "227.6", results[0].BitScore)
	assert.Equal(t, "1.2e-75", results[0].EValue)

	assert.Equal(t, "BAD1", results[1].Accession)
	assert.Equal(t, domain.OutcomeError, results[1].TopHit)
	assert.Equal(t, domain.OutcomeError, results[1].Gene)
	assert.Contains(t, results[1].Species, "failed to fetch FASTA for BAD1")
	assert.Equal(t, "NA", results[1].BitScore)
	assert.Equal(t, "NA", results[1].EValue)

	assert.Equal(t, []string{"9606"}, search.taxIDs)
	assert.Equal(t, []time.Duration{900 * time.Second}, search.budgets)
	assert.Equal(t, []string{"NP_000198"}, search.geneRefs)
}

func TestRunOutcomesPerPollStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-2")

	search := newFakeSearch(map[string]scriptedAccession{
		"NOHIT":   {status: blast.StatusNoHits},
		"SLOW":    {status: blast.StatusTimeout},
		"FAILED":  {status: blast.StatusFailed},
		"GARBAGE": {status: blast.StatusReady, result: "<BlastOutput><Hit>"},
		"SUBMIT":  {submitErr: &blast.Error{Op: blast.OpSubmit, Err: errors.New("no RID in response")}},
		"EMPTY":   {status: blast.StatusReady, result: "<BlastOutput></BlastOutput>"},
	})
	runner := newTestRunner(t, search, mem, Options{})

	accessions := []string{"NOHIT", "SLOW", "FAILED", "GARBAGE", "SUBMIT", "EMPTY"}
	_, err := runner.Run(ctx, Request{JobID: "job-2", Organism: "zebrafish", Accessions: accessions})
	require.NoError(t, err)

	results, err := mem.ListResults(ctx, "job-2")
	require.NoError(t, err)
	require.Len(t, results, len(accessions))

	noHit := results[0]
	assert.Equal(t, []string{"No hit", "No hit", "No hit", "No hit", "No hit"},
		[]string{noHit.TopHit, noHit.Gene, noHit.Species, noHit.BitScore, noHit.EValue})

	timedOut := results[1]
	assert.Equal(t, "TIMEOUT", timedOut.TopHit)
	assert.Equal(t, "TIMEOUT", timedOut.Gene)
	assert.Equal(t, "BLAST search timed out", timedOut.Species)
	assert.Equal(t, "NA", timedOut.BitScore)

	failed := results[2]
	assert.Equal(t, []string{"NA", "NA", "NA", "NA", "NA"},
		[]string{failed.TopHit, failed.Gene, failed.Species, failed.BitScore, failed.EValue})

	assert.Equal(t, domain.OutcomeError, results[3].TopHit)
	assert.Contains(t, results[3].Species, "parse BLAST XML")

	assert.Equal(t, domain.OutcomeError, results[4].TopHit)
	assert.Contains(t, results[4].Species, "failed to submit BLAST search")

	empty := results[5]
	assert.Equal(t, "NA", empty.TopHit)
	assert.Equal(t, "NA", empty.Gene)

	// Gene lookup never runs for a report without hits.
	assert.Empty(t, search.geneRefs)
	assert.Equal(t, time.Duration(0), search.budgets[0])
}

func TestRunIsolatesPanickingAccession(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-3")

	search := newFakeSearch(map[string]scriptedAccession{
		"CRASH": {panics: true},
		"OK":    {status: blast.StatusNoHits},
	})
	runner := newTestRunner(t, search, mem, Options{})

	_, err := runner.Run(ctx, Request{JobID: "job-3", Accessions: []string{"CRASH", "OK"}})
	require.NoError(t, err)

	results, err := mem.ListResults(ctx, "job-3")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeError, results[0].TopHit)
	assert.Contains(t, results[0].Species, "boom")
	assert.Equal(t, domain.OutcomeNoHit, results[1].TopHit)
}

func TestRunProgressIsMonotoneAndHundredOnlyWhenDone(t *testing.T) {
	ctx := context.Background()
	rec := &progressRecorder{MemoryStore: store.NewMemoryStore()}
	seedJob(t, rec.MemoryStore, "job-4")

	script := map[string]scriptedAccession{}
	accessions := []string{"A1", "A2", "A3"}
	for _, acc := range accessions {
		script[acc] = scriptedAccession{status: blast.StatusNoHits}
	}
	runner := newTestRunner(t, newFakeSearch(script), rec, Options{})

	_, err := runner.Run(ctx, Request{JobID: "job-4", Accessions: accessions})
	require.NoError(t, err)

	assert.Equal(t, []int{33, 66}, rec.progress)

	job, _, _ := rec.GetJob(ctx, "job-4")
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, domain.JobStatusDone, job.Status)
}

func TestRunMarkRunningFailureAbortsJob(t *testing.T) {
	ctx := context.Background()
	rec := &progressRecorder{MemoryStore: store.NewMemoryStore(), failStep: StepMarkRunning}
	seedJob(t, rec.MemoryStore, "job-5")
	sink := &captureSink{}

	search := newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusNoHits}})
	runner := newTestRunner(t, search, rec, Options{Sink: sink})

	_, err := runner.Run(ctx, Request{JobID: "job-5", Accessions: []string{"A1"}})
	require.Error(t, err)

	results, _ := rec.ListResults(ctx, "job-5")
	assert.Empty(t, results)
	assert.Empty(t, search.budgets)
	assert.Equal(t, []string{StepMarkRunning}, sink.steps())

	job, _, _ := rec.GetJob(ctx, "job-5")
	assert.NotEqual(t, domain.JobStatusDone, job.Status)
}

func TestRunReportsSwallowedWriteFailures(t *testing.T) {
	ctx := context.Background()
	rec := &progressRecorder{MemoryStore: store.NewMemoryStore(), failStep: StepUpdateProgress}
	seedJob(t, rec.MemoryStore, "job-6")
	sink := &captureSink{}

	search := newFakeSearch(map[string]scriptedAccession{
		"A1": {status: blast.StatusNoHits},
		"A2": {status: blast.StatusReady, result: hitReport, gene: "INS"},
	})
	artifacts := &failingArtifacts{}
	runner := newTestRunner(t, search, rec, Options{Sink: sink, Artifacts: artifacts})

	_, err := runner.Run(ctx, Request{JobID: "job-6", Accessions: []string{"A1", "A2"}})
	require.NoError(t, err)

	assert.Equal(t, []string{StepUpdateProgress, StepSaveArtifact}, sink.steps())

	results, _ := rec.ListResults(ctx, "job-6")
	require.Len(t, results, 2)
	assert.Equal(t, "NP_000198", results[1].TopHit, "artifact failure must not change the row")

	job, _, _ := rec.GetJob(ctx, "job-6")
	assert.Equal(t, domain.JobStatusDone, job.Status)
}

func TestRunDeletedJobKeepsGoing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	sink := &captureSink{}

	search := newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusNoHits}, "A2": {status: blast.StatusNoHits}})
	runner := newTestRunner(t, search, &deletingStore{MemoryStore: mem}, Options{Sink: sink})
	seedJob(t, mem, "job-7")

	summary, err := runner.Run(ctx, Request{JobID: "job-7", Accessions: []string{"A1", "A2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, []string{StepUpdateProgress, StepMarkDone}, sink.steps())

	orphans, _ := mem.ListResults(ctx, "job-7")
	assert.Len(t, orphans, 1, "rows written after deletion stay behind")
}

func TestRunNotifiesOnCompletion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-8")
	notifier := &captureNotifier{}

	search := newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusTimeout}})
	runner := newTestRunner(t, search, mem, Options{Notifier: notifier})

	_, err := runner.Run(ctx, Request{JobID: "job-8", UserID: 42, Organism: "Human", Accessions: []string{"A1"}})
	require.NoError(t, err)

	require.Len(t, notifier.summaries, 1)
	got := notifier.summaries[0]
	assert.Equal(t, "job-8", got.JobID)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "human", got.Organism)
	assert.Equal(t, domain.JobStatusDone, got.Status)
	assert.Equal(t, 1, got.Timeouts)
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-9")

	search := newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusNoHits}})
	runner, err := NewRunner(Options{Client: search, Store: mem, RequestDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = runner.Run(ctx, Request{JobID: "job-9", Accessions: []string{"A1"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	job, _, _ := mem.GetJob(context.Background(), "job-9")
	assert.Equal(t, domain.JobStatusRunning, job.Status)
}

func TestLogSinkLogsAndCounts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sink := NewLogSink(zap.New(core), metrics)

	sink.Report(context.Background(), "job-1", StepAppendResult, errors.New("disk full"))

	entries := logs.FilterMessage("non-fatal pipeline failure").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "job-1", entries[0].ContextMap()["job_id"])
	assert.Equal(t, StepAppendResult, entries[0].ContextMap()["step"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.nonFatalTotal.WithLabelValues(StepAppendResult)))
}

func TestNewRunnerRequiresCollaborators(t *testing.T) {
	_, err := NewRunner(Options{Store: store.NewMemoryStore()})
	assert.Error(t, err)
	_, err = NewRunner(Options{Client: newFakeSearch(nil)})
	assert.Error(t, err)
}

func TestProgressProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("progress is monotone and below 100 until the last accession", prop.ForAll(
		func(total int) bool {
			prev := 0
			for done := 1; done < total; done++ {
				p := Progress(done, total)
				if p < prev || p >= 100 {
					return false
				}
				prev = p
			}
			return Progress(total, total) == 100
		},
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

type failingArtifacts struct{}

func (failingArtifacts) SaveResult(context.Context, string, string, []byte) error {
	return errors.New("read-only file system")
}

type captureNotifier struct {
	summaries []domain.JobSummary
}

func (n *captureNotifier) NotifyCompleted(_ context.Context, s domain.JobSummary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

// deletingStore deletes the job right after the first result is written.
type deletingStore struct {
	*store.MemoryStore
	once sync.Once
}

func (d *deletingStore) AppendResult(ctx context.Context, r domain.ResultRecord) error {
	if err := d.MemoryStore.AppendResult(ctx, r); err != nil {
		return err
	}
	d.once.Do(func() { _ = d.MemoryStore.DeleteJob(ctx, r.JobID) })
	return nil
}

func noHitRow(jobID, accession string) domain.ResultRecord {
	return domain.ResultRecord{
		JobID:     jobID,
		Accession: accession,
		TopHit:    domain.OutcomeNoHit,
		Gene:      "NA",
		Species:   "NA",
		BitScore:  "NA",
		EValue:    "NA",
	}
}

// blockingSearch holds Poll for one accession until the run's context ends.
type blockingSearch struct {
	*fakeSearch
	blockOn string
	polling chan struct{}
}

func (b *blockingSearch) Poll(ctx context.Context, rid string, budget time.Duration) (blast.PollStatus, error) {
	b.mu.Lock()
	accession := b.byRID[rid]
	b.mu.Unlock()
	if accession != b.blockOn {
		return b.fakeSearch.Poll(ctx, rid, budget)
	}
	close(b.polling)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunCancelledDuringLastAccessionWritesNothing(t *testing.T) {
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-10")
	sink := &captureSink{}
	notifier := &captureNotifier{}

	search := &blockingSearch{
		fakeSearch: newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusNoHits}, "A2": {status: blast.StatusNoHits}}),
		blockOn:    "A2",
		polling:    make(chan struct{}),
	}
	runner := newTestRunner(t, search, mem, Options{Sink: sink, Notifier: notifier})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-search.polling
		cancel()
	}()

	_, err := runner.Run(ctx, Request{JobID: "job-10", Accessions: []string{"A1", "A2"}})
	require.ErrorIs(t, err, context.Canceled)

	results, err := mem.ListResults(context.Background(), "job-10")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A1", results[0].Accession)

	job, _, _ := mem.GetJob(context.Background(), "job-10")
	assert.Equal(t, domain.JobStatusRunning, job.Status)
	assert.Equal(t, 50, job.Progress)
	assert.Empty(t, notifier.summaries)
	assert.NotContains(t, sink.steps(), StepMarkDone)
}

func TestRunResumesAfterExistingRows(t *testing.T) {
	ctx := context.Background()
	rec := &progressRecorder{MemoryStore: store.NewMemoryStore()}
	seedJob(t, rec.MemoryStore, "job-11")
	require.NoError(t, rec.MemoryStore.UpdateProgress(ctx, "job-11", 33))
	require.NoError(t, rec.MemoryStore.AppendResult(ctx, noHitRow("job-11", "A1")))

	script := map[string]scriptedAccession{}
	for _, acc := range []string{"A1", "A2", "A3"} {
		script[acc] = scriptedAccession{status: blast.StatusNoHits}
	}
	search := newFakeSearch(script)
	runner := newTestRunner(t, search, rec, Options{})

	summary, err := runner.Run(ctx, Request{JobID: "job-11", Accessions: []string{"A1", "A2", "A3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.NoHits)
	assert.Len(t, search.budgets, 2, "A1 is not searched again")
	assert.Equal(t, []int{66}, rec.progress)

	results, err := rec.ListResults(ctx, "job-11")
	require.NoError(t, err)
	accessions := make([]string, 0, len(results))
	for _, r := range results {
		accessions = append(accessions, r.Accession)
	}
	assert.Equal(t, []string{"A1", "A2", "A3"}, accessions)

	job, _, _ := rec.GetJob(ctx, "job-11")
	assert.Equal(t, domain.JobStatusDone, job.Status)
	assert.Equal(t, 100, job.Progress)
}

func TestRunLeavesDoneJobAlone(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	seedJob(t, mem, "job-12")
	require.NoError(t, mem.AppendResult(ctx, noHitRow("job-12", "A1")))
	require.NoError(t, mem.MarkDone(ctx, "job-12"))
	notifier := &captureNotifier{}

	search := newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusNoHits}})
	runner := newTestRunner(t, search, mem, Options{Notifier: notifier})

	summary, err := runner.Run(ctx, Request{JobID: "job-12", Accessions: []string{"A1"}})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusDone, summary.Status)
	assert.Equal(t, 1, summary.NoHits)
	assert.Empty(t, search.budgets)
	assert.Empty(t, notifier.summaries)

	results, _ := mem.ListResults(ctx, "job-12")
	assert.Len(t, results, 1)
}

func TestRunMissingJobFails(t *testing.T) {
	sink := &captureSink{}
	search := newFakeSearch(map[string]scriptedAccession{"A1": {status: blast.StatusNoHits}})
	runner := newTestRunner(t, search, store.NewMemoryStore(), Options{Sink: sink})

	_, err := runner.Run(context.Background(), Request{JobID: "ghost", Accessions: []string{"A1"}})
	require.ErrorIs(t, err, store.ErrJobNotFound)
	assert.Equal(t, []string{StepLoadJob}, sink.steps())
	assert.Empty(t, search.budgets)
}

func TestProcessedAccessionsMatchesRowsInOrder(t *testing.T) {
	rows := []domain.ResultRecord{{Accession: "A1"}, {Accession: "A2"}}
	got := processedAccessions([]string{"A1", "A2", "A1", "A3"}, rows)
	assert.Equal(t, []bool{true, true, false, false}, got)
}
