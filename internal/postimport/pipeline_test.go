package postimport

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/testutil"
)

// stubProcessor returns a fixed error and records its calls.
type stubProcessor struct {
	name  string
	err   error
	calls int
	trace *[]string
}

func (s *stubProcessor) Name() string { return s.name }

func (s *stubProcessor) Process(ctx context.Context, res ir.Resource) error {
	s.calls++
	if s.trace != nil {
		*s.trace = append(*s.trace, s.name)
	}
	return s.err
}

// countingDropper counts drops and returns err.
type countingDropper struct {
	err   error
	calls int
}

func (d *countingDropper) Drop(ctx context.Context, res ir.Resource) error {
	d.calls++
	return d.err
}

var testResource = ir.Resource{ID: "test", Version: "123"}

func newTestPipeline(cfg Config, procs []Processor, dropper Dropper) (*Pipeline, *testutil.RecordingLogger, *testutil.MemoryResults) {
	logger := &testutil.RecordingLogger{}
	results := &testutil.MemoryResults{}
	p := NewPipeline(cfg, procs, dropper, results,
		WithLogger(logger),
		WithRunIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3")),
	)
	return p, logger, results
}

func TestProcessResource_NoDictionaryIsDone(t *testing.T) {
	enforcer := &stubProcessor{name: "dictionary_enforcer", err: &NoDictionaryError{ResourceID: "test", Version: "123"}}
	p, _, _ := newTestPipeline(Config{}, []Processor{enforcer}, &countingDropper{})

	result := p.ProcessResource(context.Background(), testResource)

	assert.Equal(t, 1, enforcer.calls)
	assert.Equal(t, ir.StatusDone, result.Status)
	assert.Equal(t, "Resource test does not have a data dictionary.", result.Message)
	assert.NoError(t, result.Err)
	assert.Equal(t, "run-1", result.RunID)
}

func TestProcessResource_WrappedNoDictionary(t *testing.T) {
	err := errors.Wrap(&NoDictionaryError{ResourceID: "test"}, "discover")
	p, _, _ := newTestPipeline(Config{}, []Processor{&stubProcessor{name: "x", err: err}}, &countingDropper{})

	result := p.ProcessResource(context.Background(), testResource)
	assert.Equal(t, ir.StatusDone, result.Status)
}

func TestProcessResource_StatusRules(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		errs    []error
		status  ir.PostImportStatus
		message string
		stages  int
	}{
		{"no processors", nil, ir.StatusDone, "", 0},
		{"all done", []error{nil, nil}, ir.StatusDone, "", 2},
		{"all skipped", []error{ErrSkipped, ErrSkipped}, ir.StatusSkipped, "", 2},
		{"skipped then done", []error{ErrSkipped, nil}, ir.StatusDone, "", 2},
		{"error stops chain", []error{nil, boom, nil}, ir.StatusError, "boom", 2},
		{"wrapped skip", []error{errors.Wrap(ErrSkipped, "mode none")}, ir.StatusSkipped, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procs := make([]Processor, len(tt.errs))
			for i, err := range tt.errs {
				procs[i] = &stubProcessor{name: fmt.Sprintf("p%d", i), err: err}
			}
			p, _, _ := newTestPipeline(Config{}, procs, &countingDropper{})

			result := p.ProcessResource(context.Background(), testResource)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.message, result.Message)
			assert.Len(t, result.Stages, tt.stages)
		})
	}
}

func TestProcessResource_RunsInRegistrationOrder(t *testing.T) {
	var trace []string
	procs := []Processor{
		&stubProcessor{name: "first", trace: &trace},
		&stubProcessor{name: "second", trace: &trace},
		&stubProcessor{name: "third", trace: &trace},
	}
	p, _, _ := newTestPipeline(Config{}, procs, &countingDropper{})

	procs[0], procs[2] = procs[2], procs[0] // caller mutation after construction

	result := p.ProcessResource(context.Background(), testResource)
	assert.Equal(t, []string{"first", "second", "third"}, trace)
	assert.Equal(t, "first", result.Stages[0].Processor)
}

func TestProcessItem_DropSucceeds(t *testing.T) {
	dropper := &countingDropper{}
	p, logger, results := newTestPipeline(
		Config{DropOnError: true},
		[]Processor{&stubProcessor{name: "enforcer", err: errors.New("alter failed")}},
		dropper,
	)

	result, err := p.ProcessItem(context.Background(), ir.Resource{ID: "test_identifier"})
	require.NoError(t, err)

	assert.Equal(t, ir.StatusError, result.Status)
	assert.Equal(t, 1, dropper.calls)
	assert.Equal(t, []string{
		"Successfully dropped the datastore for resource test_identifier due to a post import error. Visit the Datastore Import Status dashboard for details.",
	}, logger.Notices())
	assert.Empty(t, logger.Errors())
	assert.Equal(t, 1, results.Writes)
}

func TestProcessItem_DropFails(t *testing.T) {
	processErr := errors.New("alter failed")
	dropper := &countingDropper{err: errors.New("table is locked")}
	p, logger, results := newTestPipeline(
		Config{DropOnError: true},
		[]Processor{&stubProcessor{name: "enforcer", err: processErr}},
		dropper,
	)

	result, err := p.ProcessItem(context.Background(), testResource)
	require.NoError(t, err, "drop failures are not returned")

	assert.Equal(t, 1, dropper.calls)
	assert.Len(t, logger.Errors(), 1)
	assert.Empty(t, logger.Notices())
	assert.Equal(t, 1, results.Writes)

	// The recorded outcome is the processing error, not the drop error.
	assert.Equal(t, ir.StatusError, result.Status)
	assert.Equal(t, "alter failed", result.Message)
	assert.True(t, errors.Is(result.Err, processErr))
	assert.Equal(t, "alter failed", results.Records()[0].Message)
}

func TestProcessItem_NoDropWhenDisabled(t *testing.T) {
	dropper := &countingDropper{}
	p, logger, results := newTestPipeline(
		Config{DropOnError: false},
		[]Processor{&stubProcessor{name: "enforcer", err: errors.New("alter failed")}},
		dropper,
	)

	_, err := p.ProcessItem(context.Background(), testResource)
	require.NoError(t, err)

	assert.Zero(t, dropper.calls)
	assert.Empty(t, logger.Notices())
	assert.Empty(t, logger.Errors())
	assert.Equal(t, 1, results.Writes)
}

func TestProcessItem_NoDropOnSuccess(t *testing.T) {
	dropper := &countingDropper{}
	p, _, results := newTestPipeline(
		Config{DropOnError: true},
		[]Processor{&stubProcessor{name: "enforcer", err: &NoDictionaryError{ResourceID: "test"}}},
		dropper,
	)

	result, err := p.ProcessItem(context.Background(), testResource)
	require.NoError(t, err)

	assert.Equal(t, ir.StatusDone, result.Status)
	assert.Zero(t, dropper.calls)
	require.Len(t, results.Records(), 1)
	assert.Equal(t, "Resource test does not have a data dictionary.", results.Records()[0].Message)
}

func TestProcessItem_RepeatedDropOfMissingTable(t *testing.T) {
	table := testutil.NewFakeTable(testResource.Identifier(), "a")
	dropper := DropperFunc(func(ctx context.Context, res ir.Resource) error {
		return table.Drop(ctx)
	})
	p, logger, results := newTestPipeline(
		Config{DropOnError: true},
		[]Processor{&stubProcessor{name: "enforcer", err: errors.New("alter failed")}},
		dropper,
	)

	_, err := p.ProcessItem(context.Background(), testResource)
	require.NoError(t, err)
	_, err = p.ProcessItem(context.Background(), testResource)
	require.NoError(t, err, "second drop must not reach the worker")

	assert.Equal(t, 2, table.DropCalls)
	assert.Len(t, logger.Notices(), 1)
	assert.Len(t, logger.Errors(), 1)

	recs := results.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].Seq)
	assert.Equal(t, int64(2), recs[1].Seq)
	assert.Equal(t, "run-1", recs[0].RunID)
	assert.Equal(t, "run-2", recs[1].RunID)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
	assert.Equal(t, "test__123", recs[0].Identifier())
}

func TestProcessItem_StoreFailureReturned(t *testing.T) {
	logger := &testutil.RecordingLogger{}
	results := &testutil.MemoryResults{WriteErr: errors.New("disk full")}
	p := NewPipeline(Config{}, nil, &countingDropper{}, results,
		WithLogger(logger), WithRunIDGenerator(NewFixedGenerator("run-1")))

	_, err := p.ProcessItem(context.Background(), testResource)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, results.Writes)
}

func TestProcessItem_WithSQLiteResults(t *testing.T) {
	store, err := datastore.Open("sqlite3", t.TempDir()+"/results.db", datastore.Options{})
	require.NoError(t, err)
	defer store.Close()

	p := NewPipeline(Config{}, []Processor{&stubProcessor{name: "enforcer", err: &NoDictionaryError{ResourceID: "test"}}},
		&countingDropper{}, store, WithLogger(&testutil.RecordingLogger{}))

	_, err = p.ProcessItem(context.Background(), testResource)
	require.NoError(t, err)

	latest, err := store.LatestResult(context.Background(), testResource.Identifier())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ir.StatusDone, latest.Status)
	assert.Equal(t, "Resource test does not have a data dictionary.", latest.Message)
	assert.Equal(t, []ir.StageRecord{{Processor: "enforcer", Status: ir.StatusDone, Message: "Resource test does not have a data dictionary."}}, latest.Stages)
}
