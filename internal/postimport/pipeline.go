package postimport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/ir"
)

// DropNotice is the format of the notice logged after a successful drop.
// Its single verb is the resource ID.
const DropNotice = "Successfully dropped the datastore for resource %s due to a post import error. Visit the Datastore Import Status dashboard for details."

// Processor is one post-import stage.
//
// Process returns nil when the stage is done, ErrSkipped when it had
// nothing to do, a *NoDictionaryError when the resource has no data
// dictionary, or any other error to fail the run.
type Processor interface {
	Name() string
	Process(ctx context.Context, res ir.Resource) error
}

// Dropper removes the datastore table of a resource.
type Dropper interface {
	Drop(ctx context.Context, res ir.Resource) error
}

// DropperFunc adapts a function to Dropper.
type DropperFunc func(ctx context.Context, res ir.Resource) error

func (f DropperFunc) Drop(ctx context.Context, res ir.Resource) error {
	return f(ctx, res)
}

// ResultStore persists run outcomes. *datastore.Store implements it.
type ResultStore interface {
	NextSeq(ctx context.Context, identifier string) (int64, error)
	WriteResult(ctx context.Context, rec ir.PostImportRecord) error
}

// Config holds the options the pipeline consumes.
type Config struct {
	// DropOnError drops the datastore table when a run ends in error.
	DropOnError bool
}

// Result is the outcome of one run.
type Result struct {
	Resource ir.Resource
	RunID    string
	Status   ir.PostImportStatus
	Message  string
	Stages   []ir.StageRecord

	// Err is the processing error of a failed run. A failed compensating
	// drop is attached to it as a secondary error.
	Err error
}

// Record converts the result to its persisted form.
func (r *Result) Record(seq int64) (ir.PostImportRecord, error) {
	rec := ir.PostImportRecord{
		ResourceID:      r.Resource.ID,
		ResourceVersion: r.Resource.Version,
		RunID:           r.RunID,
		Status:          r.Status,
		Message:         r.Message,
		Stages:          r.Stages,
		Seq:             seq,
	}
	id, err := ir.RecordID(rec.Identifier(), r.RunID, seq)
	if err != nil {
		return ir.PostImportRecord{}, err
	}
	rec.ID = id
	return rec, nil
}

// Pipeline runs processors for one resource at a time.
//
// It holds no per-run state and is safe for concurrent use by workers
// handling different resources.
type Pipeline struct {
	cfg        Config
	processors []Processor
	dropper    Dropper
	results    ResultStore
	log        Logger
	runIDs     RunIDGenerator
}

// PipelineOption configures optional collaborators.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger. Default: SlogLogger over slog.Default().
func WithLogger(l Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = l
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) PipelineOption {
	return func(p *Pipeline) {
		p.runIDs = g
	}
}

// NewPipeline creates a pipeline. Processors run in the given order; the
// slice is copied so later changes by the caller do not reorder a run.
func NewPipeline(cfg Config, processors []Processor, dropper Dropper, results ResultStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		processors: append([]Processor(nil), processors...),
		dropper:    dropper,
		results:    results,
		log:        NewSlogLogger(nil),
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessResource runs every processor in order and folds their outcomes.
// The chain stops at the first unexpected error. Nothing is stored.
func (p *Pipeline) ProcessResource(ctx context.Context, res ir.Resource) *Result {
	result := &Result{
		Resource: res,
		RunID:    p.runIDs.Generate(),
		Stages:   make([]ir.StageRecord, 0, len(p.processors)),
	}

	for _, proc := range p.processors {
		stage := ir.StageRecord{Processor: proc.Name()}
		err := proc.Process(ctx, res)

		switch {
		case err == nil:
			stage.Status = ir.StatusDone
		case IsNoDictionary(err):
			stage.Status = ir.StatusDone
			stage.Message = err.Error()
		case errors.Is(err, ErrSkipped):
			stage.Status = ir.StatusSkipped
		default:
			stage.Status = ir.StatusError
			stage.Message = err.Error()
			result.Err = errors.Wrapf(err, "processor %s", proc.Name())
		}

		result.Stages = append(result.Stages, stage)
		slog.Debug("post import stage finished",
			"resource", res.Identifier(),
			"processor", stage.Processor,
			"status", stage.Status,
		)
		if stage.Status == ir.StatusError {
			break
		}
	}

	result.Status, result.Message = summarize(result.Stages)
	return result
}

// summarize derives the run status: error if any stage errored, skipped
// if every stage skipped, done otherwise. The message is the failing
// stage's message, or the non-empty stage messages joined by spaces.
func summarize(stages []ir.StageRecord) (ir.PostImportStatus, string) {
	var messages []string
	skipped := len(stages) > 0
	for _, s := range stages {
		if s.Status == ir.StatusError {
			return ir.StatusError, s.Message
		}
		if s.Status != ir.StatusSkipped {
			skipped = false
		}
		if s.Message != "" {
			messages = append(messages, s.Message)
		}
	}
	if skipped {
		return ir.StatusSkipped, ""
	}
	return ir.StatusDone, strings.Join(messages, " ")
}

// ProcessItem is the worker entry point for one resource.
//
// It runs the processors, drops the table once when the run failed and
// DropOnError is set, and stores the result exactly once. Processing and
// drop failures are recorded and logged, not returned; only a failure to
// store the result is returned.
func (p *Pipeline) ProcessItem(ctx context.Context, res ir.Resource) (*Result, error) {
	result := p.ProcessResource(ctx, res)

	if result.Status == ir.StatusError && p.cfg.DropOnError {
		p.drop(ctx, result)
	}

	if err := p.store(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Pipeline) drop(ctx context.Context, result *Result) {
	res := result.Resource
	if err := p.dropper.Drop(ctx, res); err != nil {
		p.log.Error("failed to drop the datastore after a post import error",
			"resource", res.ID,
			"identifier", res.Identifier(),
			"error", err,
		)
		if result.Err != nil {
			result.Err = errors.WithSecondaryError(result.Err, err)
		}
		return
	}
	p.log.Notice(fmt.Sprintf(DropNotice, res.ID), "resource", res.ID)
}

func (p *Pipeline) store(ctx context.Context, result *Result) error {
	identifier := result.Resource.Identifier()
	seq, err := p.results.NextSeq(ctx, identifier)
	if err != nil {
		return errors.Wrapf(err, "store post import result for %s", identifier)
	}
	rec, err := result.Record(seq)
	if err != nil {
		return errors.Wrapf(err, "store post import result for %s", identifier)
	}
	if err := p.results.WriteResult(ctx, rec); err != nil {
		return errors.Wrapf(err, "store post import result for %s", identifier)
	}
	return nil
}
