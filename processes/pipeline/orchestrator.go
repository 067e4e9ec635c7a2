package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/lock"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/telemetry/metrics/base"
	"github.com/artie-labs/starsync/lib/watermark"
)

type Options struct {
	Dataset     string
	Parallelism int
	// AdvanceOnMergeFailure moves the watermark forward even when a merge failed.
	// Rows of a failed table are then only picked up again once they change in the source.
	AdvanceOnMergeFailure bool
}

func OptionsFromConfig(cfg config.Pipeline) Options {
	return Options{
		Dataset:               cfg.Dataset,
		Parallelism:           cfg.Parallelism,
		AdvanceOnMergeFailure: cfg.ShouldAdvanceOnMergeFailure(),
	}
}

func (o Options) stagingDataset() string {
	return config.Pipeline{Dataset: o.Dataset}.StagingDataset()
}

type Args struct {
	Registry   *schema.Registry
	Source     source.Store
	Queries    source.QuerySupplier
	Warehouse  destination.Warehouse
	Watermarks *watermark.Store
	Locker     lock.Locker
	Metrics    base.Client
	Options    Options
	// Now defaults to [time.Now].
	Now func() time.Time
}

type Orchestrator struct {
	registry   *schema.Registry
	extractor  *Extractor
	warehouse  destination.Warehouse
	watermarks *watermark.Store
	locker     lock.Locker
	metrics    base.Client
	opts       Options
	now        func() time.Time
}

func NewOrchestrator(args Args) (*Orchestrator, error) {
	if args.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	if args.Options.Dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}

	if args.Options.Parallelism <= 0 {
		return nil, fmt.Errorf("parallelism must be positive, got: %d", args.Options.Parallelism)
	}

	now := args.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		registry:   args.Registry,
		extractor:  NewExtractor(args.Source, args.Queries),
		warehouse:  args.Warehouse,
		watermarks: args.Watermarks,
		locker:     args.Locker,
		metrics:    args.Metrics,
		opts:       args.Options,
		now:        now,
	}, nil
}

// Run performs one full synchronization. It never panics on warehouse or source failures, everything that went wrong
// is in the returned [RunResult].
func (o *Orchestrator) Run(ctx context.Context) *RunResult {
	result := newRunResult(o.registry.TableNames())

	release, err := o.locker.Acquire(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			result.Err = ErrRunInProgress
		} else {
			result.Err = fmt.Errorf("failed to acquire run lock: %w", err)
		}
		return result
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to release run lock", slog.Any("err", err))
		}
	}()

	start := time.Now()
	defer func() {
		o.metrics.Timing("pipeline.run", time.Since(start), map[string]string{"state": string(result.State)})
	}()

	result.Previous = o.watermarks.Read(ctx)
	result.Advanced = result.Previous
	runStart := o.now()
	slog.Info("Starting run", slog.String("watermark", result.Previous.String()), slog.Int("tables", len(result.Tables)))

	result.transition(ExtractStage)
	group, err := o.extractAndStage(ctx, result)
	if err != nil {
		result.transition(Failed)
		result.Err = err
		return result
	}

	result.transition(AwaitStagingComplete)
	if err = group.Wait(); err != nil {
		slog.Error("Staging failed, the watermark will not be advanced", slog.Any("err", err))
		result.transition(Failed)
		result.Err = err
		return result
	}

	result.transition(Merge)
	o.merge(ctx, result)

	result.transition(ApplyConstraints)
	o.applyConstraints(ctx, result)

	result.transition(AdvanceWatermark)
	o.advanceWatermark(ctx, result, runStart)

	result.transition(ResetStaging)
	if err = o.resetStaging(ctx); err != nil {
		slog.Warn("Failed to reset staging", slog.Any("err", err))
		result.ResetErr = err
	}

	result.transition(Done)
	slog.Info("Run finished",
		slog.Int("rowsExtracted", result.RowsExtracted()),
		slog.Bool("mergeFailed", result.MergeFailed()),
		slog.String("watermark", result.Advanced.String()),
	)
	return result
}

// extractAndStage starts one extraction per table and returns without waiting for them.
// Errors preparing the datasets are returned directly.
func (o *Orchestrator) extractAndStage(ctx context.Context, result *RunResult) (*errgroup.Group, error) {
	stagingDataset := o.opts.stagingDataset()
	if err := o.warehouse.CreateDataset(ctx, o.opts.Dataset, true); err != nil {
		return nil, &StagingError{Err: err}
	}

	// Leftovers from an interrupted run would otherwise be merged again.
	if err := o.warehouse.DeleteDataset(ctx, stagingDataset, true, true); err != nil {
		return nil, &StagingError{Err: err}
	}

	if err := o.warehouse.CreateDataset(ctx, stagingDataset, true); err != nil {
		return nil, &StagingError{Err: err}
	}

	keys := NewExtractionKeys()
	stager := NewStager(o.warehouse, stagingDataset)
	wm := result.Previous

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.opts.Parallelism)
	for _, table := range o.registry.Tables() {
		tableResult := result.Tables[table.Name()]
		group.Go(func() error {
			start := time.Now()
			rows, err := o.extractAndStageTable(groupCtx, keys, stager, table, wm)
			tableResult.RowsExtracted = len(rows)

			tags := map[string]string{"table": table.Name(), "what": "success"}
			if err != nil {
				tags["what"] = "fail"
				tableResult.StageErr = &StagingError{Table: table.Name(), Err: err}
				o.metrics.Timing("pipeline.stage", time.Since(start), tags)
				return tableResult.StageErr
			}

			o.metrics.Count("pipeline.rows_extracted", int64(len(rows)), map[string]string{"table": table.Name()})
			o.metrics.Timing("pipeline.stage", time.Since(start), tags)
			return nil
		})
	}

	return group, nil
}

func (o *Orchestrator) extractAndStageTable(ctx context.Context, keys *ExtractionKeys, stager *Stager, table schema.TableDescriptor, wm watermark.Watermark) ([]source.Row, error) {
	targetID := o.warehouse.IdentifierFor(o.opts.Dataset, table.Name())
	if err := o.warehouse.GetOrCreateTable(ctx, targetID, table); err != nil {
		return nil, err
	}

	stagingID := o.warehouse.IdentifierFor(o.opts.stagingDataset(), table.Name())
	if err := o.warehouse.GetOrCreateTable(ctx, stagingID, table.StagingDescriptor()); err != nil {
		return nil, err
	}

	rows, err := o.extractor.Extract(ctx, keys, table, wm)
	if err != nil {
		return nil, err
	}

	if err = stager.Stage(ctx, table, rows); err != nil {
		return rows, err
	}

	return rows, nil
}

func (o *Orchestrator) merge(ctx context.Context, result *RunResult) {
	merger := NewMerger(o.warehouse, o.opts.Dataset, o.opts.stagingDataset())

	// Merges are independent of each other, so a failure must not cancel the rest.
	var group errgroup.Group
	group.SetLimit(o.opts.Parallelism)
	for _, table := range o.registry.Tables() {
		tableResult := result.Tables[table.Name()]
		group.Go(func() error {
			start := time.Now()
			tags := map[string]string{"table": table.Name(), "what": "success"}
			if err := merger.Merge(ctx, table); err != nil {
				tags["what"] = "fail"
				tableResult.MergeErr = err
				o.metrics.Incr("pipeline.merge_failed", map[string]string{"table": table.Name()})
			}
			o.metrics.Timing("pipeline.merge", time.Since(start), tags)
			return nil
		})
	}

	_ = group.Wait()
}

func (o *Orchestrator) applyConstraints(ctx context.Context, result *RunResult) {
	applier := NewConstraintApplier(o.warehouse, o.opts.Dataset)
	for _, err := range applier.Apply(ctx, o.registry) {
		var constraintErr *ConstraintError
		if !errors.As(err, &constraintErr) {
			continue
		}

		if tableResult, ok := result.Tables[constraintErr.Table]; ok {
			tableResult.ConstraintErrs = append(tableResult.ConstraintErrs, err)
		}
		o.metrics.Incr("pipeline.constraint_failed", map[string]string{"table": constraintErr.Table})
	}
}

func (o *Orchestrator) advanceWatermark(ctx context.Context, result *RunResult, runStart time.Time) {
	if result.MergeFailed() && !o.opts.AdvanceOnMergeFailure {
		slog.Warn("A merge failed, keeping the previous watermark", slog.String("watermark", result.Previous.String()))
		return
	}

	next := watermark.Max(result.Previous, watermark.New(runStart))
	if err := o.watermarks.Write(ctx, next); err != nil {
		slog.Error("Failed to advance the watermark, the next run will extract the same rows again", slog.Any("err", err))
		result.WatermarkErr = err
		return
	}

	result.Advanced = next
}

// resetStaging leaves an empty staging dataset behind, with every staging table ready for the next run.
func (o *Orchestrator) resetStaging(ctx context.Context) error {
	stagingDataset := o.opts.stagingDataset()
	if err := o.warehouse.DeleteDataset(ctx, stagingDataset, true, true); err != nil {
		return err
	}

	if err := o.warehouse.CreateDataset(ctx, stagingDataset, true); err != nil {
		return err
	}

	var errs []error
	for _, table := range o.registry.Tables() {
		stagingID := o.warehouse.IdentifierFor(stagingDataset, table.Name())
		if err := o.warehouse.GetOrCreateTable(ctx, stagingID, table.StagingDescriptor()); err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", table.Name(), err))
		}
	}
	return errors.Join(errs...)
}
