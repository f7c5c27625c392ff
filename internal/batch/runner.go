// Package batch drives the analysis pipeline across the whole roster with a
// resumable on-disk checkpoint.
package batch

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/internal/model"
)

// Analyzer is the per-entity pipeline the runner drives.
type Analyzer interface {
	Analyze(ctx context.Context, entity model.EntityRef) (model.EntityResult, error)
}

// Options tunes one batch run.
type Options struct {
	// Limit caps how many pending entities are processed; 0 means all.
	Limit int
	// SkipExisting skips every entity already present in the checkpoint,
	// including failed ones. Disable it to re-attempt failures.
	SkipExisting bool
	// TopN bounds the top-gains list in the summary.
	TopN int
}

// Runner processes a roster sequentially, checkpointing after every entity.
// Processing is deliberately serial: the upstream services are rate limited
// and a single in-flight entity keeps the checkpoint semantics simple.
type Runner struct {
	analyzer   Analyzer
	checkpoint *Checkpoint
	store      *cache.Store
}

// NewRunner builds a Runner over the analyzer and checkpoint.
func NewRunner(analyzer Analyzer, checkpoint *Checkpoint, store *cache.Store) *Runner {
	return &Runner{analyzer: analyzer, checkpoint: checkpoint, store: store}
}

// Run processes the pending subset of roster in roster order and returns a
// summary over every checkpointed result, including ones from earlier runs.
func (r *Runner) Run(ctx context.Context, roster []model.EntityRef, opts Options) (*model.BatchSummary, error) {
	runID := uuid.NewString()
	if err := r.store.StartRun(ctx, runID); err != nil {
		return nil, err
	}

	pending := r.pending(roster, opts)
	zap.L().Info("batch: starting run",
		zap.String("run_id", runID),
		zap.Int("roster", len(roster)),
		zap.Int("pending", len(pending)))

	var succeeded, failed int
	for i, entity := range pending {
		result, err := r.analyzer.Analyze(ctx, entity)
		if err != nil {
			// Persist whatever finished before surfacing the fault.
			if ferr := r.store.FinishRun(context.WithoutCancel(ctx), runID, succeeded, failed); ferr != nil {
				zap.L().Warn("batch: finish run", zap.Error(ferr))
			}
			return nil, err
		}
		if result.Failed() {
			failed++
		} else {
			succeeded++
		}
		if err := r.checkpoint.Record(result); err != nil {
			return nil, err
		}
		zap.L().Info("batch: entity checkpointed",
			zap.Int("done", i+1), zap.Int("pending", len(pending)-i-1),
			zap.String("code", entity.Code), zap.Bool("failed", result.Failed()))
	}

	if err := r.store.FinishRun(ctx, runID, succeeded, failed); err != nil {
		return nil, err
	}

	summary := Summarize(runID, r.checkpoint.Results(), opts.TopN)
	zap.L().Info("batch: run finished",
		zap.String("run_id", runID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Float64("total_gain_m_yen", summary.TotalUnrealizedGainMYen))
	return summary, nil
}

// pending filters the roster down to the entities this run must process,
// preserving roster order.
func (r *Runner) pending(roster []model.EntityRef, opts Options) []model.EntityRef {
	var out []model.EntityRef
	for _, e := range roster {
		if opts.SkipExisting {
			if _, ok := r.checkpoint.Get(e.Code); ok {
				continue
			}
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out
}

// Summarize aggregates checkpointed results into a run summary. Top gains are
// ordered by descending total unrealized gain; equal gains keep checkpoint
// order.
func Summarize(runID string, results []model.EntityResult, topN int) *model.BatchSummary {
	s := &model.BatchSummary{RunID: runID}

	var successes []model.EntityResult
	for _, res := range results {
		if res.Failed() {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.TotalBookValueMYen += res.Portfolio.TotalBookValueMYen
		s.TotalEstimatedValueMYen += res.Portfolio.TotalEstimatedValueMYen
		s.TotalUnrealizedGainMYen += res.Portfolio.TotalUnrealizedGainMYen

		counts := model.CountProperties(res.Portfolio.Properties)
		s.Properties.Total += counts.Total
		s.Properties.Owned += counts.Owned
		s.Properties.Leased += counts.Leased
		for purpose, n := range counts.ByPurpose {
			if s.Properties.ByPurpose == nil {
				s.Properties.ByPurpose = make(map[string]int)
			}
			s.Properties.ByPurpose[purpose] += n
		}

		successes = append(successes, res)
	}

	sort.SliceStable(successes, func(i, j int) bool {
		return successes[i].Portfolio.TotalUnrealizedGainMYen > successes[j].Portfolio.TotalUnrealizedGainMYen
	})
	if topN > 0 && len(successes) > topN {
		successes = successes[:topN]
	}
	s.TopGains = successes
	return s
}
