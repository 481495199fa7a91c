// Package acquire drives the source adapter set for one run: parallel
// acquisition, diagnostics capture, the strict-live gate, and cross-source
// deduplication.
package acquire

import (
	"context"
	"sync"

	"github.com/cardscout-hq/cardscout-harvester/internal/dedupe"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
	"github.com/cardscout-hq/cardscout-harvester/pkg/sources"
)

// Options control a single orchestrated run.
type Options struct {
	StrictLive bool
	Run        sources.RunOptions
}

// Result is what a completed run hands to downstream collaborators.
type Result struct {
	Items       []domain.CandidateItem              `json:"items"`
	Diagnostics map[string]domain.SourceDiagnostics `json:"diagnostics"`
}

// Orchestrator fans a query out across the configured adapters.
type Orchestrator struct {
	adapters []sources.Adapter
	opts     Options
	log      logger.Logger
}

// NewOrchestrator validates options and builds an orchestrator. Option
// combinations that cannot produce a meaningful run fail here, before any
// fetch occurs.
func NewOrchestrator(adapters []sources.Adapter, opts Options, log logger.Logger) (*Orchestrator, error) {
	if len(adapters) == 0 {
		return nil, &ConfigurationError{Reason: "no source adapters configured"}
	}
	if opts.StrictLive {
		required := 0
		for _, a := range adapters {
			if a.Required() {
				required++
			}
		}
		if required == 0 {
			return nil, &ConfigurationError{Reason: "strict_live enabled but no source is marked required"}
		}
	}
	return &Orchestrator{adapters: adapters, opts: opts, log: logger.Ensure(log)}, nil
}

// Run invokes every adapter independently and in parallel; one adapter's
// failure never prevents the others from running. Diagnostics are recorded
// for all sources before the strict-live gate is applied, so a failing run
// still carries the full failure report.
func (o *Orchestrator) Run(ctx context.Context, q sources.Query) (Result, error) {
	recorder := NewRecorder()
	perSource := make([][]domain.CandidateItem, len(o.adapters))

	var wg sync.WaitGroup
	for i, adapter := range o.adapters {
		wg.Add(1)
		go func(idx int, a sources.Adapter) {
			defer wg.Done()
			items, diag := a.Acquire(ctx, q, o.opts.Run)
			perSource[idx] = items
			recorder.Record(diag)
		}(i, adapter)
	}
	wg.Wait()

	result := Result{Diagnostics: recorder.ByID()}

	// The gate runs after all adapters complete, never per-adapter.
	if o.opts.StrictLive {
		if violation := o.checkStrictLive(recorder); violation != nil {
			return result, violation
		}
	}

	var union []domain.CandidateItem
	for _, items := range perSource {
		union = append(union, items...)
	}
	result.Items = dedupe.Dedupe(union)

	o.log.InfoObj("acquisition run completed", "run_result", map[string]any{
		"sources":     len(o.adapters),
		"items_total": len(union),
		"items_final": len(result.Items),
	})
	return result, nil
}

func (o *Orchestrator) checkStrictLive(recorder *Recorder) error {
	statuses := make(map[string]domain.SourceStatus)
	var offending []string

	byID := recorder.ByID()
	for _, adapter := range o.adapters {
		diag, ok := byID[adapter.ID()]
		if !ok {
			continue
		}
		statuses[adapter.ID()] = diag.Status
		if adapter.Required() && diag.Status != domain.StatusLive {
			offending = append(offending, adapter.ID())
		}
	}

	if len(offending) == 0 {
		return nil
	}
	return &StrictLiveViolation{Offending: offending, Statuses: statuses}
}
