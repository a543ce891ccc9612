// Package pipeline orchestrates the collect, process, and report steps of
// one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolosh/datapulse/internal/processor"
	"github.com/avolosh/datapulse/internal/report"
	"github.com/avolosh/datapulse/internal/source"
	"github.com/avolosh/datapulse/internal/staging"
)

// State tracks where a run is in its lifecycle. Execution is strictly
// sequential; each transition is gated on the predecessor's completion.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateProcessing State = "processing"
	StateReporting  State = "reporting"
)

// ErrAllSourcesFailed means the collect step staged nothing at all. This is
// the only collect outcome fatal to a run.
var ErrAllSourcesFailed = errors.New("all sources unavailable")

// CollectResult summarizes one collect step. A failed source is recorded,
// not treated as fatal, as long as any other source succeeded.
type CollectResult struct {
	Staged []string
	Failed map[string]error
}

// Collector fetches every configured source sequentially and stages the raw
// payloads.
type Collector struct {
	sources []source.Source
	staging *staging.Store
	log     *zerolog.Logger
	now     func() time.Time
}

func NewCollector(sources []source.Source, st *staging.Store, log *zerolog.Logger) *Collector {
	return &Collector{
		sources: sources,
		staging: st,
		log:     log,
		now:     time.Now,
	}
}

// Run fetches each source in turn. Per-source failures are logged with
// source, timestamp, and reason; the run fails only when nothing was staged.
func (c *Collector) Run(ctx context.Context) (CollectResult, error) {
	result := CollectResult{Failed: make(map[string]error)}

	for _, src := range c.sources {
		payload, err := src.Fetch(ctx)
		if err != nil {
			result.Failed[src.Name()] = err
			c.log.Error().Str("source", src.Name()).Err(err).Msg("collect failed")
			continue
		}

		rec := staging.RawRecord{
			Source:      src.Name(),
			CollectedAt: c.now().UTC(),
			Data:        payload,
		}
		path, err := c.staging.Save(rec)
		if err != nil {
			result.Failed[src.Name()] = err
			c.log.Error().Str("source", src.Name()).Err(err).Msg("staging failed")
			continue
		}

		result.Staged = append(result.Staged, src.Name())
		c.log.Info().Str("source", src.Name()).Str("path", path).Msg("payload staged")
	}

	if len(result.Staged) == 0 && len(c.sources) > 0 {
		return result, ErrAllSourcesFailed
	}
	return result, nil
}

// Pipeline wires the three steps together for full runs.
type Pipeline struct {
	collector *Collector
	processor *processor.Processor
	reporter  *report.Reporter
	sources   []string
	state     State
	log       *zerolog.Logger
}

func New(c *Collector, p *processor.Processor, r *report.Reporter, sourceNames []string, log *zerolog.Logger) *Pipeline {
	return &Pipeline{
		collector: c,
		processor: p,
		reporter:  r,
		sources:   sourceNames,
		state:     StateIdle,
		log:       log,
	}
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	return p.state
}

// Collect runs the collect step alone.
func (p *Pipeline) Collect(ctx context.Context) error {
	p.state = StateCollecting
	defer func() { p.state = StateIdle }()

	_, err := p.collector.Run(ctx)
	return err
}

// Process runs the process step alone.
func (p *Pipeline) Process() error {
	p.state = StateProcessing
	defer func() { p.state = StateIdle }()

	_, err := p.processor.Run(p.sources)
	return err
}

// Report runs the report step alone.
func (p *Pipeline) Report() error {
	p.state = StateReporting
	defer func() { p.state = StateIdle }()

	return p.reporter.Run()
}

// Run executes the full collect, process, report sequence. A partial collect
// failure does not block processing; only a total one aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	defer func() { p.state = StateIdle }()

	p.state = StateCollecting
	collected, err := p.collector.Run(ctx)
	if err != nil {
		return err
	}
	if len(collected.Failed) > 0 {
		p.log.Warn().Int("staged", len(collected.Staged)).
			Int("failed", len(collected.Failed)).
			Msg("continuing with partial collection")
	}

	p.state = StateProcessing
	manifest, err := p.processor.Run(p.sources)
	if err != nil {
		return fmt.Errorf("process step: %w", err)
	}

	p.state = StateReporting
	if err := p.reporter.Run(); err != nil {
		return fmt.Errorf("report step: %w", err)
	}

	p.log.Info().Str("run_id", manifest.RunID).Int("sources", len(manifest.Sources)).
		Msg("pipeline run complete")
	return nil
}
