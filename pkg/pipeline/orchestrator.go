// Package pipeline runs the per-turn analysis pipeline: psychology, archetype
// mapping, synthesis, indicators and strategy, with session state persisted
// between turns.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/salesmind/salesmind/pkg/archetype"
	"github.com/salesmind/salesmind/pkg/indicators"
	"github.com/salesmind/salesmind/pkg/observability"
	"github.com/salesmind/salesmind/pkg/prompt"
	"github.com/salesmind/salesmind/pkg/psychology"
	"github.com/salesmind/salesmind/pkg/store"
	"github.com/salesmind/salesmind/pkg/strategy"
	"github.com/salesmind/salesmind/pkg/synthesis"
)

// Archetype persistence requires this much profile confidence; below it the
// mapping is noise and the session keeps no archetype.
const minArchetypeConfidence = 60

const defaultTurnTimeout = 180 * time.Second

// Orchestrator coordinates one analysis turn per observation. Turns within a
// session are serialized; turns across sessions run freely.
type Orchestrator struct {
	store       store.Store
	analyzer    *psychology.Analyzer
	archetypes  archetype.Service
	synthesizer *synthesis.Synthesizer
	indicators  *indicators.Generator
	strategist  *strategy.Generator
	budget      *prompt.Budget
	timeout     time.Duration
	locks       *sessionLocks
}

// Options carries the orchestrator's collaborators. Budget is optional.
type Options struct {
	Store       store.Store
	Analyzer    *psychology.Analyzer
	Archetypes  archetype.Service
	Synthesizer *synthesis.Synthesizer
	Indicators  *indicators.Generator
	Strategist  *strategy.Generator
	Budget      *prompt.Budget
	TurnTimeout time.Duration
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Analyzer == nil || opts.Synthesizer == nil || opts.Indicators == nil || opts.Strategist == nil {
		return nil, fmt.Errorf("all pipeline stages are required")
	}
	if opts.Archetypes == nil {
		opts.Archetypes = archetype.NewAutomotiveService()
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}

	return &Orchestrator{
		store:       opts.Store,
		analyzer:    opts.Analyzer,
		archetypes:  opts.Archetypes,
		synthesizer: opts.Synthesizer,
		indicators:  opts.Indicators,
		strategist:  opts.Strategist,
		budget:      opts.Budget,
		timeout:     opts.TurnTimeout,
		locks:       newSessionLocks(),
	}, nil
}

// ProcessObservation runs one full turn and returns the persisted
// interaction. Only a missing session or a store failure on the final append
// surface as errors; every model failure degrades to stage fallbacks.
func (o *Orchestrator) ProcessObservation(ctx context.Context, sessionID, userInput, parentInteractionID string) (*store.Interaction, error) {
	release := o.locks.acquire(sessionID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	tracer := observability.GetTracer("salesmind/pipeline")
	ctx, span := tracer.Start(ctx, observability.SpanPipelineTurn,
		trace.WithAttributes(attribute.String(observability.AttrSessionID, sessionID)))
	defer span.End()

	sc, err := o.store.GetSessionContext(ctx, sessionID)
	if err != nil {
		observability.GetGlobalMetrics().RecordTurn(ctx, time.Since(start), err)
		return nil, err
	}

	interaction, err := o.runTurn(ctx, sc, userInput, parentInteractionID)
	observability.GetGlobalMetrics().RecordTurn(ctx, time.Since(start), err)
	return interaction, err
}

// AnswerClarifyingQuestion records the answer and re-runs the pipeline from
// the psychology stage with the augmented profile.
func (o *Orchestrator) AnswerClarifyingQuestion(ctx context.Context, sessionID, questionID, answer string) (*store.Interaction, error) {
	release := o.locks.acquire(sessionID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	tracer := observability.GetTracer("salesmind/pipeline")
	ctx, span := tracer.Start(ctx, observability.SpanPipelineTurn,
		trace.WithAttributes(
			attribute.String(observability.AttrSessionID, sessionID),
			attribute.String(observability.AttrStage, "clarification"),
		))
	defer span.End()

	sc, err := o.store.RecordClarificationAnswer(ctx, sessionID, questionID, answer)
	if err != nil {
		observability.GetGlobalMetrics().RecordTurn(ctx, time.Since(start), err)
		return nil, err
	}

	interaction, err := o.runTurn(ctx, sc, answer, "")
	observability.GetGlobalMetrics().RecordTurn(ctx, time.Since(start), err)
	return interaction, err
}

func (o *Orchestrator) runTurn(ctx context.Context, sc *store.SessionContext, userInput, parentInteractionID string) (*store.Interaction, error) {
	sessionID := sc.Session.ID

	// Without a client record there is nothing to profile against; the turn
	// still yields a persisted branded response.
	if sc.Client == nil {
		response := o.strategist.Fallback(strategy.Input{UserInput: userInput, History: historyLines(sc)})
		return o.appendInteraction(ctx, sessionID, userInput, parentInteractionID, &response)
	}

	// PSYCHOLOGY
	transcript := o.formatTranscript(sc, userInput)
	stageStart := time.Now()
	analysis := o.analyzer.Analyze(ctx, transcript, sc.Session.CumulativePsychology, sc.Session.PsychologyConfidence)
	observability.GetGlobalMetrics().RecordStage(ctx, "psychology", time.Since(stageStart), analysis.IsFallback)

	// ARCHETYPE: deterministic, replaces whatever the model proposed.
	var arch *archetype.Archetype
	if analysis.Confidence >= minArchetypeConfidence {
		a := o.archetypes.Determine(&analysis.Profile)
		arch = &a
	}

	// SYNTHESIS
	stageStart = time.Now()
	dna := o.synthesizer.Synthesize(ctx, &analysis.Profile, analysis.Confidence, "")
	observability.GetGlobalMetrics().RecordStage(ctx, "synthesis", time.Since(stageStart), dna.IsFallback)

	// FORK: persist the analysis state and derive indicators concurrently.
	// Neither branch returns an error: persistence failure only logs, and
	// indicator derivation always yields at least the fallback block.
	var ind indicators.SalesIndicators
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := o.store.PersistAnalysis(gctx, sessionID, store.AnalysisUpdate{
			CumulativePsychology:    &analysis.Profile,
			PsychologyConfidence:    analysis.Confidence,
			ActiveClarifyingQueries: analysis.ClarifyingQuestions,
			CustomerArchetype:       arch,
			HolisticProfile:         &dna,
			PsychologyUpdatedAt:     time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to persist analysis state", "session_id", sessionID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		stageStart := time.Now()
		ind = o.indicators.Derive(gctx, &dna, sc.Session.Notes)
		observability.GetGlobalMetrics().RecordStage(gctx, "indicators", time.Since(stageStart), ind.IsFallback)
		return nil
	})
	_ = g.Wait()

	// Indicators land after the fork; the session row must never hold a DNA
	// without its indicator block.
	if err := o.store.PersistAnalysis(ctx, sessionID, store.AnalysisUpdate{
		CumulativePsychology:    &analysis.Profile,
		PsychologyConfidence:    analysis.Confidence,
		ActiveClarifyingQueries: analysis.ClarifyingQuestions,
		CustomerArchetype:       arch,
		HolisticProfile:         &dna,
		SalesIndicators:         &ind,
		PsychologyUpdatedAt:     time.Now().UTC(),
	}); err != nil {
		slog.Error("failed to persist indicators", "session_id", sessionID, "error", err)
	}

	// STRATEGY
	stageStart = time.Now()
	response := o.strategist.Generate(ctx, strategy.Input{
		UserInput:            userInput,
		ClientAlias:          sc.Client.Alias,
		ClientArchetype:      sc.Client.Archetype,
		History:              historyLines(sc),
		Psychology:           &analysis.Profile,
		PsychologyConfidence: analysis.Confidence,
		DNA:                  &dna,
		Archetype:            arch,
	})
	observability.GetGlobalMetrics().RecordStage(ctx, "strategy", time.Since(stageStart), response.IsFallback)

	response.SalesIndicators = &ind

	return o.appendInteraction(ctx, sessionID, userInput, parentInteractionID, &response)
}

func (o *Orchestrator) appendInteraction(ctx context.Context, sessionID, userInput, parentInteractionID string, response *strategy.Response) (*store.Interaction, error) {
	interaction, err := o.store.AppendInteraction(ctx, sessionID, store.NewInteraction{
		UserInput:           userInput,
		AIResponse:          response,
		ParentInteractionID: parentInteractionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append interaction: %w", err)
	}
	return interaction, nil
}

// formatTranscript renders the ordered history plus the new observation as
// numbered timestamped seller lines, trimmed to the token budget when one is
// configured.
func (o *Orchestrator) formatTranscript(sc *store.SessionContext, userInput string) string {
	lines := make([]string, 0, len(sc.Interactions)+1)
	for i, interaction := range sc.Interactions {
		lines = append(lines, fmt.Sprintf("[%d] %s - seller: %s",
			i+1, interaction.TS.Format("15:04:05"), interaction.UserInput))
	}
	lines = append(lines, fmt.Sprintf("[%d] %s - seller: %s",
		len(sc.Interactions)+1, time.Now().Format("15:04:05"), userInput))

	if o.budget != nil {
		// Reserve room for the analyzer's fixed prompt scaffolding.
		lines = o.budget.TrimLines(lines, 2048)
	}

	return strings.Join(lines, "\n")
}

// historyLines returns the raw prior observations, oldest first.
func historyLines(sc *store.SessionContext) []string {
	lines := make([]string, 0, len(sc.Interactions))
	for _, interaction := range sc.Interactions {
		lines = append(lines, interaction.UserInput)
	}
	return lines
}
