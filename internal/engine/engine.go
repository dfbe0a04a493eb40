package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/decl"
	"github.com/mirepoix/declared/internal/graph"
)

// Snapshot is one recipe's complete input snapshot, assembled by the host's
// snapshot source at dequeue time so a pass never sees partial or
// interleaved inputs.
type Snapshot struct {
	RecipeID string
	Lines    []graph.IngredientLine
	Masters  graph.MasterCatalog
	Subs     graph.SubRecipeDeclarations
	Vocab    allergen.Vocabulary

	// Overrides must already be recovered to EmptyOverrides if the stored
	// record was missing or malformed.
	Overrides Overrides

	// CurrentFingerprint is the fingerprint of the materialized declaration,
	// empty if none. It doubles as the write's conflict guard.
	CurrentFingerprint string
}

// SnapshotSource assembles input snapshots. Implemented by the sqlite store
// in production and by fixtures in tests.
type SnapshotSource interface {
	Snapshot(ctx context.Context, recipeID string) (Snapshot, error)
}

// DeclarationWriter is the engine's sole integration point to persistence.
// One write per recompute, both representation shapes, atomic.
//
// The writer must compare baseFingerprint against the materialized
// declaration's fingerprint and return ErrWriteConflict on mismatch instead
// of overwriting - that is the freshest-input-wins serialization point for
// concurrent recomputations.
//
// The writer must never set or modify the declaration's confirmed/signed-off
// timestamp; confirmation is a separate operator-driven workflow.
type DeclarationWriter interface {
	WriteDeclaration(ctx context.Context, d decl.Declaration, fingerprint, baseFingerprint string) error
}

// OverridePatcher applies orphan-promotion cleanup: replace the stored
// promotion list, touch nothing else. The engine's only write path into the
// override record.
type OverridePatcher interface {
	ReplacePromotions(ctx context.Context, recipeID string, promoted []allergen.Kind) error
}

// State is the per-recipe engine state, for introspection and tests.
// Transitions: Idle → Recomputing → (Unchanged | Writing) → Idle.
type State string

const (
	StateIdle        State = "idle"
	StateRecomputing State = "recomputing"
	StateUnchanged   State = "unchanged"
	StateWriting     State = "writing"
)

// Engine is the single-writer reconciliation loop.
//
// The engine owns no background threads of its own beyond Run: the host
// invokes Invalidate whenever a declared input changes, the Run loop
// processes invalidations one recipe at a time, and each pass is a pure
// Recompute followed by at most one write. Recipes recompute independently;
// there is no cross-recipe locking.
//
// Thread-safety model:
//   - Invalidate(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - RecomputeOnce(): synchronous alternative for hosts without a loop
type Engine struct {
	src     SnapshotSource
	writer  DeclarationWriter
	patcher OverridePatcher

	clock  *Clock
	queue  *invalidationQueue
	tokens PassTokenGenerator

	mu         sync.Mutex
	states     map[string]State
	graphMarks map[string]graphMark // recipe id -> graph identity of the last settled pass
}

// graphMark records the graph identity fingerprint a pass acted on and the
// logical time of that pass. Marks are recorded only once a pass has fully
// settled (declaration unchanged, or written without error) so a failed or
// conflicted write never suppresses the retry that repairs it.
type graphMark struct {
	fingerprint string
	seq         int64
}

// New creates an Engine over the given collaborators.
// tokens may be nil, in which case UUIDv7 pass tokens are used.
func New(src SnapshotSource, writer DeclarationWriter, patcher OverridePatcher, tokens PassTokenGenerator) *Engine {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Engine{
		src:        src,
		writer:     writer,
		patcher:    patcher,
		clock:      NewClock(),
		queue:      newInvalidationQueue(),
		tokens:     tokens,
		states:     make(map[string]State),
		graphMarks: make(map[string]graphMark),
	}
}

// Invalidate tells the engine a recipe's input changed.
// Thread-safe; rapid calls for the same recipe coalesce.
// Returns false if the engine has been stopped.
func (e *Engine) Invalidate(recipeID string, cause Cause) bool {
	return e.queue.Enqueue(Invalidation{RecipeID: recipeID, Cause: cause})
}

// State returns the current state of a recipe's engine instance.
func (e *Engine) State(recipeID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[recipeID]; ok {
		return s
	}
	return StateIdle
}

func (e *Engine) setState(recipeID string, s State) {
	e.mu.Lock()
	e.states[recipeID] = s
	e.mu.Unlock()
}

// markGraph records the graph identity a settled pass acted on. Called only
// from the unchanged and written-without-error exits of pass.
func (e *Engine) markGraph(recipeID, graphFP string, seq int64) {
	e.mu.Lock()
	e.graphMarks[recipeID] = graphMark{fingerprint: graphFP, seq: seq}
	e.mu.Unlock()
}

// Pending returns the number of recipes awaiting recomputation.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Run starts the single-writer reconciliation loop.
// Blocks until the context is cancelled or Stop is called.
//
// ERROR HANDLING: a failed pass is logged with full context and processing
// continues; the next invalidation for the recipe retries naturally. This
// log-and-continue behavior keeps one bad recipe from starving the rest.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("reconciliation engine starting")

	for {
		inv, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processInvalidation(ctx, inv); err != nil {
				slog.Error("recompute pass failed",
					"error", err,
					"recipe_id", inv.RecipeID,
					"cause", inv.Cause.String(),
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("reconciliation engine stopping: context cancelled",
				"passes", e.clock.Current(),
			)
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// A wakeup can outlive the entry it announced when TryDequeue
			// already drained it, so an empty queue alone is not a stop
			// signal. Stop only once the queue is closed and drained.
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("reconciliation engine stopping: queue closed",
					"passes", e.clock.Current(),
				)
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the queue, which causes Run to return once drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// RecomputeOnce runs a single synchronous pass for one recipe and returns
// its outcome. Used by hosts that drive recomputation themselves (and by the
// CLI); the Run loop uses the same path.
func (e *Engine) RecomputeOnce(ctx context.Context, recipeID string, cause Cause) (Outcome, error) {
	return e.pass(ctx, Invalidation{RecipeID: recipeID, Cause: cause})
}

func (e *Engine) processInvalidation(ctx context.Context, inv Invalidation) error {
	_, err := e.pass(ctx, inv)
	return err
}

// pass executes the full state machine for one invalidation:
// snapshot → (maybe skip) → recompute → orphan cleanup → (maybe write).
func (e *Engine) pass(ctx context.Context, inv Invalidation) (Outcome, error) {
	token := e.tokens.Generate()
	seq := e.clock.Next()

	e.setState(inv.RecipeID, StateRecomputing)
	defer e.setState(inv.RecipeID, StateIdle)

	slog.Debug("recompute pass started",
		"recipe_id", inv.RecipeID,
		"cause", inv.Cause.String(),
		"pass", token,
		"seq", seq,
	)

	snap, err := e.src.Snapshot(ctx, inv.RecipeID)
	if err != nil {
		return Outcome{}, fmt.Errorf("snapshot recipe %s: %w", inv.RecipeID, err)
	}

	// Graph-only invalidations whose line identity list is unchanged need no
	// recompute at all: nothing the fingerprint covers moved, and catalog or
	// override changes arrive with their own cause bits.
	if inv.Cause == CauseGraph {
		graphFP, err := decl.GraphFingerprint(inv.RecipeID, lineIdentities(snap.Lines))
		if err != nil {
			return Outcome{}, fmt.Errorf("graph fingerprint for recipe %s: %w", inv.RecipeID, err)
		}
		e.mu.Lock()
		mark, seen := e.graphMarks[inv.RecipeID]
		e.mu.Unlock()
		if seen && mark.fingerprint == graphFP {
			slog.Debug("recompute skipped: graph identity unchanged",
				"recipe_id", inv.RecipeID,
				"pass", token,
				"marked_seq", mark.seq,
			)
			return Outcome{GraphFingerprint: graphFP, Fingerprint: snap.CurrentFingerprint}, nil
		}
	}

	out, err := Recompute(Inputs{
		RecipeID:           inv.RecipeID,
		Lines:              snap.Lines,
		Masters:            snap.Masters,
		Subs:               snap.Subs,
		Vocab:              snap.Vocab,
		Overrides:          snap.Overrides,
		CurrentFingerprint: snap.CurrentFingerprint,
	})
	if err != nil {
		return Outcome{}, err
	}

	for _, u := range out.Unresolved {
		slog.Warn("unresolved ingredient reference",
			"recipe_id", inv.RecipeID,
			"line_id", u.LineID,
			"ref_kind", u.Ref.Kind.String(),
			"target", u.Ref.Target,
			"reason", u.Reason,
		)
	}

	if out.OverridePatch != nil {
		slog.Info("orphan promotions cleaned",
			"recipe_id", inv.RecipeID,
			"kept", len(out.OverridePatch.Promoted),
			"pass", token,
		)
		if err := e.patcher.ReplacePromotions(ctx, inv.RecipeID, out.OverridePatch.Promoted); err != nil {
			return Outcome{}, fmt.Errorf("replace promotions for recipe %s: %w", inv.RecipeID, err)
		}
	}

	if !out.Changed {
		e.setState(inv.RecipeID, StateUnchanged)
		e.markGraph(inv.RecipeID, out.GraphFingerprint, seq)
		slog.Debug("declaration unchanged, no write",
			"recipe_id", inv.RecipeID,
			"fingerprint", out.Fingerprint,
			"pass", token,
		)
		return out, nil
	}

	e.setState(inv.RecipeID, StateWriting)
	err = e.writer.WriteDeclaration(ctx, out.Declaration, out.Fingerprint, snap.CurrentFingerprint)
	if err != nil {
		if IsWriteConflict(err) {
			// A fresher pass won the race. Discard this write and schedule
			// exactly one follow-up on the then-current snapshot.
			slog.Warn("declaration write conflict, scheduling follow-up",
				"recipe_id", inv.RecipeID,
				"pass", token,
			)
			e.queue.Enqueue(inv)
			return out, nil
		}
		return Outcome{}, fmt.Errorf("write declaration for recipe %s: %w", inv.RecipeID, err)
	}

	e.markGraph(inv.RecipeID, out.GraphFingerprint, seq)
	slog.Info("declaration written",
		"recipe_id", inv.RecipeID,
		"contains", len(out.Declaration.Contains),
		"may_contain", len(out.Declaration.MayContain),
		"fingerprint", out.Fingerprint,
		"pass", token,
	)

	return out, nil
}
