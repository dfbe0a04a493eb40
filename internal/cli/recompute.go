package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mirepoix/declared/internal/engine"
	"github.com/mirepoix/declared/internal/store"
)

// RecomputeOptions holds flags for the recompute command.
type RecomputeOptions struct {
	*RootOptions
	Snapshot string
	Database string
}

// RecomputeResult is the per-recipe payload of the recompute command.
type RecomputeResult struct {
	RecipeID    string   `json:"recipe_id"`
	Changed     bool     `json:"changed"`
	Fingerprint string   `json:"fingerprint"`
	Contains    []string `json:"contains"`
	MayContain  []string `json:"may_contain"`
	Environment []string `json:"environment,omitempty"`
	Unresolved  int      `json:"unresolved,omitempty"`
}

// NewRecomputeCommand creates the recompute command.
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecomputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute declarations from a snapshot file",
		Long: `Seed a database from a YAML snapshot and recompute every recipe's
allergen declaration.

Recipes are processed in file order, so a recipe may reference any recipe
declared before it as a sub-recipe.

Example:
  declared recompute --snapshot menu.yaml --db ./declared.db
  declared recompute --snapshot menu.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecompute(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "path to YAML snapshot (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (in-memory if omitted)")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func runRecompute(opts *RecomputeOptions, cmd *cobra.Command) error {
	snap, err := LoadSnapshot(opts.Snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath, store.WithVocabulary(snap.Vocab))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := seedStore(ctx, st, snap); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed database", err)
	}

	eng := engine.New(st, st, st, nil)

	var results []RecomputeResult
	for _, r := range snap.Recipes {
		out, err := eng.RecomputeOnce(ctx, r.ID, engine.CauseGraph)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("recompute %s failed", r.ID), err)
		}
		results = append(results, RecomputeResult{
			RecipeID:    r.ID,
			Changed:     out.Changed,
			Fingerprint: out.Fingerprint,
			Contains:    kindList(out.Declaration.Contains),
			MayContain:  kindList(out.Declaration.MayContain),
			Environment: kindList(out.Declaration.Environment),
			Unresolved:  len(out.Unresolved),
		})
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return f.Success(results)
	}
	for _, res := range results {
		status := "unchanged"
		if res.Changed {
			status = "updated"
		}
		line := fmt.Sprintf("%s: %s contains=[%s] may_contain=[%s]",
			res.RecipeID, status,
			strings.Join(res.Contains, ","),
			strings.Join(res.MayContain, ","))
		if len(res.Environment) > 0 {
			line += fmt.Sprintf(" environment=[%s]", strings.Join(res.Environment, ","))
		}
		if res.Unresolved > 0 {
			line += fmt.Sprintf(" (%d unresolved)", res.Unresolved)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// seedStore writes a snapshot's catalog, recipes, lines and overrides.
func seedStore(ctx context.Context, st *store.Store, snap *Snapshot) error {
	for _, id := range sortedMasterIDs(snap.Masters) {
		if err := st.UpsertMaster(ctx, snap.Masters[id]); err != nil {
			return err
		}
	}
	for _, r := range snap.Recipes {
		if err := st.UpsertRecipe(ctx, r.ID, r.Name); err != nil {
			return err
		}
		if err := st.ReplaceLines(ctx, r.ID, r.Lines); err != nil {
			return err
		}
		if err := st.SaveOverrides(ctx, r.ID, r.Overrides); err != nil {
			return err
		}
	}
	return nil
}
