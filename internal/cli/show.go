package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirepoix/declared/internal/decl"
	"github.com/mirepoix/declared/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// ShowResult is the payload of the show command: the stored declaration in
// both shapes plus its persistence metadata.
type ShowResult struct {
	RecipeID    string                 `json:"recipe_id"`
	Legacy      decl.LegacyRecord      `json:"legacy"`
	Normalized  []decl.NormalizedEntry `json:"normalized"`
	Fingerprint string                 `json:"fingerprint"`
	ConfirmedAt string                 `json:"confirmed_at,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <recipe-id>",
		Short: "Show a recipe's stored declaration",
		Long: `Show the materialized allergen declaration for a recipe: the legacy
aggregate shape, the normalized per-kind rows, the fingerprint and the
operator confirmation timestamp if present.

Example:
  declared show r-bread --db ./declared.db
  declared show r-bread --db ./declared.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, recipeID string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stored, err := st.ReadDeclaration(ctx, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitFailure, fmt.Sprintf("no declaration for recipe %q", recipeID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read declaration", err)
	}

	flags, err := st.ReadFlags(ctx, recipeID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read declaration flags", err)
	}

	result := ShowResult{
		RecipeID:    recipeID,
		Legacy:      stored.Declaration.Legacy(),
		Normalized:  flags,
		Fingerprint: stored.Fingerprint,
	}
	if stored.ConfirmedAt != nil {
		result.ConfirmedAt = stored.ConfirmedAt.Format(time.RFC3339)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "recipe:      %s\n", result.RecipeID)
	fmt.Fprintf(w, "contains:    %s\n", strings.Join(result.Legacy.Contains, ", "))
	fmt.Fprintf(w, "may contain: %s\n", strings.Join(result.Legacy.MayContain, ", "))
	if len(result.Legacy.Environment) > 0 {
		fmt.Fprintf(w, "environment: %s\n", strings.Join(result.Legacy.Environment, ", "))
	}
	for _, note := range result.Legacy.CrossContactRisk {
		fmt.Fprintf(w, "note:        %s\n", note)
	}
	fmt.Fprintf(w, "fingerprint: %s\n", result.Fingerprint)
	if result.ConfirmedAt != "" {
		fmt.Fprintf(w, "confirmed:   %s\n", result.ConfirmedAt)
	}
	return nil
}
