package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirepoix/declared/internal/engine"
	"github.com/mirepoix/declared/internal/graph"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Snapshot string
}

// ValidateFinding is one problem found in a snapshot.
type ValidateFinding struct {
	RecipeID string `json:"recipe_id,omitempty"`
	Where    string `json:"where,omitempty"`
	Problem  string `json:"problem"`
}

// ValidateResult is the payload of the validate command.
type ValidateResult struct {
	Valid    bool              `json:"valid"`
	Recipes  int               `json:"recipes"`
	Findings []ValidateFinding `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a snapshot without writing anything",
		Long: `Run the full reconciliation pipeline over a YAML snapshot in memory and
report every problem found: kinds the vocabulary does not recognize,
ingredient lines that cannot be resolved, and invariant violations.

Nothing is persisted. Exit code 1 signals findings, 2 a command error.

Example:
  declared validate --snapshot menu.yaml
  declared validate --snapshot menu.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "path to YAML snapshot (required)")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	snap, err := LoadSnapshot(opts.Snapshot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}

	result := ValidateResult{Valid: true, Recipes: len(snap.Recipes)}

	for where, kinds := range snap.UnrecognizedKinds() {
		for _, k := range kinds {
			result.Findings = append(result.Findings, ValidateFinding{
				Where:   where,
				Problem: fmt.Sprintf("kind %q not in vocabulary", k),
			})
		}
	}

	// Recompute each recipe purely, in file order, feeding each computed
	// declaration back in so later recipes can resolve it as a sub-recipe.
	subs := graph.SubDeclMap{}
	for _, r := range snap.Recipes {
		out, err := engine.Recompute(engine.Inputs{
			RecipeID:  r.ID,
			Lines:     r.Lines,
			Masters:   snap.Masters,
			Subs:      subs,
			Vocab:     snap.Vocab,
			Overrides: r.Overrides,
		})
		if err != nil {
			result.Findings = append(result.Findings, ValidateFinding{
				RecipeID: r.ID,
				Problem:  err.Error(),
			})
			continue
		}
		for _, u := range out.Unresolved {
			result.Findings = append(result.Findings, ValidateFinding{
				RecipeID: r.ID,
				Where:    "line " + u.LineID,
				Problem:  u.Reason,
			})
		}
		subs[r.ID] = graph.SubRecipeDecl{
			Contains:   out.Declaration.ContainsSet(),
			MayContain: out.Declaration.MayContainSet(),
		}
	}

	result.Valid = len(result.Findings) == 0

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Valid {
			fmt.Fprintf(w, "ok: %d recipes validated\n", result.Recipes)
		} else {
			for _, finding := range result.Findings {
				switch {
				case finding.RecipeID != "" && finding.Where != "":
					fmt.Fprintf(w, "%s: %s: %s\n", finding.RecipeID, finding.Where, finding.Problem)
				case finding.RecipeID != "":
					fmt.Fprintf(w, "%s: %s\n", finding.RecipeID, finding.Problem)
				default:
					fmt.Fprintf(w, "%s: %s\n", finding.Where, finding.Problem)
				}
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d findings", len(result.Findings)))
	}
	return nil
}
