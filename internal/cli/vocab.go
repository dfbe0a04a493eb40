package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/vocab"
)

// VocabOptions holds flags for the vocab command.
type VocabOptions struct {
	*RootOptions
	Config string
}

// VocabResult is the payload of the vocab command.
type VocabResult struct {
	Standard []string          `json:"standard"`
	Custom   []VocabCustomSlot `json:"custom,omitempty"`
}

// VocabCustomSlot is one configured custom slot in the payload.
type VocabCustomSlot struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// NewVocabCommand creates the vocab command.
func NewVocabCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VocabOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Print the effective allergen vocabulary",
		Long: `Load a vocabulary configuration and print the effective vocabulary:
the fixed standard kinds plus the configured custom slots.

With no --config, prints the default vocabulary.

Example:
  declared vocab
  declared vocab --config vocab.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVocab(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE vocabulary configuration")

	return cmd
}

func runVocab(opts *VocabOptions, cmd *cobra.Command) error {
	v := allergen.Default()
	if opts.Config != "" {
		loaded, err := vocab.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load vocabulary", err)
		}
		v = loaded
	}

	result := VocabResult{}
	for _, k := range allergen.StandardKinds {
		result.Standard = append(result.Standard, string(k))
	}
	for _, slot := range v.Custom {
		result.Custom = append(result.Custom, VocabCustomSlot{Name: slot.Name, Active: slot.Active})
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, k := range result.Standard {
		fmt.Fprintf(w, "%s\n", k)
	}
	for _, slot := range result.Custom {
		if slot.Active {
			fmt.Fprintf(w, "%s (custom)\n", slot.Name)
		} else {
			fmt.Fprintf(w, "%s (custom, inactive)\n", slot.Name)
		}
	}
	return nil
}
