package cli

import (
	"github.com/spf13/cobra"

	"github.com/bartolsthoorn/gomps/mps"
)

// ConvertResult is the output of the convert command.
type ConvertResult struct {
	Input  string       `json:"input" yaml:"input"`
	Output string       `json:"output" yaml:"output"`
	Model  ModelSummary `json:"model" yaml:"model"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Rewrite an MPS file in the fixed layout",
		Long: `Read <input> in the configured dialect and write the model to <output> in
the fixed MPS layout. Names that do not fit the fixed fields are replaced by
generated names.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runConvert(opts *RootOptions, in, out string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := mps.ReadFile(in, opts.config.MPSDialect(), opts.mpsOptions()...)
	if err != nil {
		return formatter.Error("read failed", err)
	}
	formatter.VerboseLog("Read %d rows, %d columns from %s", m.NumRows(), m.NumCols(), in)

	if err := mps.WriteFile(out, m, opts.mpsOptions()...); err != nil {
		return formatter.Error("write failed", err)
	}

	result := ConvertResult{Input: in, Output: out, Model: Summarize(m)}
	if formatter.Format == "text" {
		return formatter.Success("Wrote " + out)
	}
	return formatter.Success(result)
}
