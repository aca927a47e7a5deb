package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bartolsthoorn/gomps/lp"
	"github.com/bartolsthoorn/gomps/mps"
)

// ModelSummary is the output of the read command.
type ModelSummary struct {
	Name       string   `json:"name" yaml:"name"`
	Sense      string   `json:"sense" yaml:"sense"`
	Objective  string   `json:"objective,omitempty" yaml:"objective,omitempty"`
	Offset     float64  `json:"offset" yaml:"offset"`
	Source     string   `json:"source" yaml:"source"`
	Dialect    string   `json:"dialect" yaml:"dialect"`
	Duplicates string   `json:"duplicates" yaml:"duplicates"`
	Stats      lp.Stats `json:"stats" yaml:"stats"`
}

// Summarize describes m for display.
func Summarize(m *lp.Model) ModelSummary {
	s := ModelSummary{
		Name:       m.Name,
		Sense:      m.Sense.String(),
		Offset:     m.Offset,
		Source:     m.Provenance.Source,
		Dialect:    m.Provenance.Dialect,
		Duplicates: m.Provenance.Duplicates.String(),
		Stats:      m.Stats(),
	}
	if m.Objective >= 0 {
		s.Objective = m.Rows[m.Objective].Name
	}
	return s
}

// WriteText prints the summary as aligned key/value lines.
func (s ModelSummary) WriteText(w io.Writer) error {
	name := s.Name
	if name == "" {
		name = "(unnamed)"
	}
	objective := s.Objective
	if objective == "" {
		objective = "(none)"
	}

	kinds := make([]string, 0, len(s.Stats.ByKind))
	for k := range s.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	byKind := make([]string, len(kinds))
	for i, k := range kinds {
		byKind[i] = fmt.Sprintf("%s=%d", k, s.Stats.ByKind[k])
	}

	_, err := fmt.Fprintf(w, `Model:      %s
Source:     %s (%s, duplicates %s)
Objective:  %s %s, offset %g
Rows:       %d (%s)
Columns:    %d (%d integer, %d bounded)
Nonzeros:   %d
Ranged:     %d
`,
		name,
		s.Source, s.Dialect, s.Duplicates,
		s.Sense, objective, s.Offset,
		s.Stats.Rows, strings.Join(byKind, " "),
		s.Stats.Cols, s.Stats.Integers, s.Stats.Bounded,
		s.Stats.Nonzeros,
		s.Stats.Ranged,
	)
	return err
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Read an MPS file and print a summary of the model",
		Long: `Read an MPS file in the configured dialect and print its name, objective,
shape and provenance. The exit code is 1 when the file is malformed and 2
when it cannot be opened.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRead(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	dialect := opts.config.MPSDialect()

	formatter.VerboseLog("Reading %s (%s dialect, duplicates %s)", path, dialect, opts.config.DuplicatePolicy())
	m, err := mps.ReadFile(path, dialect, opts.mpsOptions()...)
	if err != nil {
		return formatter.Error("read failed", err)
	}
	return formatter.Success(Summarize(m))
}
