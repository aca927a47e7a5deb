package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bartolsthoorn/gomps/internal/catalog"
	"github.com/bartolsthoorn/gomps/mps"
)

// CatalogList is the output of the catalog list command.
type CatalogList struct {
	Entries []catalog.Entry `json:"entries" yaml:"entries"`
}

// WriteText prints one line per entry.
func (l CatalogList) WriteText(w io.Writer) error {
	if len(l.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No models in catalog")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROWS\tCOLS\tNONZEROS\tSOURCE")
	for _, e := range l.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			e.ID, e.Name, e.Stats.Rows, e.Stats.Cols, e.Stats.Nonzeros, e.Source)
	}
	return tw.Flush()
}

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Store and retrieve models in a SQLite catalog",
		Long: `Manage a catalog of models kept in a SQLite database (see --catalog).

Models are stored in the fixed MPS layout together with their source, the
dialect they were read in and summary statistics.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <file>",
		Short: "Read an MPS file and add it to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogAdd(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the models in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "export <id> <output>",
		Short: "Write a cataloged model to an MPS file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogExport(rootOpts, args[0], args[1], cmd)
		},
	})

	return cmd
}

// withCatalog opens the configured catalog for the duration of fn.
func withCatalog(opts *RootOptions, formatter *OutputFormatter, fn func(*catalog.Catalog) error) error {
	path := opts.config.Catalog.Path
	formatter.VerboseLog("Using catalog %s", path)

	cat, err := catalog.Open(path)
	if err != nil {
		return formatter.Error("cannot open catalog", err)
	}
	defer cat.Close()
	return fn(cat)
}

func runCatalogAdd(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := mps.ReadFile(path, opts.config.MPSDialect(), opts.mpsOptions()...)
	if err != nil {
		return formatter.Error("read failed", err)
	}

	return withCatalog(opts, formatter, func(cat *catalog.Catalog) error {
		entry, err := cat.Add(contextOf(cmd), m, opts.mpsOptions()...)
		if err != nil {
			return formatter.Error("add failed", err)
		}
		if formatter.Format == "text" {
			return formatter.Success(fmt.Sprintf("Added %s as %s", path, entry.ID))
		}
		return formatter.Success(entry)
	})
}

func runCatalogList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	return withCatalog(opts, formatter, func(cat *catalog.Catalog) error {
		entries, err := cat.List(contextOf(cmd))
		if err != nil {
			return formatter.Error("list failed", err)
		}
		return formatter.Success(CatalogList{Entries: entries})
	})
}

func runCatalogExport(opts *RootOptions, id, out string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	return withCatalog(opts, formatter, func(cat *catalog.Catalog) error {
		if err := cat.Export(contextOf(cmd), id, out); err != nil {
			return formatter.Error("export failed", err)
		}
		if formatter.Format == "text" {
			return formatter.Success(fmt.Sprintf("Exported %s to %s", id, out))
		}
		return formatter.Success(map[string]string{"id": id, "output": out})
	})
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
