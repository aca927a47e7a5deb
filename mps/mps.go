// Package mps reads and writes linear and mixed-integer models in the MPS
// format.
//
// Two dialects are read: the legacy fixed-column layout and the
// whitespace-delimited free layout. Models are always written in the fixed
// layout.
//
//	model, err := mps.ReadFile("afiro.mps", mps.Free)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(model.NumRows(), model.NumCols())
//
//	if err := mps.WriteFile("afiro.fixed.mps", model); err != nil {
//		log.Fatal(err)
//	}
//
// Every failure is an *Error whose Kind tells a missing source apart from
// malformed content. A read either returns a complete, valid model or no
// model at all.
//
// Readers and writers keep no state between calls; concurrent calls on
// different inputs are independent.
package mps

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/gomps/lp"
)

// Read parses an MPS model from r using the given dialect.
func Read(r io.Reader, dialect Dialect, opts ...Option) (*lp.Model, error) {
	return read(r, dialect, newConfig(opts))
}

// ReadFile opens path and parses it using the given dialect. A path that
// cannot be opened yields an error of kind KindSourceNotFound.
func ReadFile(path string, dialect Dialect, opts ...Option) (*lp.Model, error) {
	cfg := newConfig(opts)
	if cfg.source == "" {
		cfg.source = path
	}

	f, err := os.Open(path)
	if err != nil {
		err = &Error{Op: "Read", Kind: KindSourceNotFound, Msg: path, Err: err}
		cfg.metrics.observeRead(dialect, 0, nil, err)
		return nil, err
	}
	defer f.Close()

	return read(f, dialect, cfg)
}

func read(r io.Reader, dialect Dialect, cfg *config) (*lp.Model, error) {
	log := cfg.logger.Named("read")
	if cfg.source != "" {
		log = log.With(zap.String("source", cfg.source))
	}

	sc := newScanner(r, dialect)
	p := newParser(sc, newAssembler(cfg.duplicates, log), log)
	m, err := p.run()
	cfg.metrics.observeRead(dialect, sc.line, m, err)
	if err != nil {
		return nil, err
	}

	m.Provenance = lp.Provenance{
		Source:     cfg.source,
		Dialect:    dialect.String(),
		Duplicates: cfg.duplicates,
	}
	return m, nil
}

// Write emits m to w in the fixed dialect. A model that fails
// lp.Model.Validate is rejected before anything is written.
func Write(w io.Writer, m *lp.Model, opts ...Option) error {
	cfg := newConfig(opts)
	err := validate(m)
	if err == nil {
		err = write(w, m, cfg)
	}
	cfg.metrics.observeWrite(err)
	return err
}

// WriteFile creates path and writes m to it in the fixed dialect. The file
// is closed on every path; after a failure its content is unspecified.
func WriteFile(path string, m *lp.Model, opts ...Option) (err error) {
	cfg := newConfig(opts)
	defer func() { cfg.metrics.observeWrite(err) }()

	if err := validate(m); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return &Error{Op: "Write", Kind: KindDestinationUnwritable, Msg: path, Err: err}
	}
	if err := write(f, m, cfg); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &Error{Op: "Write", Kind: KindDestinationUnwritable, Msg: path, Err: err}
	}
	return nil
}

func validate(m *lp.Model) error {
	if m == nil {
		return &Error{Op: "Write", Kind: KindStructural, Msg: "nil model"}
	}
	if err := m.Validate(); err != nil {
		return &Error{Op: "Write", Kind: KindStructural, Msg: "invalid model", Err: err}
	}
	return nil
}

func write(w io.Writer, m *lp.Model, cfg *config) error {
	if err := newWriter(w, cfg.logger.Named("write")).write(m); err != nil {
		return newError("Write", KindDestinationUnwritable, "", err)
	}
	return nil
}

// Builder is an incremental model-construction collaborator. Reading into a
// Builder is not provided by this package.
type Builder interface {
	AddRow(name string, kind lp.RowKind) error
	AddColumn(name string, lower, upper float64, integer bool) error
	SetCoefficient(row, col string, value float64) error
}

// ReadBuilder always fails with KindUnsupported: incremental construction
// belongs to the model-builder component, not to the file reader.
func ReadBuilder(path string, b Builder) error {
	return &Error{Op: "ReadBuilder", Kind: KindUnsupported,
		Msg: "reading into a model builder is not implemented; use ReadFile"}
}
