package mps

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/unicode"

	"github.com/bartolsthoorn/gomps/lp"
)

var ignoreProvenance = cmpopts.IgnoreFields(lp.Model{}, "Provenance")

func readString(t *testing.T, input string, d Dialect, opts ...Option) (*lp.Model, error) {
	t.Helper()
	return Read(strings.NewReader(input), d, opts...)
}

func mustRead(t *testing.T, input string, d Dialect, opts ...Option) *lp.Model {
	t.Helper()
	m, err := readString(t, input, d, opts...)
	require.NoError(t, err)
	return m
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "error: %v", err)
	return e
}

func TestReadScenario(t *testing.T) {
	input := "ROWS\n N obj\n L c1\nCOLUMNS\n x obj 1.0 c1 2.0\nRHS\n rhs c1 10.0\nBOUNDS\nENDATA"
	m := mustRead(t, input, Free)

	require.Equal(t, 1, m.NumCols())
	assert.Equal(t, "x", m.Cols[0].Name)
	assert.Equal(t, 0, m.Objective)
	assert.Equal(t, 1.0, m.Coefficient(0, 0))
	assert.Equal(t, 2.0, m.Coefficient(1, 0))

	c1 := m.Rows[1]
	assert.True(t, math.IsInf(c1.Lower, -1))
	assert.Equal(t, 10.0, c1.Upper)

	x := m.Cols[0]
	assert.Equal(t, 0.0, x.Lower)
	assert.True(t, math.IsInf(x.Upper, 1))
	assert.False(t, x.Integer)
}

func TestReadExample(t *testing.T) {
	m, err := ReadFile(filepath.Join("testdata", "example_fixed.mps"), Fixed)
	require.NoError(t, err)

	assert.Equal(t, "EXAMPLE", m.Name)
	assert.Equal(t, lp.Maximize, m.Sense)
	assert.Equal(t, 3.5, m.Offset)
	assert.Equal(t, 0, m.Objective)
	assert.Equal(t, 9, m.Matrix.NumNonzeros())

	bounds := func(name string) [2]float64 {
		i, ok := m.RowIndex(name)
		require.True(t, ok, name)
		return [2]float64{m.Rows[i].Lower, m.Rows[i].Upper}
	}
	assert.Equal(t, [2]float64{1.5, 4}, bounds("LIM1"))
	assert.Equal(t, [2]float64{1, math.Inf(1)}, bounds("LIM2"))
	assert.Equal(t, [2]float64{5, 7}, bounds("MYEQN"))

	want := []lp.Column{
		{Name: "X1", Lower: 0, Upper: 4},
		{Name: "X2", Lower: -1, Upper: 1, Integer: true},
		{Name: "X3", Lower: math.Inf(-1), Upper: 8},
		{Name: "X4", Lower: 2.5, Upper: 2.5},
		{Name: "X5", Lower: 0, Upper: 1, Integer: true},
	}
	assert.Equal(t, want, m.Cols)
	assert.Equal(t, []float64{1, 2, -1, 0, 0}, m.ColCosts())

	assert.Equal(t, filepath.Join("testdata", "example_fixed.mps"), m.Provenance.Source)
	assert.Equal(t, "fixed", m.Provenance.Dialect)
	assert.Equal(t, lp.DuplicateSum, m.Provenance.Duplicates)
	assert.NoError(t, m.Validate())
}

func TestFixedAndFreeAgree(t *testing.T) {
	fixed, err := ReadFile(filepath.Join("testdata", "example_fixed.mps"), Fixed)
	require.NoError(t, err)
	free, err := ReadFile(filepath.Join("testdata", "example_free.mps"), Free)
	require.NoError(t, err)

	if diff := cmp.Diff(fixed, free, ignoreProvenance); diff != "" {
		t.Errorf("fixed and free models differ (-fixed +free):\n%s", diff)
	}
}

func TestReadIsIdempotent(t *testing.T) {
	path := filepath.Join("testdata", "example_free.mps")
	a, err := ReadFile(path, Free)
	require.NoError(t, err)
	b, err := ReadFile(path, Free)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestReadRanges(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		rng    string
		lo, hi float64
	}{
		{"le", "L", "4", 6, 10},
		{"le negative", "L", "-4", 6, 10},
		{"ge", "G", "4", 10, 14},
		{"ge negative", "G", "-4", 10, 14},
		{"eq positive", "E", "4", 10, 14},
		{"eq negative", "E", "-4", 6, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "ROWS\n N obj\n " + tt.kind + " c1\nCOLUMNS\n x c1 1\nRHS\n c1 10\nRANGES\n c1 " + tt.rng + "\nENDATA\n"
			m := mustRead(t, input, Free)
			assert.Equal(t, tt.lo, m.Rows[1].Lower)
			assert.Equal(t, tt.hi, m.Rows[1].Upper)
			assert.True(t, m.Rows[1].HasRange)
		})
	}
}

func TestReadRangeOnFreeRowIgnored(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	input := "ROWS\n N obj\n L c1\nCOLUMNS\n x obj 1 c1 1\nRANGES\n obj 3\nENDATA\n"
	m := mustRead(t, input, Free, WithLogger(zap.New(core)))

	assert.False(t, m.Rows[0].HasRange)
	assert.True(t, math.IsInf(m.Rows[0].Lower, -1))
	assert.Equal(t, 1, logs.FilterMessage("ignoring range on free row").Len())
}

func TestReadBounds(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name    string
		bounds  string
		lo, up  float64
		integer bool
	}{
		{"up", " UP BND x 5", 0, 5, false},
		{"up negative", " UP BND x -5", -inf, -5, false},
		{"up negative after lo", " LO BND x -8\n UP BND x -5", -8, -5, false},
		{"lo", " LO BND x 2", 2, inf, false},
		{"fx", " FX BND x 3", 3, 3, false},
		{"fr", " FR BND x", -inf, inf, false},
		{"mi", " MI BND x", -inf, inf, false},
		{"pl", " UP BND x 4\n PL BND x", 0, inf, false},
		{"bv", " BV BND x", 0, 1, true},
		{"li", " LI BND x 2", 2, inf, true},
		{"ui", " UI BND x 9", 0, 9, true},
		{"without set name", " UP x 5", 0, 5, false},
		{"infinite value", " UP BND x 1e30\n LO BND x -1e31", -inf, inf, false},
		{"fortran exponent", " UP BND x 1.5D+02", 0, 150, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "ROWS\n N obj\nCOLUMNS\n x obj 1\nBOUNDS\n" + tt.bounds + "\nENDATA\n"
			m := mustRead(t, input, Free)
			x := m.Cols[0]
			assert.Equal(t, tt.lo, x.Lower)
			assert.Equal(t, tt.up, x.Upper)
			assert.Equal(t, tt.integer, x.Integer)
		})
	}
}

func TestReadDefaultBounds(t *testing.T) {
	input := "ROWS\n N obj\n G c1\nCOLUMNS\n x obj 1 c1 1\n y c1 1\nBOUNDS\n UP BND x 3\nENDATA\n"
	m := mustRead(t, input, Free)
	assert.Equal(t, lp.NewColumn("y"), m.Cols[1])
	assert.True(t, m.Cols[1].IsDefault())
}

func TestReadIntegerMarkers(t *testing.T) {
	input := "ROWS\n N obj\nCOLUMNS\n a obj 1\n" +
		" M1 'MARKER' 'INTORG'\n b obj 1\n c obj 1\n M2 'MARKER' 'INTEND'\n d obj 1\nENDATA\n"
	m := mustRead(t, input, Free)

	var integer []bool
	for _, c := range m.Cols {
		integer = append(integer, c.Integer)
	}
	assert.Equal(t, []bool{false, true, true, false}, integer)
}

func TestReadObjectiveOffset(t *testing.T) {
	input := "ROWS\n N obj\n L c1\nCOLUMNS\n x obj 1 c1 1\nRHS\n RHS obj 12.5 c1 4\nENDATA\n"
	m := mustRead(t, input, Free)
	assert.Equal(t, -12.5, m.Offset)
	assert.Equal(t, 0.0, m.Rows[0].RHS)
	assert.Equal(t, 4.0, m.Rows[1].RHS)
}

func TestReadObjName(t *testing.T) {
	input := "OBJNAME\n profit\nROWS\n N cost\n N profit\n L c1\nCOLUMNS\n x cost 1 profit 3 c1 1\nENDATA\n"
	m := mustRead(t, input, Free)
	assert.Equal(t, 1, m.Objective)
	assert.Equal(t, []float64{3}, m.ColCosts())

	_, err := readString(t, "OBJNAME c1\nROWS\n N cost\n L c1\nCOLUMNS\n x c1 1\nENDATA\n", Free)
	e := requireKind(t, err, KindStructural)
	assert.Contains(t, e.Msg, "not an N row")
}

func TestReadObjSense(t *testing.T) {
	for _, input := range []string{
		"OBJSENSE\n    MAX\nROWS\n N obj\nCOLUMNS\n x obj 1\nENDATA\n",
		"OBJSENSE MAXIMIZE\nROWS\n N obj\nCOLUMNS\n x obj 1\nENDATA\n",
		"OBJSENCE\n    MAX\nROWS\n N obj\nCOLUMNS\n x obj 1\nENDATA\n",
	} {
		m := mustRead(t, input, Free)
		assert.Equal(t, lp.Maximize, m.Sense)
	}

	_, err := readString(t, "OBJSENSE\n    UP\nROWS\nENDATA\n", Free)
	requireKind(t, err, KindStructural)
}

func TestReadOnlyFirstSet(t *testing.T) {
	input := "ROWS\n N obj\n L c1\nCOLUMNS\n x obj 1 c1 1\n" +
		"RHS\n RHS1 c1 10\n RHS2 c1 20\n" +
		"BOUNDS\n UP BND1 x 4\n UP BND2 x 8\nENDATA\n"
	m := mustRead(t, input, Free)
	assert.Equal(t, 10.0, m.Rows[1].RHS)
	assert.Equal(t, 4.0, m.Cols[0].Upper)
}

func TestReadEmptyColumn(t *testing.T) {
	m := mustRead(t, "ROWS\n N obj\nCOLUMNS\n x\nENDATA\n", Free)
	require.Equal(t, 1, m.NumCols())
	idx, _ := m.Matrix.Column(0)
	assert.Empty(t, idx)
}

func TestReadDuplicateCoefficients(t *testing.T) {
	input := "ROWS\n N obj\n L c1\nCOLUMNS\n x c1 1.5\n x obj 1 c1 2\nENDATA\n"

	m := mustRead(t, input, Free)
	assert.Equal(t, 3.5, m.Coefficient(1, 0))
	assert.Equal(t, 2, m.Matrix.NumNonzeros())

	_, err := readString(t, input, Free, WithStrict())
	e := requireKind(t, err, KindDuplicateCoefficient)
	assert.ErrorIs(t, err, ErrDuplicateCoefficient)
	assert.Equal(t, 6, e.Line)
	assert.Equal(t, "COLUMNS", e.Section)
}

func TestReadStructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		section string
		msg     string
	}{
		{"undeclared row in columns", "ROWS\n N obj\nCOLUMNS\n x obj 1 c9 2\nENDATA\n", 4, "COLUMNS", `undeclared row "c9"`},
		{"undeclared row in rhs", "ROWS\n N obj\nCOLUMNS\n x obj 1\nRHS\n RHS c9 2\nENDATA\n", 6, "RHS", `undeclared row "c9"`},
		{"undeclared row in ranges", "ROWS\n N obj\nCOLUMNS\n x obj 1\nRANGES\n RNG c9 2\nENDATA\n", 6, "RANGES", `undeclared row "c9"`},
		{"undeclared column in bounds", "ROWS\n N obj\nCOLUMNS\n x obj 1\nBOUNDS\n UP BND y 2\nENDATA\n", 6, "BOUNDS", `undeclared column "y"`},
		{"duplicate row", "ROWS\n N obj\n L obj\nENDATA\n", 3, "ROWS", "declared twice"},
		{"unknown row kind", "ROWS\n X c1\nENDATA\n", 2, "ROWS", "unknown row kind"},
		{"unknown bound type", "ROWS\n N obj\nCOLUMNS\n x obj 1\nBOUNDS\n XX BND x 2\nENDATA\n", 6, "BOUNDS", "unknown bound type"},
		{"malformed number", "ROWS\n N obj\nCOLUMNS\n x obj one\nENDATA\n", 4, "COLUMNS", "malformed number"},
		{"nan", "ROWS\n N obj\nCOLUMNS\n x obj NaN\nENDATA\n", 4, "COLUMNS", "malformed number"},
		{"odd pairs", "ROWS\n N obj\nCOLUMNS\n x obj 1 c1\nENDATA\n", 4, "COLUMNS", "pairs"},
		{"unknown marker", "ROWS\n N obj\nCOLUMNS\n M 'MARKER' 'SOSORG'\nENDATA\n", 4, "COLUMNS", "unknown marker"},
		{"unknown section", "ROWS\n N obj\nSOS\nENDATA\n", 3, "ROWS", "unrecognized section"},
		{"columns before rows", "COLUMNS\n x obj 1\nENDATA\n", 1, "", "COLUMNS before ROWS"},
		{"rhs before columns", "ROWS\n N obj\nRHS\nENDATA\n", 3, "ROWS", "RHS before COLUMNS"},
		{"repeated section", "ROWS\n N obj\nROWS\nENDATA\n", 3, "ROWS", "appears twice"},
		{"name after rows", "ROWS\n N obj\nNAME late\nENDATA\n", 3, "ROWS", "NAME after ROWS"},
		{"objsense after rows", "ROWS\n N obj\nOBJSENSE\n MAX\nENDATA\n", 3, "ROWS", "after ROWS"},
		{"data before section", " N obj\nENDATA\n", 1, "", "outside of a section"},
		{"missing endata", "ROWS\n N obj\nCOLUMNS\n x obj 1\n", 4, "COLUMNS", "before ENDATA"},
		{"lower above upper", "ROWS\n N obj\nCOLUMNS\n x obj 1\nBOUNDS\n LO BND x 5\n UP BND x 2\nENDATA\n", 0, "", "above upper bound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := readString(t, tt.input, Free)
			assert.Nil(t, m)
			e := requireKind(t, err, KindStructural)
			assert.ErrorIs(t, err, ErrStructural)
			assert.NotErrorIs(t, err, ErrSourceNotFound)
			assert.Equal(t, "Read", e.Op)
			assert.Equal(t, Free, e.Dialect)
			assert.Equal(t, tt.line, e.Line)
			assert.Equal(t, tt.section, e.Section)
			assert.Contains(t, e.Msg, tt.msg)
		})
	}
}

func TestReadFixedOverrun(t *testing.T) {
	input := "NAME          T\n" +
		"ROWS\n" +
		" N  COST\n" +
		"COLUMNS\n" +
		"    X1        COST      1.00000000000001\n" +
		"ENDATA\n"
	_, err := readString(t, input, Fixed)
	e := requireKind(t, err, KindStructural)
	assert.Equal(t, 5, e.Line)
	assert.Equal(t, "COLUMNS", e.Section)
	assert.Contains(t, err.Error(), "at fixed line 5 in COLUMNS")
	assert.Contains(t, e.Msg, "overruns")
}

func TestReadIgnoresTrailingContent(t *testing.T) {
	m := mustRead(t, "ROWS\n N obj\nCOLUMNS\n x obj 1\nENDATA\nthis is not MPS\n", Free)
	assert.Equal(t, 1, m.NumCols())
}

func TestReadByteOrderMark(t *testing.T) {
	input := "NAME BOM\nROWS\n N obj\nCOLUMNS\n x obj 1\nENDATA\n"

	m := mustRead(t, "\ufeff"+input, Free)
	assert.Equal(t, "BOM", m.Name)

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(input)
	require.NoError(t, err)
	m = mustRead(t, utf16, Free)
	assert.Equal(t, "BOM", m.Name)
	assert.Equal(t, 1, m.NumCols())
}

func TestReadFileNotFound(t *testing.T) {
	m, err := ReadFile(filepath.Join(t.TempDir(), "missing.mps"), Free)
	assert.Nil(t, m)
	requireKind(t, err, KindSourceNotFound)
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.NotErrorIs(t, err, ErrStructural)
}

func TestReadBuilderUnsupported(t *testing.T) {
	err := ReadBuilder(filepath.Join("testdata", "example_free.mps"), nil)
	requireKind(t, err, KindUnsupported)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, KindStructural, KindOf(&Error{Kind: KindStructural}))
	assert.Equal(t, "DuplicateCoefficientConflict", KindDuplicateCoefficient.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = readString(t, "ROWS\n N obj\nCOLUMNS\n x obj 1\nENDATA\n", Free, WithMetrics(metrics))
	require.NoError(t, err)
	_, err = readString(t, "ROWS\n N obj\n", Free, WithMetrics(metrics))
	require.Error(t, err)
	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.mps"), Fixed, WithMetrics(metrics))
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(families, "gomps_reads_total", "free", "ok"))
	assert.Equal(t, 1.0, counterValue(families, "gomps_reads_total", "free", "StructuralParseError"))
	assert.Equal(t, 1.0, counterValue(families, "gomps_reads_total", "fixed", "SourceNotFound"))
	assert.Equal(t, 7.0, counterValue(families, "gomps_lines_scanned_total"))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice should fail")
}

// counterValue returns the value of the counter named name whose label
// values equal values in order, or -1.
func counterValue(families []*dto.MetricFamily, name string, values ...string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			labels := m.GetLabel()
			if len(labels) != len(values) {
				continue
			}
			for i, l := range labels {
				if l.GetValue() != values[i] {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}
