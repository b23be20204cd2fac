package paintshop

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paintshop/internal/qm"
)

func TestGenerateShape(t *testing.T) {
	p, err := Generate(GenerateOptions{NumCars: 10, NumEnsembles: 5, Seed: 111})
	require.NoError(t, err)
	assert.Len(t, p.Sequence, 10)
	occ := p.Sequence.Occurrences()
	assert.Len(t, p.Counts, len(occ))
	for car, n := range occ {
		d, ok := p.Counts[car]
		require.True(t, ok, "car %s has no demand", car)
		lo, hi := n/3, 2*n/3
		if hi <= lo {
			hi = lo + 1
		}
		assert.GreaterOrEqual(t, d, lo)
		assert.Less(t, d, hi)
	}
	require.NoError(t, p.Validate())
}

func TestGenerateDeterministic(t *testing.T) {
	opts := GenerateOptions{NumCars: 50, NumEnsembles: 6, Seed: 42}
	a, err := Generate(opts)
	require.NoError(t, err)
	b, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	opts.Seed = 43
	c, err := Generate(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Sequence, c.Sequence)
}

func TestGenerateOverrides(t *testing.T) {
	p, err := Generate(GenerateOptions{NumCars: 30, NumEnsembles: 2, Seed: 9, MinBlack: 2, MaxBlack: 2})
	require.NoError(t, err)
	for _, d := range p.Counts {
		// hi <= lo so the range collapses to [2, 3)
		assert.Equal(t, 2, d)
	}
}

func TestGenerateOverrideAboveEnsembleSize(t *testing.T) {
	// a single ensemble of 3 cars cannot demand 4 black
	_, err := Generate(GenerateOptions{NumCars: 3, NumEnsembles: 1, Seed: 1, MinBlack: 4})
	require.ErrorIs(t, err, ErrInvalidDemand)
	var de *DemandError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 4, de.Demand)
	assert.Equal(t, 3, de.Occurrences)

	_, err = Generate(GenerateOptions{NumCars: 5, NumEnsembles: 3, Seed: 111, MinBlack: 4})
	require.ErrorIs(t, err, ErrInvalidDemand)
}

func TestGenerateInvalidOptions(t *testing.T) {
	_, err := Generate(GenerateOptions{NumCars: 0, NumEnsembles: 3})
	require.ErrorIs(t, err, ErrInvalidOptions)
	_, err = Generate(GenerateOptions{NumCars: 3, NumEnsembles: 0})
	require.ErrorIs(t, err, ErrInvalidOptions)
	_, err = Generate(GenerateOptions{NumCars: 3, NumEnsembles: 1, MinBlack: -1})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestProblemFileRoundTrip(t *testing.T) {
	problems := []Problem{
		{Sequence: Sequence{"1", "2", "3", "1", "2", "3"}, Counts: Demand{"1": 1, "2": 1, "3": 1}},
		{Sequence: Sequence{"red", "blue", "red", "10"}, Counts: Demand{"red": 2, "blue": 0, "10": 1}},
	}
	for seed := int64(1); seed <= 20; seed++ {
		p, err := Generate(GenerateOptions{NumCars: int(seed * 3), NumEnsembles: 4, Seed: seed})
		require.NoError(t, err)
		problems = append(problems, p)
	}
	for _, p := range problems {
		var buf bytes.Buffer
		require.NoError(t, WriteProblem(&buf, p))
		got, err := ReadProblem(&buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestReadProblemFirstDocument(t *testing.T) {
	doc := "sequence: [1, 2, 1]\ncounts: {1: 1, 2: 0}\n---\nsequence: [9]\ncounts: {9: 1}\n"
	p, err := ReadProblem(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, Sequence{"1", "2", "1"}, p.Sequence)
	assert.Equal(t, Demand{"1": 1, "2": 0}, p.Counts)

	_, err = ReadProblem(strings.NewReader(""))
	require.Error(t, err)
	_, err = ReadProblem(strings.NewReader("counts: {1: 1}\n"))
	require.ErrorIs(t, err, ErrEmptySequence)
}

func TestSaveLoadProblem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "seq.yml")
	p, err := Generate(DefaultGenerateOptions())
	require.NoError(t, err)
	require.NoError(t, SaveProblem(path, p))
	got, err := LoadProblem(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	assert.Equal(t, filepath.Join("data", "sequence_10_3_111.yml"), DefaultProblemPath(DefaultGenerateOptions()))
}

func TestAssignmentVariants(t *testing.T) {
	named := Named(qm.Sample{2: 0, 0: 1, 1: 1})
	positional := Positional([]int{1, 1, 0})
	assert.Equal(t, named.Values(), positional.Values())
	assert.Equal(t, "BBW", named.Strip())
	assert.Equal(t, 1, positional.Switches())
	assert.Equal(t, 0, Positional(nil).Switches())

	sparse := Named(qm.Sample{1: 1}).WithLength(4)
	assert.Equal(t, "WBWW", sparse.Strip())
	assert.Equal(t, 2, sparse.Switches())
	assert.Equal(t, "B", Named(qm.Sample{1: 1}).Strip())
}
