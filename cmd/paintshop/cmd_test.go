package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paintshop/internal/paintshop"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SOLVER_ENDPOINT", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateAndSolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "p.yml")
	_, err := execute(t, "generate", "--cars", "12", "--ensembles", "3", "--seed", "4", "-o", path)
	require.NoError(t, err)

	p, err := paintshop.LoadProblem(path)
	require.NoError(t, err)
	want, err := paintshop.Generate(paintshop.GenerateOptions{NumCars: 12, NumEnsembles: 3, Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, want, p)

	out, err := execute(t, "solve", "-f", path, "--sampler", "local", "--top", "2", "--json")
	require.NoError(t, err)
	var rep paintshop.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 12, rep.NumCars)
	require.NotEmpty(t, rep.Solutions)
	assert.LessOrEqual(t, len(rep.Solutions), 2)

	out, err = execute(t, "solve", "-f", path, "--sampler", "local", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Number of cars: 12")
	assert.Contains(t, out, "Solutions")
}

func TestGenerateStdout(t *testing.T) {
	out, err := execute(t, "generate", "--cars", "5", "--ensembles", "2", "--seed", "1", "-o", "-")
	require.NoError(t, err)
	p, err := paintshop.ReadProblem(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, p.Sequence, 5)
}

func TestRelaxScoresSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yml")
	require.NoError(t, paintshop.SaveProblem(path, paintshop.Problem{
		Sequence: paintshop.Sequence{"1", "2", "3", "1", "2", "3"},
		Counts:   paintshop.Demand{"1": 1, "2": 1, "3": 1},
	}))
	out, err := execute(t, "relax", "-f", path, "--json=false", "--penalty", "10", "--sample", "111000", "--sample", "111100")
	require.NoError(t, err)
	assert.Contains(t, out, "Variables: 6")
	assert.Contains(t, out, "energy=1 ")
	assert.Contains(t, out, "energy=11 ")
	assert.Contains(t, out, "feasible=false")

	_, err = execute(t, "relax", "-f", path, "--penalty", "-1")
	assert.Error(t, err)
}

func TestSolveUnknownSampler(t *testing.T) {
	_, err := execute(t, "solve", "--cars", "6", "--sampler", "quantum", "-f", "")
	assert.Error(t, err)
}

func TestParseSample(t *testing.T) {
	v, err := parseSample("1010", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0}, v)
	_, err = parseSample("10", 4)
	assert.Error(t, err)
	_, err = parseSample("1020", 4)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestGenerateRejectsUnsatisfiableDemand(t *testing.T) {
	t.Cleanup(func() { minBlack = 0 })
	path := filepath.Join(t.TempDir(), "p.yml")
	_, err := execute(t, "generate", "--cars", "3", "--ensembles", "1", "--seed", "1", "--min-black", "4", "-o", path)
	require.ErrorIs(t, err, paintshop.ErrInvalidDemand)
	assert.NoFileExists(t, path)
}

func TestSolveZeroModeUsesSpinObjective(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yml")
	require.NoError(t, paintshop.SaveProblem(path, paintshop.Problem{
		Sequence: paintshop.Sequence{"1", "2", "3", "1", "2", "3"},
		Counts:   paintshop.Demand{"1": 1, "2": 1, "3": 1},
	}))
	t.Cleanup(func() { mode = int(paintshop.ModeSwitches) })
	out, err := execute(t, "solve", "-f", path, "--sampler", "local", "--mode", "0", "--json")
	require.NoError(t, err)
	var rep paintshop.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, paintshop.Mode(0), rep.Mode)
	require.NotEmpty(t, rep.Solutions)
	best := rep.Solutions[0]
	// spin form: 2*switches - (N-1)
	assert.Equal(t, 2*best.Switches-5, best.Objective)
}
