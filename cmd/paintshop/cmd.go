package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"paintshop/internal/buildinfo"
	"paintshop/internal/logger"
	"paintshop/internal/paintshop"
	"paintshop/internal/solver"
)

var (
	numCars      int
	numEnsembles int
	seed         int64
	minBlack     int
	maxBlack     int
	outPath      string

	problemFile string
	mode        int
	timeLimit   time.Duration
	samplerKind string
	top         int
	jsonOutput  bool

	penalty float64
	samples []string
)

var rootCmd = &cobra.Command{
	Use:           "paintshop",
	Short:         "Multi-car paint shop optimizer",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random problem file",
	Long:  `The generate command draws a random car sequence and black-paint demand and writes them as YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := generateOptions()
		p, err := paintshop.Generate(opts)
		if err != nil {
			return err
		}
		path := outPath
		if path == "" {
			path = paintshop.DefaultProblemPath(opts)
		}
		if path == "-" {
			return paintshop.WriteProblem(cmd.OutOrStdout(), p)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := paintshop.SaveProblem(path, p); err != nil {
			return err
		}
		logger.Infof("wrote %d cars over %d ensembles to %s", len(p.Sequence), len(p.Counts), path)
		return nil
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Minimise colour switches for a problem",
	Long: `The solve command loads a problem file, or generates one from the generator flags
when --file is not given, submits it to a sampler and prints the best feasible solutions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadOrGenerate()
		if err != nil {
			return err
		}
		cfg, err := solver.ConfigFromEnv()
		if err != nil {
			return err
		}
		kind := samplerKind
		if kind == "" {
			kind = "local"
			if cfg.Endpoint != "" {
				kind = "hybrid"
			}
		}
		s, err := solver.New(kind, cfg)
		if err != nil {
			return err
		}
		rep, err := paintshop.Run(cmd.Context(), s, p, paintshop.RunOptions{
			Mode:      paintshop.Mode(mode),
			TimeLimit: timeLimit,
			Top:       top,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), rep)
		}
		return rep.WriteText(cmd.OutOrStdout())
	},
}

var relaxCmd = &cobra.Command{
	Use:   "relax",
	Short: "Fold demand constraints into a penalised unconstrained model",
	Long: `The relax command builds the constrained model, folds each equality into the
objective with the given penalty and prints the resulting model size. Every --sample
(a string of 0/1, one per car) is scored against the relaxed energy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadOrGenerate()
		if err != nil {
			return err
		}
		m, err := paintshop.BuildModel(p.Sequence, p.Counts, paintshop.Mode(mode))
		if err != nil {
			return err
		}
		bqm, err := m.Relax(penalty)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), bqm)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Variables: %d, Interactions: %d, Offset: %g\n", bqm.NumVariables(), bqm.NumInteractions(), bqm.Offset())
		for _, raw := range samples {
			values, err := parseSample(raw, len(p.Sequence))
			if err != nil {
				return err
			}
			a := paintshop.Positional(values)
			sample := a.Sample()
			fmt.Fprintf(out, "%s energy=%g objective=%g switches=%d feasible=%t\n",
				a.Strip(), bqm.Energy(sample), m.CQM.ObjectiveEnergy(sample), a.Switches(), m.CQM.CheckFeasible(sample))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeJSON(cmd.OutOrStdout(), buildinfo.Info())
	},
}

func init() {
	for _, c := range []*cobra.Command{generateCmd, solveCmd, relaxCmd} {
		def := paintshop.DefaultGenerateOptions()
		c.Flags().IntVar(&numCars, "cars", def.NumCars, "number of cars in the sequence")
		c.Flags().IntVar(&numEnsembles, "ensembles", def.NumEnsembles, "number of distinct car ensembles")
		c.Flags().Int64Var(&seed, "seed", def.Seed, "random seed")
		c.Flags().IntVar(&minBlack, "min-black", 0, "lower bound on per-ensemble black demand (0 derives it)")
		c.Flags().IntVar(&maxBlack, "max-black", 0, "upper bound on per-ensemble black demand (0 derives it)")
	}
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, - for stdout (default data/sequence_<cars>_<ensembles>_<seed>.yml)")

	for _, c := range []*cobra.Command{solveCmd, relaxCmd} {
		c.Flags().StringVarP(&problemFile, "file", "f", "", "problem YAML file; generated from the generator flags when empty")
		c.Flags().IntVar(&mode, "mode", int(paintshop.ModeSwitches), "objective form: 1 counts switches, any other value uses the spin form")
		c.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	}
	solveCmd.Flags().DurationVarP(&timeLimit, "time-limit", "t", 0, "sampler time limit (raised to the sampler minimum)")
	solveCmd.Flags().StringVar(&samplerKind, "sampler", "", "local or hybrid (default hybrid when SOLVER_ENDPOINT is set)")
	solveCmd.Flags().IntVar(&top, "top", 3, "number of solutions to report")
	relaxCmd.Flags().Float64VarP(&penalty, "penalty", "p", 1, "Lagrange multiplier for the demand constraints")
	relaxCmd.Flags().StringArrayVar(&samples, "sample", nil, "assignment to score, e.g. 110100")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(relaxCmd)
	rootCmd.AddCommand(versionCmd)
}

func generateOptions() paintshop.GenerateOptions {
	return paintshop.GenerateOptions{
		NumCars:      numCars,
		NumEnsembles: numEnsembles,
		Seed:         seed,
		MinBlack:     minBlack,
		MaxBlack:     maxBlack,
	}
}

func loadOrGenerate() (paintshop.Problem, error) {
	if problemFile != "" {
		return paintshop.LoadProblem(problemFile)
	}
	return paintshop.Generate(generateOptions())
}

func parseSample(raw string, n int) ([]int, error) {
	if len(raw) != n {
		return nil, fmt.Errorf("sample %q: want %d values, got %d", raw, n, len(raw))
	}
	values := make([]int, n)
	for i, ch := range raw {
		switch ch {
		case '0':
		case '1':
			values[i] = 1
		default:
			return nil, fmt.Errorf("sample %q: values must be 0 or 1", raw)
		}
	}
	return values, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
