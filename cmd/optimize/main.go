package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/scenario"
	"github.com/pthm-cable/fauna/telemetry"
)

// options collects the command line.
type options struct {
	configPath   string
	scenarioPath string
	outputDir    string
	maxTicks     uint64
	seeds        int
	maxEvals     int
	population   int
	stepSize     float64
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&opts.scenarioPath, "scenario", "", "Scenario file evaluated for every seed (empty = archetype counts)")
	flag.StringVar(&opts.outputDir, "output", "", "Directory for the eval log, best config and best run windows")
	flag.Uint64Var(&opts.maxTicks, "max-ticks", 72000, "Tick cap per run")
	flag.IntVar(&opts.seeds, "seeds", 3, "Runs per evaluation, each with its own seed")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Evaluation budget")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = derived from the parameter count)")
	flag.Float64Var(&opts.stepSize, "step", 0.3, "Initial CMA-ES step size in normalized parameter space")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(opts, logger); err != nil {
		logger.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	if opts.outputDir == "" {
		return errors.New("-output is required")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := config.Init(opts.configPath); err != nil {
		return err
	}
	base := config.Cfg()

	var scen *scenario.Scenario
	if opts.scenarioPath != "" {
		sc, err := scenario.Load(opts.scenarioPath)
		if err != nil {
			return err
		}
		if err := sc.Check(base); err != nil {
			return fmt.Errorf("scenario %s: %w", opts.scenarioPath, err)
		}
		scen = sc
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, opts.maxTicks, runSeeds(opts.seeds), base, scen)

	evalCSV, err := newEvalLog(filepath.Join(opts.outputDir, "optimize_log.csv"), params)
	if err != nil {
		return err
	}
	defer evalCSV.close()

	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + 3*params.Dim()/2
	}

	best := &bestSoFar{fitness: 1e9}
	started := time.Now()
	evals := 0

	// CMA-ES works in [0,1] per parameter; the evaluator sees clamped raw values.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(values)
			evals++
			best.offer(fitness, values)

			if err := evalCSV.write(evals, fitness, values); err != nil {
				logger.Warn("eval log write failed", "error", err)
			}

			elapsed := time.Since(started)
			eta := time.Duration(opts.maxEvals-evals) * (elapsed / time.Duration(evals))
			logger.Info("eval",
				"n", evals,
				"of", opts.maxEvals,
				"survived_s", evaluator.LastSurvival()*base.Sim.DT,
				"quality", evaluator.LastQuality(),
				"fitness", fitness,
				"best", best.fitness,
				"elapsed", elapsed.Round(time.Second),
				"eta", eta.Round(time.Second),
			)
			return fitness
		},
	}

	logger.Info("starting CMA-ES",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", opts.maxEvals,
		"seeds", opts.seeds,
		"max_ticks", opts.maxTicks,
		"scenario", scenarioName(scen),
	)

	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: opts.stepSize, Population: popSize})
	if err != nil {
		logger.Warn("optimizer stopped", "error", err)
	}
	if best.values == nil && result != nil {
		best.offer(result.F, params.Clamp(params.Denormalize(result.X)))
	}
	if best.values == nil {
		return errors.New("no evaluations completed")
	}

	attrs := []any{"evals", evals, "took", time.Since(started).Round(time.Second), "fitness", best.fitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, best.values[i])
	}
	logger.Info("optimization complete", attrs...)

	tuned := base.Clone()
	params.ApplyToConfig(tuned, best.values)
	configPath := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := tuned.WriteYAML(configPath); err != nil {
		return err
	}
	logger.Info("wrote best config", "path", configPath)

	if windows := evaluator.BestWindows(); len(windows) > 0 {
		windowsPath := filepath.Join(opts.outputDir, "best_windows.csv")
		if err := writeWindows(windowsPath, windows); err != nil {
			return fmt.Errorf("writing best windows: %w", err)
		}
		logger.Info("wrote best run windows", "path", windowsPath, "windows", len(windows))
	}
	return nil
}

// runSeeds returns n fixed, well-spread seeds so evaluations are comparable.
func runSeeds(n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	return seeds
}

func scenarioName(s *scenario.Scenario) string {
	if s == nil {
		return ""
	}
	return s.Name
}

// bestSoFar keeps the lowest fitness seen and the values that produced it.
type bestSoFar struct {
	fitness float64
	values  []float64
}

func (b *bestSoFar) offer(fitness float64, values []float64) {
	if b.values != nil && fitness >= b.fitness {
		return
	}
	b.fitness = fitness
	b.values = append(b.values[:0], values...)
}

// evalLog appends one row per evaluation. Its columns follow the parameter
// list, which is only known at run time.
type evalLog struct {
	file *os.File
	w    *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	l := &evalLog{file: f, w: csv.NewWriter(f)}

	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *evalLog) write(n int, fitness float64, values []float64) error {
	row := make([]string, 0, len(values)+2)
	row = append(row, strconv.Itoa(n), strconv.FormatFloat(fitness, 'f', 6, 64))
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *evalLog) close() error {
	l.w.Flush()
	return errors.Join(l.w.Error(), l.file.Close())
}

func writeWindows(path string, windows []telemetry.WindowStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&windows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
