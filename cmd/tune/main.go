// Command tune fits spawn base weights so the long-run spawn distribution
// matches a target frequency per tier.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/game"
)

// EvalRow is one line of tune_log.csv.
type EvalRow struct {
	Eval    int     `csv:"eval"`
	Loss    float64 `csv:"loss"`
	Weights string  `csv:"weights"`
}

func parseTarget(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing target %q: %w", p, err)
		}
		out = append(out, v)
	}
	return normalizeTarget(out)
}

func formatWeights(w []int) string {
	parts := make([]string, len(w))
	for i, v := range w {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	targetFlag := flag.String("target", "0.4,0.3,0.2,0.1", "Target spawn frequency per tier, lowest first")
	maxWeight := flag.Float64("max-weight", 100, "Upper bound for each base weight")
	maxEvals := flag.Int("max-evals", 400, "Maximum number of evaluations")
	methodName := flag.String("method", "neldermead", "Optimizer: neldermead or cmaes")
	iters := flag.Int("iters", 2000, "Chain steps averaged for the stationary distribution")
	verifyTicks := flag.Int("verify-ticks", 0, "Run a headless session this long with the best weights and compare release counts (0 = skip)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	target, err := parseTarget(*targetFlag)
	if err != nil {
		log.Fatal(err)
	}
	params := NewParamVector(baseCfg, len(target), *maxWeight)

	evaluate := func(weights []int) float64 {
		full := make([]int, len(baseCfg.Tiers))
		for i, t := range baseCfg.Tiers {
			full[i] = t.BaseWeight
		}
		copy(full, weights)
		p, err := TransitionMatrix(baseCfg, full)
		if err != nil {
			return math.Inf(1)
		}
		return Loss(Stationary(p, *iters), target)
	}

	var rows []EvalRow
	evalCount := 0
	bestLoss := math.Inf(1)
	var bestWeights []int
	var bestRaw []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			w := params.Weights(raw)
			loss := evaluate(w)
			evalCount++
			if loss < bestLoss {
				bestLoss = loss
				bestWeights = w
				bestRaw = raw
			}
			rows = append(rows, EvalRow{Eval: evalCount, Loss: loss, Weights: formatWeights(w)})
			if evalCount%50 == 0 {
				fmt.Printf("Eval %d/%d: best=%.6f weights=[%s]\n", evalCount, *maxEvals, bestLoss, formatWeights(bestWeights))
			}
			return loss
		},
	}

	var method optimize.Method
	switch *methodName {
	case "neldermead":
		method = &optimize.NelderMead{}
	case "cmaes":
		method = &optimize.CmaEsChol{InitStepSize: 0.2, Population: 4 + 3*params.Dim()/2}
	default:
		log.Fatalf("unknown method %q", *methodName)
	}

	fmt.Printf("Tuning %d weights toward %v with %s, max_evals=%d\n", params.Dim(), target, *methodName, *maxEvals)
	initX := params.Normalize(params.DefaultVector())
	if _, err := optimize.Minimize(problem, initX, &optimize.Settings{FuncEvaluations: *maxEvals}, method); err != nil {
		log.Printf("optimization ended: %v", err)
	}
	if bestWeights == nil {
		log.Fatal("no evaluations completed")
	}

	fmt.Printf("\nDone after %d evaluations in %s\n", evalCount, time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Best loss: %.6f\n", bestLoss)
	for i, spec := range params.Specs {
		fmt.Printf("  %-12s %3d\n", spec.Name, bestWeights[i])
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	if err := writeLog(logPath, rows); err != nil {
		log.Printf("failed to write log: %v", err)
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestRaw)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	if *verifyTicks > 0 {
		observed, err := verify(bestCfg, *verifyTicks)
		if err != nil {
			log.Fatalf("verification run failed: %v", err)
		}
		fmt.Println("\nVerification (observed release share vs target):")
		for i, t := range target {
			fmt.Printf("  %-12s %.3f vs %.3f\n", params.Specs[i].Name, observed[i], t)
		}
	}
}

func writeLog(path string, rows []EvalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}

// verify runs a headless autoplay session and returns the share of
// releases per tier.
func verify(cfg *config.Config, ticks int) ([]float64, error) {
	opts := game.DefaultOptions()
	opts.AutoDrop = true
	opts.AutoRestart = true
	opts.AutoDropSec = 0.3
	g, err := game.NewGame(cfg, opts)
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	counts := make([]float64, len(cfg.Tiers))
	g.Bus().SubscribeFunc(func(ev events.Event) {
		if r, ok := ev.(events.FruitReleased); ok {
			counts[r.Tier]++
		}
	}, events.TypeFruitReleased)

	for int(g.CurrentTick()) < ticks {
		g.Update()
	}

	var total float64
	for _, c := range counts {
		total += c
	}
	if total > 0 {
		for i := range counts {
			counts[i] /= total
		}
	}
	return counts, nil
}
