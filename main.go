package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fruitmerge/audio"
	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/game"
	"github.com/pthm-cable/fruitmerge/replication"
	"github.com/pthm-cable/fruitmerge/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics, dropping fruit automatically")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for milestone snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Engine ticks per update call (higher = faster headless runs)")
	serve := flag.String("serve", "", "Serve replication websocket on this address (empty = replication.addr)")
	noAudio := flag.Bool("no-audio", false, "Disable sound")
	skillChance := flag.Float64("skill-chance", 0.05, "Headless: chance an automatic drop carries a skill")
	copySummary := flag.Bool("copy-summary", false, "Headless: copy the session summary to the clipboard on exit")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.DefaultOptions()
	opts.Seed = rngSeed
	opts.LogStats = *logStats
	opts.StatsWindowSec = *statsWindow
	opts.SnapshotDir = *snapshotDir
	opts.OutputDir = *outputDir
	opts.Headless = *headless
	opts.StepsPerUpdate = *stepsPerUpdate
	if *headless {
		opts.AutoDrop = true
		opts.AutoRestart = true
		opts.SkillChance = *skillChance
	}

	addr := cfg.Replication.Addr
	if *serve != "" {
		addr = *serve
	}
	var hub *replication.Hub
	if addr != "" {
		hub = replication.NewHub(cfg.Replication)
		opts.BoardSink = hub.SetBoard
	}

	g, err := game.NewGame(cfg, opts)
	if err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	if hub != nil {
		hub.Attach(g.Bus())
		hub.SetBoard(g.CreateSnapshot(nil))
		go func() {
			if err := hub.Serve(ctx, addr); err != nil && !errors.Is(err, replication.ErrHubClosed) {
				slog.Error("replication server stopped", "error", err)
			}
		}()
		defer hub.Close()
	}

	if *headless {
		// Keep stdout for JSON logs; the human summary goes to stderr.
		game.SetLogWriter(os.Stderr)
		runHeadless(ctx, g, rngSeed, *maxTicks, *stepsPerUpdate)
		g.LogSummary()
		if *copySummary {
			if err := clipboard.WriteAll(g.Summary()); err != nil {
				slog.Warn("failed to copy summary", "error", err)
			}
		}
		return
	}

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Fruit Merge")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	if cfg.Audio.Enabled && !*noAudio {
		sm := audio.NewSoundManager(cfg.Audio)
		if err := sm.Initialize(); err != nil {
			// Non-fatal, the game runs without sound
			slog.Warn("audio unavailable", "error", err)
		} else {
			sm.Attach(g.Bus())
			defer sm.Cleanup()
		}
	}

	viewer := ui.NewViewer(g)
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		viewer.Frame()
		if *maxTicks > 0 && int(g.CurrentTick()) >= *maxTicks {
			break
		}
	}
}

func runHeadless(ctx context.Context, g *game.Game, seed int64, maxTicks, steps int) {
	slog.Info("starting headless simulation",
		"seed", seed,
		"max_ticks", maxTicks,
		"steps_per_update", steps,
	)
	for ctx.Err() == nil {
		g.Update()
		if maxTicks > 0 && int(g.CurrentTick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.CurrentTick())
			return
		}
	}
	slog.Info("interrupted", "tick", g.CurrentTick())
}
