// cmd/physthing/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opd-ai/physthing/pkg/audio"
	"github.com/opd-ai/physthing/pkg/broadphase"
	"github.com/opd-ai/physthing/pkg/config"
	"github.com/opd-ai/physthing/pkg/engine"
	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/render"
	engoview "github.com/opd-ai/physthing/pkg/render/engo"
)

type options struct {
	configPath    string
	createDefault bool
	scene         string
	renderMode    string
	strategy      string
	duration      time.Duration
	sound         bool
	listScenes    bool
	windowWidth   int
	windowHeight  int
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("physthing", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "physthing.json", "Path to configuration file")
	fs.BoolVar(&opts.createDefault, "default", false, "Create default configuration file")
	fs.StringVar(&opts.scene, "scene", "", "Scene to load ("+strings.Join(engine.SceneNames(), ", ")+")")
	fs.StringVar(&opts.renderMode, "render", "", "Renderer: null, terminal, screen or engo")
	fs.StringVar(&opts.strategy, "strategy", "", "Broad-phase for both gravity and collision: naive or tree")
	fs.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	fs.BoolVar(&opts.sound, "sound", false, "Click on collisions")
	fs.BoolVar(&opts.listScenes, "list-scenes", false, "List the built-in scenes and exit")
	fs.IntVar(&opts.windowWidth, "window-width", 1024, "Window width for the engo renderer")
	fs.IntVar(&opts.windowHeight, "window-height", 768, "Window height for the engo renderer")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadConfig reads the configuration file when it exists and applies the
// command line overrides on top
func loadConfig(ctx context.Context, logger *logging.Logger, opts *options) (*config.SimulationConfig, error) {
	path := opts.configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if opts.scene != "" {
		cfg.Scene.Name = opts.scene
		cfg.Scene.Bodies = nil
	}
	if opts.renderMode != "" {
		cfg.Render.Mode = opts.renderMode
	}
	if opts.strategy != "" {
		s, err := broadphase.ParseStrategy(opts.strategy)
		if err != nil {
			return nil, err
		}
		cfg.Broadphase.Gravity = s
		cfg.Broadphase.Collision = s
	}
	if opts.sound {
		cfg.Render.Sound = true
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, logger *logging.Logger, opts *options) error {
	cfg, err := loadConfig(ctx, logger, opts)
	if err != nil {
		return logging.WrapError(err, "failed to load configuration %s", opts.configPath)
	}

	sim, err := engine.NewSimulation(cfg, logger)
	if err != nil {
		return err
	}
	if err := sim.LoadScene(cfg.Scene); err != nil {
		return err
	}
	logger.Info(ctx, "Scene loaded",
		"scene", cfg.Scene.Name,
		"bodies", sim.BodyCount(),
	)

	if cfg.Render.Sound {
		player := audio.NewClickPlayer()
		if err := player.Initialize(); err != nil {
			logger.Warn(ctx, "Audio unavailable, continuing without sound", "error", err.Error())
		} else {
			player.Attach(sim.EventBus)
			defer player.Close()
		}
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	switch cfg.Render.Mode {
	case config.RenderNull:
		return sim.Run(ctx, render.NewNullRenderer(logger))
	case config.RenderTerminal:
		r := render.NewTerminalRendererForTTY(cfg.Render.Width, cfg.Render.Height, cfg.Render.Scale)
		return sim.Run(ctx, r)
	case config.RenderScreen:
		r, err := render.OpenScreen(cfg.Render.Scale)
		if err != nil {
			return fmt.Errorf("failed to open screen: %w", err)
		}
		defer r.Close()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go r.WatchQuit(cancel)
		return sim.Run(ctx, r)
	case config.RenderEngo:
		engoview.Run(sim, opts.windowWidth, opts.windowHeight, logger)
		return nil
	}
	return fmt.Errorf("%w: unknown render mode %q", config.ErrInvalidConfig, cfg.Render.Mode)
}

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	if opts.listScenes {
		for _, name := range engine.SceneNames() {
			fmt.Println(name)
		}
		return
	}

	// Create default configuration file if requested
	if opts.createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), opts.configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", opts.configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", opts.configPath,
		)
		return
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error(ctx, "Simulation failed", err)
		stop()
		os.Exit(1)
	}
}
