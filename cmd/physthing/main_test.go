// cmd/physthing/main_test.go
package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/physthing/pkg/broadphase"
	"github.com/opd-ai/physthing/pkg/config"
	"github.com/opd-ai/physthing/pkg/logging"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(*options) bool
		wantErr bool
	}{
		{
			name:  "defaults",
			args:  nil,
			check: func(o *options) bool { return o.configPath == "physthing.json" && o.duration == 0 },
		},
		{
			name: "overrides",
			args: []string{"-scene", "grid", "-render", "null", "-strategy", "naive", "-duration", "2s"},
			check: func(o *options) bool {
				return o.scene == "grid" && o.renderMode == "null" && o.strategy == "naive" && o.duration == 2*time.Second
			},
		},
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !tt.check(opts) {
				t.Errorf("parseFlags() = %+v", opts)
			}
		})
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "physthing.json")
	base := config.DefaultConfig()
	base.Scene.Bodies = []config.BodyConfig{{Name: "only", Mass: 1, Radius: 1}}
	if err := config.SaveConfig(base, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	opts := &options{configPath: path, scene: "nested", renderMode: "null", strategy: "naive", sound: true}
	cfg, err := loadConfig(context.Background(), logging.Discard(), opts)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Scene.Name != "nested" || cfg.Scene.Bodies != nil {
		t.Errorf("scene flag should replace the configured scene, got %+v", cfg.Scene)
	}
	if cfg.Render.Mode != config.RenderNull || !cfg.Render.Sound {
		t.Errorf("render overrides not applied: %+v", cfg.Render)
	}
	if cfg.Broadphase.Gravity != broadphase.StrategyNaive || cfg.Broadphase.Collision != broadphase.StrategyNaive {
		t.Errorf("strategy override not applied: %+v", cfg.Broadphase)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	opts := &options{configPath: filepath.Join(t.TempDir(), "absent.json")}
	cfg, err := loadConfig(context.Background(), logging.Discard(), opts)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Scene.Name != config.DefaultConfig().Scene.Name {
		t.Errorf("expected default scene, got %q", cfg.Scene.Name)
	}
}

func TestLoadConfig_BadStrategy(t *testing.T) {
	opts := &options{configPath: filepath.Join(t.TempDir(), "absent.json"), strategy: "octree"}
	if _, err := loadConfig(context.Background(), logging.Discard(), opts); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}

func TestRun_HeadlessForDuration(t *testing.T) {
	opts := &options{
		configPath: filepath.Join(t.TempDir(), "absent.json"),
		scene:      "nested",
		renderMode: config.RenderNull,
		duration:   50 * time.Millisecond,
	}
	if err := run(context.Background(), logging.Discard(), opts); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRun_UnknownRenderMode(t *testing.T) {
	os.Unsetenv("PHYSTHING_RENDER")
	opts := &options{
		configPath: filepath.Join(t.TempDir(), "absent.json"),
		renderMode: "hologram",
	}
	err := run(context.Background(), logging.Discard(), opts)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("run() error = %v, want ErrInvalidConfig", err)
	}
}
