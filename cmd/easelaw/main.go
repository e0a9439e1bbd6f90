package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chaz8081/easelaw/internal/audio"
	"github.com/chaz8081/easelaw/internal/config"
	"github.com/chaz8081/easelaw/internal/console"
	"github.com/chaz8081/easelaw/internal/hotkey"
	"github.com/chaz8081/easelaw/internal/inject"
	"github.com/chaz8081/easelaw/internal/models"
	"github.com/chaz8081/easelaw/internal/session"
	"github.com/chaz8081/easelaw/internal/transcribe"
	"github.com/chaz8081/easelaw/internal/transcript"
	"github.com/chaz8081/easelaw/internal/ui"
)

// errQuit ends the run group when the user types q.
var errQuit = errors.New("quit")

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/easelaw/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	downloadModel := flag.Bool("download-model", false, "download the configured recognizer model and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *downloadModel {
		fmt.Printf("Models will be downloaded to: %s\n", cfg.Recognizer.ModelPath)
		if err := models.Download(ctx, &cfg.Recognizer, os.Stdout); err != nil {
			log.Fatalf("download: %v", err)
		}
		return
	}

	printBanner(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		log.Fatal(err)
	}
	log.Println("Goodbye!")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Initialize recognizer
	log.Printf("Loading %s model...", cfg.Recognizer.Backend)
	modelStart := time.Now()
	rec, err := transcribe.New(&cfg.Recognizer, int(cfg.Audio.SampleRate))
	if errors.Is(err, transcribe.ErrModelNotFound) {
		return fmt.Errorf("%w\n\nRun 'easelaw -download-model' to fetch it.", err)
	}
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	// Closed only after the group has finished: ctl.Run does not return
	// before every session loop using rec has exited.
	defer rec.Close()
	log.Printf("Model loaded in %s", time.Since(modelStart).Round(time.Millisecond))

	// Initialize audio recorder
	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.BlockSize, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audio recorder: %w\n\nEnsure the application has microphone access.", err)
	}
	defer recorder.Close()

	opts := []ui.Option{ui.WithLogger(logger)}
	if cfg.Inject.Method != inject.MethodNone {
		injector, err := inject.NewInjector(cfg.Inject.Method)
		if err != nil {
			return err
		}
		opts = append(opts, ui.WithForwarder(injector))
		log.Printf("Text injector ready (method: %s)", cfg.Inject.Method)
	}

	newSession := func(h session.Handler) ui.Runner {
		return session.New(rec, recorder, h, session.WithLogger(logger))
	}
	saver := transcript.Saver{Dir: cfg.Transcript.Dir, Prefix: cfg.Transcript.Prefix}
	ctl := ui.New(console.New(os.Stdout), newSession, saver, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.Run(gctx) })

	// A blocked stdin read cannot be cancelled, so the reader lives outside
	// the group and only reports a quit into it.
	quit := make(chan struct{})
	go func() {
		err := console.ReadCommands(os.Stdin, ctl)
		switch {
		case errors.Is(err, console.ErrQuit):
			close(quit)
		case err != nil:
			logger.Warn("console input stopped", "error", err)
		}
	}()
	g.Go(func() error {
		select {
		case <-quit:
			return errQuit
		case <-gctx.Done():
			return nil
		}
	})

	if cfg.Hotkey.Enabled {
		listener, err := hotkey.NewListener([]hotkey.Binding{
			{Action: hotkey.ActionToggle, Keys: cfg.Hotkey.Toggle},
			{Action: hotkey.ActionSave, Keys: cfg.Hotkey.Save},
		})
		if err != nil {
			return err
		}
		// The hook is never ended: gohook's C cleanup can crash, and the OS
		// reclaims the event hook on process exit.
		go listener.Start()
		log.Printf("Hotkeys ready (toggle: %s, save: %s)",
			strings.Join(cfg.Hotkey.Toggle, "+"), strings.Join(cfg.Hotkey.Save, "+"))

		g.Go(func() error {
			actions := listener.Actions()
			for {
				select {
				case a, ok := <-actions:
					if !ok {
						logger.Warn("hotkey listener stopped")
						return nil
					}
					switch a {
					case hotkey.ActionToggle:
						ctl.Toggle()
					case hotkey.ActionSave:
						ctl.Save()
					}
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== " + ui.Title + " ===")
	fmt.Printf("  Backend:     %s\n", cfg.Recognizer.Backend)
	fmt.Printf("  Model:       %s\n", cfg.Recognizer.ModelPath)
	fmt.Printf("  Audio:       %dHz, %dch, %d frames/chunk\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.BlockSize)
	fmt.Printf("  Transcripts: %s\n", cfg.Transcript.Dir)
	fmt.Printf("  Inject:      %s\n", cfg.Inject.Method)
	fmt.Printf("  Log:         %s\n", cfg.LogLevel)
	fmt.Println("  " + console.Help)
	fmt.Println("====================")
}
