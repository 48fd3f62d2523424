package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"filmstrip/internal/adapter"
	"filmstrip/internal/domain"
	"filmstrip/internal/playback"
	"filmstrip/internal/render"
	"filmstrip/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		fps         float64
		cacheBytes  int64
		workers     int
	)
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Float64Var(&fps, "fps", 0, "playback frame rate (overrides config)")
	flag.Int64Var(&cacheBytes, "cache-bytes", 0, "cache byte budget (overrides config)")
	flag.IntVar(&workers, "workers", 0, "decode worker count (overrides config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [directory-or-image]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("filmstrip %s\n", Version)
		return
	}

	if err := run(fps, cacheBytes, workers, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(fps float64, cacheBytes int64, workers int, target string) error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if fps > 0 {
		cfg.Playback.FrameRate = fps
	}
	if cacheBytes > 0 {
		cfg.Cache.MaxBytes = cacheBytes
	}
	if workers > 0 {
		cfg.Cache.Workers = workers
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting filmstrip", "version", Version)

	dir, file, err := resolveTarget(target)
	if err != nil {
		return err
	}

	sessions, err := store.Open(cfg.Session.File)
	if err != nil {
		logger.Warn("session store unavailable, resume disabled", "error", err)
		sessions, _ = store.Open("")
	}
	defer sessions.Close()

	manager := playback.NewManager(playback.Options{
		Dir:        dir,
		FrameRate:  cfg.Playback.FrameRate,
		CacheBytes: cfg.Cache.MaxBytes,
		Workers:    cfg.Cache.Workers,
	}, adapter.SysInfo{}, logger)
	defer manager.Close()

	if err := manager.UpdateDirectory(); err != nil {
		return err
	}

	// Initial navigation: an explicit file wins, then the saved session,
	// then the first image in the directory.
	switch {
	case file != "":
		manager.RequestLoad(domain.Specific(file))
	default:
		saved, ok := sessions.LastViewed(dir)
		if ok {
			if _, statErr := os.Stat(saved); statErr != nil {
				ok = false // saved file is gone, start from the first image
			}
		}
		if ok {
			manager.RequestLoad(domain.Specific(saved))
		} else {
			manager.RequestLoad(domain.Jump(0))
		}
	}

	return render.NewWindow(manager, sessions, dir, logger).Run()
}

// resolveTarget turns the CLI argument into a directory to enumerate and,
// when a file was given, the file to show first.
func resolveTarget(target string) (dir, file string, err error) {
	if target == "" {
		target = "."
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		return abs, "", nil
	}
	return filepath.Dir(abs), abs, nil
}
