package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/slipstream/w4dj"
	"github.com/slipstream/w4dj/library"
	"github.com/slipstream/w4dj/syncer"
	"github.com/spf13/pflag"
)

var errFailures = errors.New("some songs could not be processed")

type App struct {
	cfg *Config
	log w4dj.Logger
}

func (app *App) newSyncer(dest string, state *w4dj.SyncState) (*syncer.Syncer, error) {
	return syncer.New(app.log, syncer.Options{
		Destination:    dest,
		Workers:        app.cfg.Workers,
		FallbackFormat: app.cfg.FallbackFormat,
		SaveCover:      app.cfg.SaveCover,
		SaveMetadata:   app.cfg.SaveMetadata,
		State:          state,
	})
}

// Sync brings every new song of the source folder into the destination.
func (app *App) Sync(ctx context.Context) error {
	mode, err := library.ParseMode(app.cfg.Mode)
	if err != nil {
		return err
	}

	if _, err := os.Stat(app.cfg.Source); err != nil {
		return fmt.Errorf("source folder not available: %w", err)
	}

	if err := os.MkdirAll(app.cfg.Destination, 0o755); err != nil {
		return fmt.Errorf("failed creating destination folder: %w", err)
	}

	lock, err := syncer.Lock(ctx, app.cfg.Destination, app.cfg.LockTimeout)
	if err != nil {
		return fmt.Errorf("failed locking destination: %w", err)
	}

	defer func() { _ = lock.Unlock() }()

	var state w4dj.SyncState
	if err := state.Read(app.cfg.Destination); err != nil {
		return err
	}

	app.log.Infof("scanning source folder %s", app.cfg.Source)
	src, err := library.Scan(app.cfg.Source, app.log)
	if err != nil {
		return err
	}

	app.log.Infof("scanning destination folder %s", app.cfg.Destination)
	dst, err := library.Scan(app.cfg.Destination, app.log)
	if err != nil {
		return err
	}

	app.log.Infof("found %d songs in source and %d in destination", len(src), len(dst))

	var songs []library.Entry
	for _, song := range library.Diff(src, dst, mode, app.cfg.SizeThreshold) {
		if song.IsContainer() && state.UpToDate(song.Stem, song.Size) {
			app.log.Debugf("%s already decoded", song.Stem)
			continue
		}

		songs = append(songs, song)
	}

	app.log.Infof("found %d new songs to sync", len(songs))
	if len(songs) == 0 {
		return nil
	}

	s, err := app.newSyncer(app.cfg.Destination, &state)
	if err != nil {
		return err
	}

	report, runErr := s.Run(ctx, songs)

	// keep what was decoded even when interrupted
	if err := state.Write(); err != nil {
		app.log.WithError(err).Errorf("failed writing sync state")
	}

	if runErr != nil {
		return runErr
	}

	app.log.Infof("copied %d, decoded %d, failed %d", report.Copied, report.Decoded, len(report.Failures))
	if len(report.Failures) > 0 {
		return errFailures
	}

	return nil
}

// Dump decodes the given containers, into the destination when configured
// or next to each input otherwise.
func (app *App) Dump(ctx context.Context, paths []string) error {
	var failed bool
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest := app.cfg.Destination
		if dest == "" {
			dest = filepath.Dir(path)
		}

		if err := app.dumpOne(ctx, path, dest); err != nil {
			app.log.WithError(err).Errorf("failed dumping %s", path)
			failed = true
		}
	}

	if failed {
		return errFailures
	}

	return nil
}

func (app *App) dumpOne(ctx context.Context, path, dest string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed creating destination folder: %w", err)
	}

	s, err := app.newSyncer(dest, nil)
	if err != nil {
		return err
	}

	name := info.Name()
	output, err := s.Process(ctx, library.Entry{
		Stem: strings.TrimSuffix(name, filepath.Ext(name)),
		Path: path,
		Ext:  "ncm",
		Size: info.Size(),
	})
	if err != nil {
		return err
	}

	app.log.Infof("decoded %s into %s", path, filepath.Join(dest, output))
	return nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		log.WithError(err).Fatal("failed loading configuration")
	}

	if cfg.Version {
		fmt.Println(w4dj.SystemInfoString())
		return
	}

	// parse and set log level
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatalf("invalid log level: %s", cfg.LogLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.Debugf("running %s", w4dj.SystemInfoString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{cfg: cfg, log: LogrusAdapter{log.NewEntry(log.StandardLogger())}}

	if len(cfg.Files) > 0 {
		err = app.Dump(ctx, cfg.Files)
	} else {
		err = app.Sync(ctx)
	}

	if err != nil {
		log.WithError(err).Error("sync failed")
		stop()
		os.Exit(1)
	}
}
