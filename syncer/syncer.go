// Package syncer brings songs into a destination library: plain audio
// files are copied, containers are decoded. Songs are processed in
// parallel, each by an independent worker.
package syncer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/slipstream/w4dj"
	"github.com/slipstream/w4dj/library"
	"github.com/slipstream/w4dj/ncm"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Destination string
	Workers     int

	// FallbackFormat names decoded files whose metadata is unusable.
	FallbackFormat string
	// SaveCover writes the embedded cover next to the decoded song.
	SaveCover bool
	// SaveMetadata writes the metadata document next to the decoded song.
	SaveMetadata bool

	// State, if set, records every decoded container.
	State *w4dj.SyncState
}

type Syncer struct {
	log  w4dj.Logger
	opts Options
}

type Failure struct {
	Entry library.Entry
	Err   error
}

type Report struct {
	Copied   int
	Decoded  int
	Failures []Failure
}

func New(log w4dj.Logger, opts Options) (*Syncer, error) {
	if opts.Destination == "" {
		return nil, fmt.Errorf("missing destination")
	} else if opts.Workers <= 0 {
		return nil, fmt.Errorf("invalid number of workers: %d", opts.Workers)
	} else if opts.FallbackFormat == "" {
		return nil, fmt.Errorf("missing fallback format")
	}

	return &Syncer{log: log, opts: opts}, nil
}

// Run processes all songs with at most Workers of them in flight. A song
// that fails is recorded in the report and does not stop the others. The
// returned error is non-nil only when ctx was cancelled.
func (s *Syncer) Run(ctx context.Context, songs []library.Entry) (*Report, error) {
	var report Report
	var reportLock sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, song := range songs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			log := s.log.WithField("song", song.Stem)

			output, err := s.Process(gctx, song)

			reportLock.Lock()
			defer reportLock.Unlock()

			if err != nil {
				log.WithError(err).Errorf("failed processing %s", song.Path)
				report.Failures = append(report.Failures, Failure{Entry: song, Err: err})
			} else if song.IsContainer() {
				log.Infof("decoded %s", output)
				report.Decoded++
			} else {
				log.Infof("copied %s", output)
				report.Copied++
			}

			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return &report, err
	}

	return &report, nil
}

// Process copies or decodes a single song into the destination and
// returns the name of the written file.
func (s *Syncer) Process(ctx context.Context, song library.Entry) (string, error) {
	if song.IsContainer() {
		return s.decode(ctx, song)
	}

	return s.copy(ctx, song)
}

func (s *Syncer) copy(ctx context.Context, song library.Entry) (string, error) {
	src, err := os.Open(song.Path)
	if err != nil {
		return "", fmt.Errorf("failed opening source: %w", err)
	}

	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("failed reading source info: %w", err)
	}

	name := filepath.Base(song.Path)
	if err := writeAtomic(s.opts.Destination, name, info.ModTime(), func(w io.Writer) error {
		_, err := copyChunks(ctx, w, src)
		return err
	}); err != nil {
		return "", fmt.Errorf("failed copying %s: %w", name, err)
	}

	return name, nil
}

func (s *Syncer) decode(ctx context.Context, song library.Entry) (string, error) {
	src, err := os.Open(song.Path)
	if err != nil {
		return "", fmt.Errorf("failed opening source: %w", err)
	}

	defer func() { _ = src.Close() }()

	f, err := ncm.Open(bufio.NewReaderSize(src, ncm.ChunkSize))
	if err != nil {
		return "", fmt.Errorf("failed opening container: %w", err)
	}

	ext := f.Extension(s.opts.FallbackFormat)
	if f.MetadataErr != nil {
		s.log.WithField("song", song.Stem).WithError(f.MetadataErr).
			Warnf("metadata unavailable, assuming %s", ext)
	}

	name := song.Stem + "." + ext
	if err := writeAtomic(s.opts.Destination, name, time.Time{}, func(w io.Writer) error {
		_, err := copyChunks(ctx, w, f)
		return err
	}); err != nil {
		return "", fmt.Errorf("failed decoding into %s: %w", name, err)
	}

	if s.opts.SaveCover && len(f.Header.Cover) > 0 {
		coverName := song.Stem + coverExtension(f.Header.Cover)
		if err := writeAtomic(s.opts.Destination, coverName, time.Time{}, func(w io.Writer) error {
			_, err := w.Write(f.Header.Cover)
			return err
		}); err != nil {
			return "", fmt.Errorf("failed writing cover %s: %w", coverName, err)
		}
	}

	if s.opts.SaveMetadata && f.Metadata != nil {
		metaName := song.Stem + ".json"
		if err := writeAtomic(s.opts.Destination, metaName, time.Time{}, func(w io.Writer) error {
			_, err := w.Write(f.Metadata.Raw)
			return err
		}); err != nil {
			return "", fmt.Errorf("failed writing metadata %s: %w", metaName, err)
		}
	}

	if s.opts.State != nil {
		s.opts.State.Record(song.Stem, song.Size, name)
	}

	return name, nil
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func coverExtension(cover []byte) string {
	if bytes.HasPrefix(cover, pngMagic) {
		return ".png"
	}

	return ".jpg"
}
