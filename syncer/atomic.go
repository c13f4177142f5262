package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/slipstream/w4dj/ncm"
)

// writeAtomic creates dir/name with the content produced by write. Data
// goes to a temporary file in the same directory that is renamed into
// place only when write succeeded, a failed or cancelled write leaves no
// partial file behind. A non-zero modTime is set on the file before it is
// renamed.
func writeAtomic(dir, name string, modTime time.Time, write func(w io.Writer) error) (err error) {
	tmpFile, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed creating temporary file for %s: %w", name, err)
	}

	defer func() {
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if err = write(tmpFile); err != nil {
		return err
	}

	if err = tmpFile.Chmod(0o644); err != nil {
		return fmt.Errorf("failed setting permissions of %s: %w", name, err)
	}

	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("failed closing %s: %w", name, err)
	}

	if !modTime.IsZero() {
		if err = os.Chtimes(tmpFile.Name(), modTime, modTime); err != nil {
			return fmt.Errorf("failed setting times of %s: %w", name, err)
		}
	}

	if err = os.Rename(tmpFile.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed renaming %s into place: %w", name, err)
	}

	return nil
}

// copyChunks copies src to dst one chunk at a time, checking for
// cancellation between chunks.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ncm.ChunkSize)

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}

		if err == io.EOF {
			return written, nil
		} else if err != nil {
			return written, err
		}
	}
}
