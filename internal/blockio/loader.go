// Package blockio streams files into a sink in fixed-size blocks so a whole
// video never has to sit in memory.
package blockio

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

// DefaultBlockSize is used when callers have no reason to pick another value.
const DefaultBlockSize = 4 << 20 // 4 MiB

// Sink consumes the blocks of one file in order. Append is called with
// strictly increasing offsets and no gaps; every block is exactly the
// configured size except possibly the last. The block slice is reused
// between calls and must not be retained after Append returns. Flush is
// called exactly once, after the last block, and only if no error occurred.
type Sink interface {
	Append(offset int64, block []byte) error
	Flush() error
}

// Stream reads the file at path in blockSize chunks and pushes them into
// sink. It returns the number of bytes streamed. Open and read failures are
// IO errors and suppress Flush; sink errors are returned untouched.
func Stream(ctx context.Context, path string, blockSize int, sink Sink) (int64, error) {
	if blockSize <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, entity.IOError(fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	buf := make([]byte, blockSize)
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return offset, err
		}

		n, err := io.ReadFull(f, buf)
		if n > 0 {
			if aerr := sink.Append(offset, buf[:n]); aerr != nil {
				return offset, aerr
			}
			offset += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return offset, entity.IOError(fmt.Errorf("read %s: %w", path, err))
		}
	}

	if err := sink.Flush(); err != nil {
		return offset, err
	}
	return offset, nil
}
