package gpmf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/port"
)

// telemetryUnavailableExit is the decoder contract for "container parsed
// fine, no telemetry track present". Anything else non-zero is a decode
// failure.
const telemetryUnavailableExit = 2

// Decoder runs the configured decoder command once per video chunk,
// streaming the chunk into its stdin and collecting the opaque telemetry
// payload from its stdout.
type Decoder struct {
	command string
	logger  *zap.Logger
}

func NewDecoder(command string, logger *zap.Logger) *Decoder {
	return &Decoder{command: command, logger: logger}
}

// OpenStream starts one decoder process for the named chunk. The returned
// stream feeds blocks into the process; closing the input on Flush is the
// end-of-file signal.
func (d *Decoder) OpenStream(ctx context.Context, name string) (port.TelemetryStream, error) {
	bin, args, err := splitCommand(d.command)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdin pipe: %w", err)
	}

	s := &decoderStream{name: name, cmd: cmd, stdin: stdin, logger: d.logger}
	cmd.Stdout = &s.stdout
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, entity.DecodeError(fmt.Errorf("start decoder %q: %w", bin, err))
	}
	return s, nil
}

type decoderStream struct {
	name    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	logger  *zap.Logger
	payload entity.RawTelemetry
	reaped  bool
}

func (s *decoderStream) Append(offset int64, block []byte) error {
	if _, err := s.stdin.Write(block); err != nil {
		return entity.DecodeError(fmt.Errorf("feed %s to decoder at offset %d: %w", s.name, offset, err))
	}
	return nil
}

// Flush signals end of input and waits for the decoder to finish. Exit
// status 2 means the chunk carries no telemetry track; that is reported as
// ErrTelemetryUnavailable so callers can treat it as an empty result rather
// than a failure.
func (s *decoderStream) Flush() error {
	s.reaped = true

	if err := s.stdin.Close(); err != nil {
		s.cmd.Wait()
		return entity.DecodeError(fmt.Errorf("close decoder input for %s: %w", s.name, err))
	}
	if err := s.cmd.Wait(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && exit.ExitCode() == telemetryUnavailableExit {
			return fmt.Errorf("%s: %w", s.name, entity.ErrTelemetryUnavailable)
		}
		return entity.DecodeError(fmt.Errorf("decoder on %s: %w, stderr: %s", s.name, err, stderrExcerpt(&s.stderr)))
	}

	s.payload = s.stdout.Bytes()
	s.logger.Debug("telemetry payload decoded",
		zap.String("chunk", s.name),
		zap.Int("payload_bytes", len(s.payload)),
	)
	return nil
}

// Telemetry returns the payload collected by a successful Flush.
func (s *decoderStream) Telemetry() entity.RawTelemetry {
	return s.payload
}

// Abort kills the decoder after a mid-stream failure so no process is left
// behind. Safe to call after Flush.
func (s *decoderStream) Abort() {
	if s.reaped {
		return
	}
	s.reaped = true
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
}
