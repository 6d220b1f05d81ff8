package gpmf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

// Interpreter runs the configured interpreter command once per recording.
// The ordered chunk payloads go in as a JSON array on stdin (binary carried
// base64-encoded, the JSON convention for bytes) and the track document
// comes back on stdout.
type Interpreter struct {
	command string
	logger  *zap.Logger
}

func NewInterpreter(command string, logger *zap.Logger) *Interpreter {
	return &Interpreter{command: command, logger: logger}
}

func (i *Interpreter) Interpret(ctx context.Context, payloads []entity.RawTelemetry, preset string) ([]byte, error) {
	bin, args, err := splitCommand(i.command)
	if err != nil {
		return nil, err
	}
	args = append(args, "--preset", preset)

	input, err := json.Marshal(payloads)
	if err != nil {
		return nil, fmt.Errorf("encode payloads: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && exit.ExitCode() == telemetryUnavailableExit {
			return nil, entity.ErrTelemetryUnavailable
		}
		return nil, entity.DecodeError(fmt.Errorf("interpreter %q: %w, stderr: %s", bin, err, stderrExcerpt(&stderr)))
	}

	i.logger.Debug("telemetry interpreted",
		zap.Int("payloads", len(payloads)),
		zap.Int("document_bytes", stdout.Len()),
	)
	return stdout.Bytes(), nil
}
