package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/blockio"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/gopro"
	"github.com/skitrax/skitrax-telemetry-service/internal/infra/gpmf"
	"github.com/skitrax/skitrax-telemetry-service/internal/infra/trackstore"
	"github.com/skitrax/skitrax-telemetry-service/internal/usecase"
	"github.com/skitrax/skitrax-telemetry-service/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 1 for invalid invocations and batches
// that could not start at all, 0 otherwise. Individual recording failures
// are reported in the summary, not in the exit code, so one corrupt file
// never masks the recordings that did succeed.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("skitrax-extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	blockSize := fs.Int("block-size", blockio.DefaultBlockSize, "bytes per block streamed into the decoder")
	concurrency := fs.Int("concurrency", usecase.DefaultBatchWorkers, "recordings extracted in parallel")
	decoderCmd := fs.String("decoder", gpmf.DefaultDecoderCommand, "telemetry decoder command")
	interpreterCmd := fs.String("interpreter", gpmf.DefaultInterpreterCommand, "telemetry interpreter command")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <output-dir> <input> [<input>...]\n\n", fs.Name())
		fmt.Fprintf(stderr, "Extracts GPS tracks from GoPro footage into <output-dir>, one GeoJSON file\n")
		fmt.Fprintf(stderr, "per recording. Inputs are video files or directories scanned recursively;\n")
		fmt.Fprintf(stderr, "chaptered captures are reassembled by filename.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		return 1
	}
	if *blockSize <= 0 {
		fmt.Fprintln(stderr, "skitrax-extract: -block-size must be positive")
		return 1
	}
	if *concurrency <= 0 {
		fmt.Fprintln(stderr, "skitrax-extract: -concurrency must be positive")
		return 1
	}
	if *decoderCmd == "" || *interpreterCmd == "" {
		fmt.Fprintln(stderr, "skitrax-extract: -decoder and -interpreter must not be empty")
		return 1
	}

	log, err := logger.NewConsole(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "skitrax-extract: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	outputDir, inputs := rest[0], rest[1:]

	paths, err := expandInputs(inputs)
	if err != nil {
		fmt.Fprintf(stderr, "skitrax-extract: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		log.Warn("no video files found in the given inputs")
	}

	store, err := trackstore.NewFSStore(outputDir, log)
	if err != nil {
		fmt.Fprintf(stderr, "skitrax-extract: output directory: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received, aborting in-flight recordings",
			zap.String("signal", sig.String()))
		cancel()
	}()

	recordings, groupFailures := gopro.NewGrouper(gopro.GoProConvention{}, log).Group(paths)

	prefailed := make([]entity.RecordingResult, 0, len(groupFailures))
	for _, f := range groupFailures {
		prefailed = append(prefailed, entity.RecordingResult{
			RecordingID:  f.RecordingID,
			Status:       entity.JobStatusFailed,
			ErrorKind:    entity.KindOf(f.Err),
			ErrorMessage: f.Err.Error(),
		})
	}

	extractor := usecase.NewTrackExtractor(
		gpmf.NewDecoder(*decoderCmd, log),
		gpmf.NewInterpreter(*interpreterCmd, log),
		*blockSize,
		log,
	)
	batch := usecase.NewBatchProcessor(extractor, store, *concurrency, log)

	result := batch.Run(ctx, recordings, prefailed)
	printSummary(stdout, result)
	return 0
}

// expandInputs resolves the positional inputs into a flat list of video
// files. Directories are scanned recursively; explicit file paths are taken
// as-is. An input that cannot be read at all aborts the batch before any
// extraction starts.
func expandInputs(inputs []string) ([]string, error) {
	var paths []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in, err)
		}
		if !info.IsDir() {
			paths = append(paths, in)
			continue
		}
		found, err := gopro.ScanDirectory(in)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func printSummary(w io.Writer, batch entity.BatchResult) {
	fmt.Fprintf(w, "\n%d recording(s): %d succeeded, %d failed\n",
		len(batch.Results), batch.Succeeded, batch.Failed)
	for _, r := range batch.Results {
		if r.Status == entity.JobStatusSucceeded {
			fmt.Fprintf(w, "  ok    %s  samples=%d  distance=%.0fm  max_speed=%.1fkm/h  %s\n",
				r.RecordingID, r.SampleCount, r.DistanceMeters, r.MaxSpeedKmh, r.TrackPath)
			continue
		}
		fmt.Fprintf(w, "  fail  %s  %s: %s\n", r.RecordingID, r.ErrorKind, r.ErrorMessage)
	}
}
