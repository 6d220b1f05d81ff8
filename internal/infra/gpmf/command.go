// Package gpmf runs the external collaborator tools that own the GPMF
// binary format: a decoder that pulls the raw telemetry stream out of an
// MP4 container and an interpreter that turns decoded payloads into a
// track document. Both are plain executables spoken to over pipes, so
// deployments can swap implementations without touching this service.
package gpmf

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	// DefaultDecoderCommand and DefaultInterpreterCommand are the tools a
	// stock deployment ships with.
	DefaultDecoderCommand     = "gpmf-extract"
	DefaultInterpreterCommand = "gopro-telemetry"

	maxStderrExcerpt = 512
)

// splitCommand breaks a configured command line into argv. Commands come
// from config so extra flags ("gpmf-extract --strict") are allowed.
func splitCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("collaborator command is empty")
	}
	return fields[0], fields[1:], nil
}

// stderrExcerpt caps collaborator stderr so a chatty tool cannot flood log
// lines and job error rows.
func stderrExcerpt(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return "(no stderr)"
	}
	if len(s) > maxStderrExcerpt {
		s = s[:maxStderrExcerpt] + "..."
	}
	return s
}
