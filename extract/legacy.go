package extract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrExternalToolRequired is returned when a legacy format needs an external
// conversion tool that is not installed. Callers treat the file as skipped.
var ErrExternalToolRequired = errors.New("extract: external conversion tool required")

// LegacyDocExtractor handles legacy binary .doc files by shelling out to
// antiword. The tool is probed per call; an absent binary is not fatal to
// a multi-file ingestion, only to this file.
type LegacyDocExtractor struct{}

func (e *LegacyDocExtractor) Formats() []string { return []string{"doc"} }

func (e *LegacyDocExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	bin, err := exec.LookPath("antiword")
	if err != nil {
		return nil, fmt.Errorf("%w: antiword not found for .doc", ErrExternalToolRequired)
	}

	out, err := exec.CommandContext(ctx, bin, path).Output()
	if err != nil {
		return nil, fmt.Errorf("antiword failed: %w", err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return &Result{}, nil
	}
	return &Result{Segments: []Segment{{Text: text}}}, nil
}
