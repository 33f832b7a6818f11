package modifier

import (
	"bytes"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// DiffStats captures line statistics of a unified diff
type DiffStats struct {
	Added   int
	Removed int
	Hunks   int
}

// GenerateDiff produces a unified diff between two deck versions, empty when identical
func GenerateDiff(before, after []byte, name string, contextLines int) (string, DiffStats, error) {
	if contextLines <= 0 {
		contextLines = 3
	}
	if bytes.Equal(before, after) {
		return "", DiffStats{}, nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  contextLines,
	})
	if err != nil {
		return "", DiffStats{}, err
	}
	stats, err := Stats(diff)
	return diff, stats, err
}

// Stats counts hunks and changed lines of a single file unified diff
func Stats(diff string) (DiffStats, error) {
	var stats DiffStats
	if diff == "" {
		return stats, nil
	}
	fileDiff, err := sgdiff.ParseFileDiff([]byte(diff))
	if err != nil {
		return stats, fmt.Errorf("failed to parse diff: %w", err)
	}
	stats.Hunks = len(fileDiff.Hunks)
	for _, hunk := range fileDiff.Hunks {
		for _, line := range bytes.SplitAfter(hunk.Body, []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case '+':
				stats.Added++
			case '-':
				stats.Removed++
			}
		}
	}
	return stats, nil
}
