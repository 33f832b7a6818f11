package modifier

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	sgdiff "github.com/sourcegraph/go-diff/diff"
	"github.com/viant/fleurflow/model/fleurinp"
)

// ErrPatchMismatch is returned when a diff does not fit the deck it is applied to
var ErrPatchMismatch = errors.New("patch does not apply")

// ApplyDiff applies a unified diff produced by Diff to a deck and validates the result
func ApplyDiff(deck *fleurinp.Input, diff string) (*fleurinp.Input, error) {
	original, err := deck.Bytes()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(diff) == "" {
		return deck.Clone(), nil
	}
	fileDiff, err := sgdiff.ParseFileDiff([]byte(diff))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}
	var patched bytes.Buffer
	if err = applyHunks(original, fileDiff.Hunks, &patched); err != nil {
		return nil, err
	}
	ret, err := fleurinp.Parse(patched.Bytes())
	if err != nil {
		return nil, err
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// applyHunks walks the original lines in order, checking context and removed lines
func applyHunks(original []byte, hunks []*sgdiff.Hunk, patched *bytes.Buffer) error {
	lines := strings.SplitAfter(string(original), "\n")
	index := 0
	// SplitAfter leaves a trailing empty element where the diff carries "\n"
	same := func(a, b string) bool {
		return a == b || (a == "" && b == "\n") || (a == "\n" && b == "")
	}
	for _, hunk := range hunks {
		for start := int(hunk.OrigStartLine) - 1; index < start && index < len(lines); index++ {
			patched.WriteString(lines[index])
		}
		for _, line := range strings.SplitAfter(string(hunk.Body), "\n") {
			if line == "" {
				continue
			}
			tag, text := line[0], line[1:]
			switch tag {
			case ' ':
				if index >= len(lines) || !same(lines[index], text) {
					return fmt.Errorf("%w: context mismatch at line %d", ErrPatchMismatch, index+1)
				}
				if !(lines[index] == "" && text == "\n") {
					patched.WriteString(text)
				}
				index++
			case '-':
				if index >= len(lines) || !same(lines[index], text) {
					return fmt.Errorf("%w: removed line mismatch at line %d", ErrPatchMismatch, index+1)
				}
				index++
			case '+':
				patched.WriteString(text)
			case '\\':
			default:
				return fmt.Errorf("%w: unexpected hunk line %q", ErrPatchMismatch, line)
			}
		}
	}
	for ; index < len(lines); index++ {
		patched.WriteString(lines[index])
	}
	return nil
}
