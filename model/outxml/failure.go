package outxml

import (
	"regexp"
	"strings"
)

// Failure represents a failure kind recognised in FLEUR error output
type Failure string

const (
	FailureNone             Failure = ""
	FailureMemory           Failure = "memory"
	FailureTimeLimit        Failure = "timeLimit"
	FailureMTOverlap        Failure = "mtOverlap"
	FailureMTOverlapRelax   Failure = "mtOverlapRelax"
	FailureVacuumSpillRelax Failure = "vacuumSpillRelax"
	FailureInvalidMMPMat    Failure = "invalidMMPMat"
	FailureDropCDN          Failure = "dropCDN"
	FailureGeneric          Failure = "generic"
)

type signature struct {
	failure Failure
	pattern *regexp.Regexp
}

func newSignature(failure Failure, texts ...string) signature {
	quoted := make([]string, len(texts))
	for i, text := range texts {
		quoted[i] = regexp.QuoteMeta(text)
	}
	return signature{failure: failure, pattern: regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))}
}

// signatures are checked in order, the first match wins
var signatures = []signature{
	newSignature(FailureVacuumSpillRelax, "Atom spills out into vacuum during relaxation"),
	newSignature(FailureMTOverlapRelax, "Overlapping MT-spheres during relaxation"),
	newSignature(FailureMTOverlap, "MT spheres overlap", "Overlapping MT-spheres"),
	newSignature(FailureInvalidMMPMat, "Invalid elements in mmpmat"),
	newSignature(FailureDropCDN, "Problem with cdn", "Charge density has negative values"),
	newSignature(FailureMemory, "cgroup out-of-memory handler", "out of memory", "Allocation of array for communication failed", "Cannot allocate memory", "oom-kill"),
	newSignature(FailureTimeLimit, "DUE TO TIME LIMIT", "time limit reached", "walltime exceeded"),
	newSignature(FailureGeneric, "Fleur exit (mpi_abort)", "Error in Fleur", "Fleur aborted", "**** ERROR", "juDFT-Error"),
}

// Classify returns the first recognised failure in the supplied texts with the matching line
func Classify(texts ...string) (Failure, string) {
	for _, candidate := range signatures {
		for _, text := range texts {
			if text == "" {
				continue
			}
			if loc := candidate.pattern.FindStringIndex(text); loc != nil {
				return candidate.failure, lineAt(text, loc[0])
			}
		}
	}
	return FailureNone, ""
}

func lineAt(text string, index int) string {
	start := strings.LastIndex(text[:index], "\n") + 1
	end := strings.Index(text[index:], "\n")
	if end == -1 {
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text[start : index+end])
}
