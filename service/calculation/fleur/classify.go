package fleur

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/outxml"
	"github.com/viant/fleurflow/service/calculation"
)

var failureCodes = map[outxml.Failure]*exitcode.ExitCode{
	outxml.FailureMemory:           exitcode.NotEnoughMemory,
	outxml.FailureTimeLimit:        exitcode.TimeLimit,
	outxml.FailureMTOverlap:        exitcode.MTRadii,
	outxml.FailureMTOverlapRelax:   exitcode.MTRadiiRelax,
	outxml.FailureVacuumSpillRelax: exitcode.VacuumSpillRelax,
	outxml.FailureInvalidMMPMat:    exitcode.InvalidElementsMMPMat,
	outxml.FailureDropCDN:          exitcode.DropCDN,
	outxml.FailureGeneric:          exitcode.FleurCalcFailed,
}

// Classify maps retrieved files and command status to a calculation exit code.
// The parsed out.xml is returned whenever it could be read, including failed runs.
func Classify(files map[string][]byte, status int, timedOut bool) (*exitcode.ExitCode, *outxml.Result, outxml.Failure) {
	failure, line := outxml.Classify(string(files[calculation.StderrFile]), string(files[calculation.StdoutFile]))
	if failure == outxml.FailureNone && timedOut {
		failure, line = outxml.FailureTimeLimit, "command exceeded max wallclock"
	}

	var result *outxml.Result
	data, hasOutXML := files[outxml.FileName]
	if hasOutXML {
		var err error
		if result, err = outxml.Parse(data); err != nil && failure == outxml.FailureNone {
			return exitcode.OutXMLParsingFailed.With("%v", err), nil, failure
		}
	}
	if relax, ok := files["relax.xml"]; ok && failure == outxml.FailureNone {
		if err := etree.NewDocument().ReadFromBytes(relax); err != nil {
			return exitcode.RelaxParsingFailed.With("%v", err), result, failure
		}
	}
	if failure != outxml.FailureNone {
		return failureCodes[failure].With("%v", line), result, failure
	}
	switch {
	case !hasOutXML && status != 0:
		return exitcode.FleurCalcFailed.With("fleur exited with status %d", status), nil, outxml.FailureGeneric
	case !hasOutXML:
		return exitcode.NoOutXML, nil, failure
	case status != 0:
		return exitcode.FleurCalcFailed.With("fleur exited with status %d", status), result, outxml.FailureGeneric
	case len(result.ErrorMessages) > 0:
		return exitcode.FleurCalcFailed.With("%v", strings.Join(result.ErrorMessages, "; ")), result, outxml.FailureGeneric
	case !result.Finished:
		return exitcode.FleurCalcFailed.With("out.xml is incomplete after %d iterations", len(result.Iterations)), result, outxml.FailureGeneric
	}
	return exitcode.OK, result, failure
}
