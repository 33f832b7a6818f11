package base

import (
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/service/calculation/fleur"
)

// handler inspects a failed calculation; a nil exit code means the calculation is restarted
// with the inputs the handler adjusted
type handler struct {
	name   string
	codes  []*exitcode.ExitCode
	handle func(wc *workchain, output *fleur.Output) *exitcode.ExitCode
}

func (h *handler) matches(code *exitcode.ExitCode) bool {
	for _, candidate := range h.codes {
		if candidate.Is(code) {
			return true
		}
	}
	return false
}

// handlers are ordered by priority
var handlers = []*handler{
	{name: "not_enough_memory", codes: []*exitcode.ExitCode{exitcode.NotEnoughMemory}, handle: handleMemory},
	{name: "time_limit", codes: []*exitcode.ExitCode{exitcode.TimeLimit}, handle: handleTimeLimit},
	{name: "vacuum_spill_relax", codes: []*exitcode.ExitCode{exitcode.VacuumSpillRelax}, handle: handleVacuumSpill},
	{name: "mt_radii_relax", codes: []*exitcode.ExitCode{exitcode.MTRadiiRelax}, handle: handleMTRelax},
	{name: "general", codes: []*exitcode.ExitCode{
		exitcode.NoRetrievedFolder, exitcode.OpeningOutputs, exitcode.NoOutXML, exitcode.OutXMLParsingFailed,
		exitcode.RelaxParsingFailed, exitcode.FleurCalcFailed, exitcode.MTRadii, exitcode.DropCDN,
		exitcode.InvalidElementsMMPMat,
	}, handle: handleGeneral},
}

func lookupHandler(code *exitcode.ExitCode) *handler {
	for _, candidate := range handlers {
		if candidate.matches(code) {
			return candidate
		}
	}
	return nil
}

func handleMemory(wc *workchain, output *fleur.Output) *exitcode.ExitCode {
	resources := &wc.calculation.Options.Resources
	machines := resources.NumMachines + 1
	perMachine := resources.NumMPIProcsPerMachine
	if wc.limits.OnlyEvenMPI && perMachine > 0 && (machines*perMachine)%2 == 1 {
		if perMachine > 1 {
			perMachine--
		} else {
			machines++
		}
	}
	if machines > wc.limits.MaxQueueNodes {
		wc.report("not enough memory, %d machines would exceed max_queue_nodes %d", machines, wc.limits.MaxQueueNodes)
		return exitcode.MemoryIssueNoSolution
	}
	resources.NumMachines = machines
	resources.NumMPIProcsPerMachine = perMachine
	wc.restartFromFolder(output)
	wc.report("not enough memory, retrying on %d machines with %d mpi processes per machine", machines, perMachine)
	return nil
}

func handleTimeLimit(wc *workchain, output *fleur.Output) *exitcode.ExitCode {
	if output.Result != nil && len(output.Result.Iterations) > 0 && output.Folder != nil {
		wc.restartFromFolder(output)
		wc.report("time limit reached after %d iterations, restarting from %v", len(output.Result.Iterations), output.Folder.URL)
		return nil
	}
	options := wc.calculation.Options
	if options.MaxWallclockSeconds >= wc.limits.MaxQueueWallclockSec {
		wc.report("time limit reached without iterations, wallclock %ds is already at max_queue_wallclock_sec", options.MaxWallclockSeconds)
		return exitcode.TimeLimitNoSolution
	}
	wallclock := 2 * options.MaxWallclockSeconds
	if wallclock > wc.limits.MaxQueueWallclockSec {
		wallclock = wc.limits.MaxQueueWallclockSec
	}
	options.MaxWallclockSeconds = wallclock
	wc.report("time limit reached without iterations, retrying with wallclock %ds", wallclock)
	return nil
}

func handleVacuumSpill(wc *workchain, _ *fleur.Output) *exitcode.ExitCode {
	wc.report("atoms spilled into the vacuum during relaxation")
	return exitcode.VacuumSpillRelaxSCF
}

func handleMTRelax(wc *workchain, _ *fleur.Output) *exitcode.ExitCode {
	wc.report("muffin-tin spheres overlap during relaxation")
	return exitcode.MTRadiiRelaxSCF
}

func handleGeneral(wc *workchain, output *fleur.Output) *exitcode.ExitCode {
	wc.report("calculation failed with %v, no restart", output.ExitCode)
	return exitcode.SomethingWentWrong.With("%v", output.ExitCode)
}
