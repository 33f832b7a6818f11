package exitcode

// Calculation codes, reported by fleur and inpgen calculations.
var (
	NoRetrievedFolder     = newCode(300, "ERROR_NO_RETRIEVED_FOLDER", "no retrieved folder found")
	OpeningOutputs        = newCode(301, "ERROR_OPENING_OUTPUTS", "one of the output files can not be opened")
	NoOutXML              = newCode(302, "ERROR_NO_OUTXML", "no out.xml file was retrieved")
	OutXMLParsingFailed   = newCode(303, "ERROR_XMLOUT_PARSING_FAILED", "parsing of out.xml failed")
	RelaxParsingFailed    = newCode(304, "ERROR_RELAX_PARSING_FAILED", "parsing of relax.xml failed")
	NoInpXML              = newCode(306, "ERROR_NO_INPXML", "no inp.xml file was produced")
	InpXMLInvalid         = newCode(308, "ERROR_FLEURINPDATA_INPUT_NOT_VALID", "produced inp.xml is not valid")
	FleurCalcFailed       = newCode(310, "ERROR_FLEUR_CALC_FAILED", "FLEUR calculation failed")
	NotEnoughMemory       = newCode(311, "ERROR_NOT_ENOUGH_MEMORY", "FLEUR calculation failed due to lack of memory")
	MTRadii               = newCode(312, "ERROR_MT_RADII", "FLEUR calculation failed due to MT overlap")
	MTRadiiRelax          = newCode(313, "ERROR_MT_RADII_RELAX", "overlapping MT-spheres during geometry optimization")
	DropCDN               = newCode(314, "ERROR_DROP_CDN", "problem with cdn is suspected")
	InvalidElementsMMPMat = newCode(315, "ERROR_INVALID_ELEMENTS_MMPMAT", "LDA+U density matrix contains invalid elements")
	VacuumSpillRelax      = newCode(316, "ERROR_VACUUM_SPILL_RELAX", "FLEUR calculation failed due to atoms spilling to the vacuum")
	TimeLimit             = newCode(318, "ERROR_TIME_LIMIT", "calculation failed due to time limits")
)

// Base workchain codes.
var (
	SubProcessKilled          = newCode(302, "ERROR_SUB_PROCESS_KILLED", "the sub process was killed")
	TimeLimitNoSolution       = newCode(388, "ERROR_TIME_LIMIT_NO_SOLUTION", "computational resources are not optimal")
	MemoryIssueNoSolution     = newCode(389, "ERROR_MEMORY_ISSUE_NO_SOLUTION", "computational resources are not optimal")
	SomethingWentWrong        = newCode(399, "ERROR_SOMETHING_WENT_WRONG", "FleurCalculation failed and FleurBaseWorkChain has no strategy to resolve this")
	MaximumIterationsExceeded = newCode(401, "ERROR_MAXIMUM_ITERATIONS_EXCEEDED", "the maximum number of iterations was exceeded")
	SecondUnhandledFailure    = newCode(402, "ERROR_SECOND_CONSECUTIVE_UNHANDLED_FAILURE", "the process failed for an unknown reason, twice in a row")
	InvalidResources          = newCode(403, "ERROR_INVALID_RESOURCES", "requested computational resources are not valid")
)

// SCF workchain codes.
var (
	InvalidInputParam   = newCode(230, "ERROR_INVALID_INPUT_PARAM", "invalid workchain parameters")
	InvalidInputConfig  = newCode(231, "ERROR_INVALID_INPUT_CONFIG", "invalid input configuration")
	InvalidCodeProvided = newCode(233, "ERROR_INVALID_CODE_PROVIDED", "input codes do not correspond to fleur or inpgen respectively")
	ChangingFleurInp    = newCode(235, "ERROR_CHANGING_FLEURINPUT_FAILED", "input file modification failed")
	InvalidInputFile    = newCode(236, "ERROR_INVALID_INPUT_FILE", "input file was corrupted after user's modifications")
	InpgenCalcFailed    = newCode(360, "ERROR_INPGEN_CALCULATION_FAILED", "inpgen calculation failed")
	FleurCalcFailedSCF  = newCode(361, "ERROR_FLEUR_CALCULATION_FAILED", "fleur calculation failed")
	DidNotConverge      = newCode(362, "ERROR_DID_NOT_CONVERGE", "SCF cycle did not lead to convergence")
	VacuumSpillRelaxSCF = newCode(311, "ERROR_VACUUM_SPILL_RELAX", "FLEUR calculation failed because an atom spilled to the vacuum during relaxation")
	MTRadiiRelaxSCF     = newCode(313, "ERROR_MT_RADII_RELAX", "overlapping MT-spheres during relaxation")
)
