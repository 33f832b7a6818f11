package scf

// WorkflowVersion is reported with every result
const WorkflowVersion = "0.6.0"

// DistanceUnits are charge density distance units
const DistanceUnits = "me/bohr^3"

// Result represents the SCF report (output_scf_wc_para)
type Result struct {
	WorkflowName        string    `json:"workflow_name" yaml:"workflow_name"`
	WorkflowVersion     string    `json:"workflow_version" yaml:"workflow_version"`
	Material            string    `json:"material" yaml:"material"`
	ConvMode            string    `json:"conv_mode" yaml:"conv_mode"`
	Converged           bool      `json:"converged" yaml:"converged"`
	LoopCount           int       `json:"loop_count" yaml:"loop_count"`
	IterationsTotal     int       `json:"iterations_total" yaml:"iterations_total"`
	DistanceCharge      *float64  `json:"distance_charge" yaml:"distance_charge"`
	DistanceChargeAll   []float64 `json:"distance_charge_all" yaml:"distance_charge_all"`
	DistanceChargeUnits string    `json:"distance_charge_units" yaml:"distance_charge_units"`
	TotalEnergy         *float64  `json:"total_energy" yaml:"total_energy"`
	TotalEnergyAll      []float64 `json:"total_energy_all" yaml:"total_energy_all"`
	TotalEnergyUnits    string    `json:"total_energy_units" yaml:"total_energy_units"`
	ForceDiffLast       *float64  `json:"force_diff_last" yaml:"force_diff_last"`
	ForceLargest        *float64  `json:"force_largest" yaml:"force_largest"`
	TorqueDiffLast      *float64  `json:"torque_diff_last" yaml:"torque_diff_last"`
	NmmpDistance        *float64  `json:"nmmp_distance" yaml:"nmmp_distance"`
	NmmpDistanceAll     []float64 `json:"nmmp_distance_all" yaml:"nmmp_distance_all"`
	LastCalcUUID        string    `json:"last_calc_uuid" yaml:"last_calc_uuid"`
	TotalWallTime       float64   `json:"total_wall_time" yaml:"total_wall_time"`
	TotalWallTimeUnits  string    `json:"total_wall_time_units" yaml:"total_wall_time_units"`
	Info                []string  `json:"info" yaml:"info"`
	Warnings            []string  `json:"warnings" yaml:"warnings"`
	Errors              []string  `json:"errors" yaml:"errors"`
	ExitStatus          int       `json:"exit_status" yaml:"exit_status"`
	ExitMessage         string    `json:"exit_message,omitempty" yaml:"exit_message,omitempty"`
}

// Summary returns values recorded on the workchain node
func (r *Result) Summary() map[string]interface{} {
	ret := map[string]interface{}{
		"conv_mode":        r.ConvMode,
		"converged":        r.Converged,
		"loop_count":       r.LoopCount,
		"iterations_total": r.IterationsTotal,
		"exit_status":      r.ExitStatus,
	}
	if r.Material != "" {
		ret["material"] = r.Material
	}
	if r.DistanceCharge != nil {
		ret["distance_charge"] = *r.DistanceCharge
	}
	if r.TotalEnergy != nil {
		ret["total_energy"] = *r.TotalEnergy
	}
	if r.LastCalcUUID != "" {
		ret["last_calc_uuid"] = r.LastCalcUUID
	}
	return ret
}
