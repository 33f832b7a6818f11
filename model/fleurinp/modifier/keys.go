package modifier

import "github.com/viant/fleurflow/model/fleurinp"

type location struct {
	path string
	attr string
}

// inpchanges maps set_inpchanges keys to attribute locations
var inpchanges = map[string]location{
	"itmax":           {fleurinp.PathScfLoop, "itmax"},
	"minDistance":     {fleurinp.PathScfLoop, "minDistance"},
	"maxIterBroyd":    {fleurinp.PathScfLoop, "maxIterBroyd"},
	"imix":            {fleurinp.PathScfLoop, "imix"},
	"alpha":           {fleurinp.PathScfLoop, "alpha"},
	"precondParam":    {fleurinp.PathScfLoop, "precondParam"},
	"spinf":           {fleurinp.PathScfLoop, "spinf"},
	"Kmax":            {fleurinp.PathCutoffs, "Kmax"},
	"Gmax":            {fleurinp.PathCutoffs, "Gmax"},
	"GmaxXC":          {fleurinp.PathCutoffs, "GmaxXC"},
	"numbands":        {fleurinp.PathCutoffs, "numbands"},
	"ctail":           {fleurinp.PathCoreElectrons, "ctail"},
	"frcor":           {fleurinp.PathCoreElectrons, "frcor"},
	"kcrel":           {fleurinp.PathCoreElectrons, "kcrel"},
	"xcFunctional":    {fleurinp.PathXCFunctional, "name"},
	"jspins":          {fleurinp.PathMagnetism, "jspins"},
	"l_noco":          {fleurinp.PathMagnetism, "l_noco"},
	"swsp":            {fleurinp.PathMagnetism, "swsp"},
	"lflip":           {fleurinp.PathMagnetism, "lflip"},
	"l_soc":           {fleurinp.PathSOC, "l_soc"},
	"theta":           {fleurinp.PathSOC, "theta"},
	"phi":             {fleurinp.PathSOC, "phi"},
	"spav":            {fleurinp.PathSOC, "spav"},
	"gw":              {fleurinp.PathExpertModes, "gw"},
	"spex":            {fleurinp.PathExpertModes, "spex"},
	"secvar":          {fleurinp.PathExpertModes, "secvar"},
	"l_f":             {fleurinp.PathGeometryOptimization, "l_f"},
	"forcealpha":      {fleurinp.PathGeometryOptimization, "forcealpha"},
	"forcemix":        {fleurinp.PathGeometryOptimization, "forcemix"},
	"epsdisp":         {fleurinp.PathGeometryOptimization, "epsdisp"},
	"epsforce":        {fleurinp.PathGeometryOptimization, "epsforce"},
	"force_converged": {fleurinp.PathGeometryOptimization, "epsforce"},
	"qfix":            {fleurinp.PathGeometryOptimization, "qfix"},
	"l_linMix":        {fleurinp.PathLDAU, "l_linMix"},
	"mixParam":        {fleurinp.PathLDAU, "mixParam"},
	"dos":             {fleurinp.PathOutput, "dos"},
	"band":            {fleurinp.PathOutput, "band"},
	"slice":           {fleurinp.PathOutput, "slice"},
}

// InpchangesKeys returns keys supported by set_inpchanges
func InpchangesKeys() []string {
	var ret = make([]string, 0, len(inpchanges))
	for key := range inpchanges {
		ret = append(ret, key)
	}
	return ret
}
