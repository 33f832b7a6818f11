package outxml

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const timeLayout = "2006/01/02 15:04:05"

// Parse parses out.xml content. A document truncated by a killed run is recovered up to the last complete iteration.
func Parse(data []byte) (*Result, error) {
	doc := etree.NewDocument()
	recovered := false
	if err := doc.ReadFromBytes(data); err != nil {
		repaired, ok := repair(data)
		if !ok {
			return nil, fmt.Errorf("failed to parse %v: %w", FileName, err)
		}
		doc = etree.NewDocument()
		if rerr := doc.ReadFromBytes(repaired); rerr != nil {
			return nil, fmt.Errorf("failed to parse %v: %w", FileName, err)
		}
		recovered = true
	}
	root := doc.Root()
	if root == nil || root.Tag != "fleurOutput" {
		return nil, fmt.Errorf("failed to parse %v: missing fleurOutput root element", FileName)
	}
	result := &Result{Recovered: recovered}
	result.Version = root.SelectAttrValue("fleurOutputVersion", "")
	if elem := root.SelectElement("startDateAndTime"); elem != nil {
		result.StartedAt = parseTimestamp(elem)
	}
	if elem := root.SelectElement("endDateAndTime"); elem != nil {
		result.EndedAt = parseTimestamp(elem)
		result.Finished = !recovered
	}
	for _, elem := range root.FindElements("./scfLoop/iteration") {
		iteration, err := parseIteration(elem, result)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %v: %w", FileName, err)
		}
		result.Iterations = append(result.Iterations, iteration)
	}
	for _, elem := range root.FindElements("//errorMessage") {
		result.ErrorMessages = append(result.ErrorMessages, messageOf(elem))
	}
	for _, elem := range root.FindElements("//warning") {
		result.Warnings = append(result.Warnings, messageOf(elem))
	}
	return result, nil
}

func parseIteration(elem *etree.Element, result *Result) (*Iteration, error) {
	ret := &Iteration{}
	var err error
	if ret.Number, err = intAttr(elem, "overallNumber"); err != nil {
		return nil, err
	}
	if value := elem.SelectAttrValue("numberForCurrentRun", ""); value != "" {
		if ret.RunNumber, err = intAttr(elem, "numberForCurrentRun"); err != nil {
			return nil, err
		}
	}
	if energy := elem.SelectElement("totalEnergy"); energy != nil {
		value, err := floatAttr(energy, "value")
		if err != nil {
			return nil, err
		}
		ret.TotalEnergy = &value
		result.EnergyUnits = energy.SelectAttrValue("units", result.EnergyUnits)
	}
	if convergence := elem.SelectElement("densityConvergence"); convergence != nil {
		result.DistanceUnits = convergence.SelectAttrValue("units", result.DistanceUnits)
		for _, charge := range convergence.SelectElements("chargeDensity") {
			value, err := floatAttr(charge, "distance")
			if err != nil {
				return nil, err
			}
			ret.ChargeDistances = append(ret.ChargeDistances, value)
		}
		if overall := convergence.SelectElement("overallChargeDensity"); overall != nil {
			value, err := floatAttr(overall, "distance")
			if err != nil {
				return nil, err
			}
			ret.OverallChargeDistance = &value
		}
		if spin := convergence.SelectElement("spinDensity"); spin != nil {
			value, err := floatAttr(spin, "distance")
			if err != nil {
				return nil, err
			}
			ret.SpinDistance = &value
		}
	}
	if forces := elem.SelectElement("totalForcesOnRepresentativeAtoms"); forces != nil {
		result.ForceUnits = forces.SelectAttrValue("units", result.ForceUnits)
		for _, item := range forces.SelectElements("forceTotal") {
			force := Force{}
			if force.AtomType, err = intAttr(item, "atomType"); err != nil {
				return nil, err
			}
			for k, name := range []string{"x", "y", "z"} {
				if force.Position[k], err = floatAttr(item, name); err != nil {
					return nil, err
				}
			}
			for k, name := range []string{"F_x", "F_y", "F_z"} {
				if force.Value[k], err = floatAttr(item, name); err != nil {
					return nil, err
				}
			}
			ret.Forces = append(ret.Forces, force)
		}
	}
	if torques := elem.SelectElement("magneticTorque"); torques != nil {
		for _, item := range torques.SelectElements("torque") {
			torque := Torque{}
			if torque.AtomType, err = intAttr(item, "atomType"); err != nil {
				return nil, err
			}
			for k, name := range []string{"x", "y", "z"} {
				if torque.Value[k], err = floatAttr(item, name); err != nil {
					return nil, err
				}
			}
			ret.Torques = append(ret.Torques, torque)
		}
	}
	if nmmp := elem.SelectElement("ldaUDensityMatrixConvergence"); nmmp != nil {
		for _, item := range nmmp.SelectElements("distance") {
			value, err := floatAttr(item, "distance")
			if err != nil {
				return nil, err
			}
			ret.NmmpDistances = append(ret.NmmpDistances, value)
		}
	}
	return ret, nil
}

// repair truncates the document after the last complete iteration and closes open elements
func repair(data []byte) ([]byte, bool) {
	closing := []byte("</iteration>")
	index := bytes.LastIndex(data, closing)
	if index == -1 {
		return nil, false
	}
	ret := make([]byte, 0, index+len(closing)+32)
	ret = append(ret, data[:index+len(closing)]...)
	ret = append(ret, []byte("\n</scfLoop>\n</fleurOutput>\n")...)
	return ret, true
}

func parseTimestamp(elem *etree.Element) *time.Time {
	date := elem.SelectAttrValue("date", "")
	clock := elem.SelectAttrValue("time", "")
	if date == "" || clock == "" {
		return nil
	}
	ts, err := time.Parse(timeLayout, date+" "+clock)
	if err != nil {
		return nil
	}
	return &ts
}

func messageOf(elem *etree.Element) string {
	if message := elem.SelectAttrValue("message", ""); message != "" {
		return message
	}
	return strings.TrimSpace(elem.Text())
}

func intAttr(elem *etree.Element, name string) (int, error) {
	value := strings.TrimSpace(elem.SelectAttrValue(name, ""))
	ret, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %v@%v: %q", elem.Tag, name, value)
	}
	return ret, nil
}

func floatAttr(elem *etree.Element, name string) (float64, error) {
	value := strings.TrimSpace(elem.SelectAttrValue(name, ""))
	ret, err := strconv.ParseFloat(strings.NewReplacer("d", "e", "D", "e").Replace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %v@%v: %q", elem.Tag, name, value)
	}
	return ret, nil
}
