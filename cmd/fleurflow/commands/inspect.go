package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/fleurflow/model/outxml"
)

// inspection is the machine readable inspect output
type inspection struct {
	Result  *outxml.Result `json:"result" yaml:"result"`
	Failure outxml.Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
	Message string         `json:"message,omitempty" yaml:"message,omitempty"`
}

func newInspectCommand(g *globals) *cobra.Command {
	var errorURLs []string
	cmd := &cobra.Command{
		Use:   "inspect OUT_XML_URL",
		Short: "Print convergence metrics of a FLEUR run",
		Long: `Parse out.xml of a FLEUR run and print per-iteration energy, charge
distance, density matrix distance and largest force. Error files passed with
--error are searched for known failure messages.`,
		Example: `  fleurflow inspect /scratch/fleur-1a2b3c4d/out.xml --error /scratch/fleur-1a2b3c4d/out.error`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := g.fs.DownloadWithURL(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load %v: %w", args[0], err)
			}
			result, err := outxml.Parse(data)
			if err != nil {
				return err
			}
			ret := &inspection{Result: result}
			var texts []string
			for _, URL := range errorURLs {
				content, err := g.fs.DownloadWithURL(ctx, URL)
				if err != nil {
					return fmt.Errorf("failed to load %v: %w", URL, err)
				}
				texts = append(texts, string(content))
			}
			texts = append(texts, result.ErrorMessages...)
			ret.Failure, ret.Message = outxml.Classify(texts...)
			if g.jsonOutput {
				return g.write(cmd.OutOrStdout(), ret)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderInspection(args[0], ret))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&errorURLs, "error", nil, "error file URLs (out.error, shell.out)")
	return cmd
}

func renderInspection(location string, inspection *inspection) string {
	result := inspection.Result
	_, name := url.Split(location, file.Scheme)
	t := newTable(fmt.Sprintf("%v: %d iterations, finished: %v", name, len(result.Iterations), result.Finished),
		"iteration", "energy ["+result.EnergyUnits+"]", "distance ["+result.DistanceUnits+"]", "nmmp", "force")
	for _, iteration := range result.Iterations {
		row := []string{strconv.Itoa(iteration.Number), "-", "-", "-", "-"}
		if iteration.TotalEnergy != nil {
			row[1] = strconv.FormatFloat(*iteration.TotalEnergy, 'f', 8, 64)
		}
		if distance, ok := iteration.ChargeDistance(); ok {
			row[2] = strconv.FormatFloat(distance, 'g', 6, 64)
		}
		if distance, ok := iteration.MaxNmmpDistance(); ok {
			row[3] = strconv.FormatFloat(distance, 'g', 6, 64)
		}
		if len(iteration.Forces) > 0 {
			row[4] = strconv.FormatFloat(iteration.LargestForce(), 'g', 6, 64)
		}
		t.add(row...)
	}
	ret := t.render()
	if wallTime := result.WallTime(); wallTime > 0 {
		ret += mutedStyle.Render("wall time: "+wallTime.String()) + "\n"
	}
	for _, warning := range result.Warnings {
		ret += warnStyle.Render("warning: "+warning) + "\n"
	}
	if inspection.Failure != outxml.FailureNone {
		ret += removedStyle.Render(fmt.Sprintf("failure %v: %v", inspection.Failure, inspection.Message)) + "\n"
	}
	return ret
}
