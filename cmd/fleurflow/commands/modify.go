package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/fleurinp/modifier"
	"gopkg.in/yaml.v3"
)

// modification is the machine readable modify output
type modification struct {
	Diff  string             `json:"diff" yaml:"diff"`
	Stats modifier.DiffStats `json:"stats" yaml:"stats"`
}

func newModifyCommand(g *globals) *cobra.Command {
	var (
		changesURL string
		patchURL   string
		outURL     string
		sets       []string
	)
	cmd := &cobra.Command{
		Use:   "modify INP_XML_URL",
		Short: "Apply a change list to inp.xml and print the diff",
		Long: `Apply an ordered change list (the inpxml_changes format) to inp.xml,
validate the result and print the unified diff. A diff saved from an earlier
run can be replayed on another deck with --patch.`,
		Example: `  fleurflow modify inp.xml --set itmax=30 --set minDistance=1e-6
  fleurflow modify inp.xml -f changes.yaml --out mem://localhost/inp.xml
  fleurflow modify inp.xml --patch itmax.diff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deck, err := fleurinp.Load(ctx, g.fs, args[0])
			if err != nil {
				return err
			}
			var modified *fleurinp.Input
			if patchURL != "" {
				diff, err := g.fs.DownloadWithURL(ctx, patchURL)
				if err != nil {
					return fmt.Errorf("failed to load %v: %w", patchURL, err)
				}
				if modified, err = modifier.ApplyDiff(deck, string(diff)); err != nil {
					return err
				}
			} else {
				changes, err := changeList(g, cmd, changesURL, sets)
				if err != nil {
					return err
				}
				if modified, err = modifier.New(deck).Apply(changes...).Freeze(); err != nil {
					return err
				}
			}
			before, err := deck.Bytes()
			if err != nil {
				return err
			}
			after, err := modified.Bytes()
			if err != nil {
				return err
			}
			diff, stats, err := modifier.GenerateDiff(before, after, fleurinp.FileName, 3)
			if err != nil {
				return err
			}
			if outURL != "" {
				if err = modified.Upload(ctx, g.fs, outURL); err != nil {
					return err
				}
			}
			if g.jsonOutput {
				return g.write(cmd.OutOrStdout(), &modification{Diff: diff, Stats: stats})
			}
			if diff == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no changes"))
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%v%v\n", colorDiff(diff),
				mutedStyle.Render(fmt.Sprintf("%d hunk(s), +%d -%d", stats.Hunks, stats.Added, stats.Removed)))
			return err
		},
	}
	cmd.Flags().StringVarP(&changesURL, "file", "f", "", "change list YAML URL")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set_inpchanges key=value, repeatable")
	cmd.Flags().StringVar(&patchURL, "patch", "", "unified diff URL to replay instead of a change list")
	cmd.Flags().StringVar(&outURL, "out", "", "URL receiving the modified inp.xml")
	return cmd
}

// changeList reads changes from the file followed by a set_inpchanges built from --set values
func changeList(g *globals, cmd *cobra.Command, changesURL string, sets []string) (modifier.Changes, error) {
	var changes modifier.Changes
	if changesURL != "" {
		data, err := g.fs.DownloadWithURL(cmd.Context(), changesURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load %v: %w", changesURL, err)
		}
		if err = yaml.Unmarshal(data, &changes); err != nil {
			return nil, fmt.Errorf("invalid change list %v: %w", changesURL, err)
		}
	}
	if len(sets) > 0 {
		values := make(map[string]interface{}, len(sets))
		for _, set := range sets {
			key, text, ok := strings.Cut(set, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid --set %q, expected key=value", set)
			}
			var value interface{}
			if err := yaml.Unmarshal([]byte(text), &value); err != nil || value == nil {
				value = text
			}
			values[key] = value
		}
		changes = append(changes, &modifier.Change{Method: "set_inpchanges", Args: values})
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("no changes: use --file, --set or --patch")
	}
	return changes, nil
}
