// Package commands implements the fleurflow command line.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/fleurflow"
	"gopkg.in/yaml.v3"
)

type globals struct {
	configURL  string
	verbose    bool
	jsonOutput bool
	fs         afs.Service
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	g := &globals{fs: afs.New()}
	rootCmd := &cobra.Command{
		Use:   "fleurflow",
		Short: "FLEUR self-consistency workchains",
		Long: `fleurflow runs FLEUR self-consistency workchains: it submits FLEUR
calculations until the density, energy, force or torque criterion is met,
restarting failed runs with adjusted resources.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configURL, "config", "c", "", "config file URL")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newSCFCommand(g))
	rootCmd.AddCommand(newInspectCommand(g))
	rootCmd.AddCommand(newModifyCommand(g))
	rootCmd.AddCommand(newNodesCommand(g))
	return rootCmd
}

func (g *globals) config(ctx context.Context) (*fleurflow.Config, error) {
	config := fleurflow.DefaultConfig()
	if g.configURL != "" {
		loaded, err := fleurflow.LoadConfig(ctx, g.fs, g.configURL)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if g.verbose {
		config.Logging.Level = "debug"
	}
	return config, nil
}

func (g *globals) service(ctx context.Context) (*fleurflow.Service, error) {
	config, err := g.config(ctx)
	if err != nil {
		return nil, err
	}
	return fleurflow.New(ctx, fleurflow.WithConfig(config), fleurflow.WithFileSystem(g.fs))
}

// write prints value as YAML, or JSON with --json
func (g *globals) write(w io.Writer, value interface{}) error {
	if g.jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
