package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/fleurflow/service/scf"
)

// scfReport is printed when a workchain ends
type scfReport struct {
	NodeID     string      `json:"node_id" yaml:"node_id"`
	ExitStatus int         `json:"exit_status" yaml:"exit_status"`
	ExitLabel  string      `json:"exit_label" yaml:"exit_label"`
	Folder     string      `json:"last_calc_remote,omitempty" yaml:"last_calc_remote,omitempty"`
	Result     *scf.Result `json:"output_scf_wc_para" yaml:"output_scf_wc_para"`
}

func newSCFCommand(g *globals) *cobra.Command {
	var (
		requestURL string
		deckURL    string
		timeout    time.Duration
		every      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scf",
		Short: "Run a SCF workchain",
		Long: `Run a SCF workchain described by a YAML request.

The request carries the FLEUR code, either an inp.xml location, a structure
with an inpgen code, or a parent calculation folder, and optional
wf_parameters. Interrupting the command kills the running calculation.`,
		Example: `  # Converge the charge density of a deck
  fleurflow scf -r fe.yaml

  # Keep the last deck
  fleurflow scf -r fe.yaml --save-deck /tmp/fe/inp.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input, err := loadRequest(ctx, g, requestURL)
			if err != nil {
				return err
			}
			srv, err := g.service(ctx)
			if err != nil {
				return err
			}
			if srv.Config().Metrics.Enabled {
				go func() {
					if err := srv.Metrics().Serve(); err != nil {
						log.Warn().Err(err).Msg("metrics server stopped")
					}
				}()
			}
			rt := srv.Runtime()
			if err = rt.Start(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			defer func() {
				if err := rt.Shutdown(context.Background()); err != nil {
					log.Warn().Err(err).Msg("shutdown failed")
				}
			}()

			node, wait, err := rt.SubmitSCF(ctx, input)
			if err != nil {
				return err
			}
			log.Info().Str("node", node.ID).Str("label", input.Label).Msg("submitted SCF workchain")
			stop := reportProgress(rt.Progress, node.ID, every)
			defer stop()

			output, err := wait(ctx, timeout)
			if err != nil {
				if ctx.Err() != nil {
					if killErr := rt.Kill(context.Background(), node.ID); killErr != nil {
						log.Warn().Err(killErr).Str("node", node.ID).Msg("kill failed")
					}
				}
				return fmt.Errorf("workchain %v: %w", node.ID, err)
			}
			if deckURL != "" && output.FleurInput != nil {
				if err = output.FleurInput.Upload(ctx, g.fs, deckURL); err != nil {
					return err
				}
			}
			report := &scfReport{NodeID: output.NodeID, Result: output.Result}
			if output.ExitCode != nil {
				report.ExitStatus, report.ExitLabel = output.ExitCode.Status, output.ExitCode.Label
			}
			if output.Folder != nil {
				report.Folder = output.Folder.URL
			}
			return g.write(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&requestURL, "request", "r", "", "workchain request YAML URL")
	cmd.Flags().StringVar(&deckURL, "save-deck", "", "URL receiving inp.xml of the last FLEUR run")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*24*time.Hour, "maximum workchain duration, 0 waits without limit")
	cmd.Flags().DurationVar(&every, "progress", time.Minute, "progress log interval")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

// loadRequest decodes the request; a relative inp.xml location is resolved against the request location
func loadRequest(ctx context.Context, g *globals, requestURL string) (*scf.Input, error) {
	data, err := g.fs.DownloadWithURL(ctx, requestURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %v: %w", requestURL, err)
	}
	input, err := scf.DecodeInput(data)
	if err != nil {
		return nil, err
	}
	if input.FleurInputURL != "" && url.IsRelative(input.FleurInputURL) {
		parent, _ := url.Split(url.Normalize(requestURL, file.Scheme), file.Scheme)
		input.FleurInputURL = url.Join(parent, input.FleurInputURL)
	}
	return input, nil
}
