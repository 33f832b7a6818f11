package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
)

func newNodesCommand(g *globals) *cobra.Command {
	var parentID, state, nodeType string
	cmd := &cobra.Command{
		Use:   "nodes [NODE_ID]",
		Short: "List workchain and calculation nodes",
		Long: `List nodes kept in the configured node store, newest last. With a node id
the node is printed with its inputs, outputs and reports.`,
		Example: `  fleurflow nodes -c fleurflow.yaml --type fleur.scf
  fleurflow nodes -c fleurflow.yaml --parent 0b6f2c8e-6f0e-4b8e-9f57-3c1e1f7d2a10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			srv, err := g.service(ctx)
			if err != nil {
				return err
			}
			rt := srv.Runtime()
			defer rt.Shutdown(ctx)
			if len(args) == 1 {
				node, err := rt.Node(ctx, args[0])
				if err != nil {
					return err
				}
				return g.write(cmd.OutOrStdout(), node)
			}
			var parameters []*dao.Parameter
			if parentID != "" {
				parameters = append(parameters, dao.NewParameter(dao.ParamParentID, parentID))
			}
			if state != "" {
				parameters = append(parameters, dao.NewParameter(dao.ParamState, state))
			}
			if nodeType != "" {
				parameters = append(parameters, dao.NewParameter(dao.ParamType, nodeType))
			}
			nodes, err := rt.Nodes(ctx, parameters...)
			if err != nil {
				return err
			}
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].CreatedAt.Before(nodes[j].CreatedAt) })
			if g.jsonOutput {
				return g.write(cmd.OutOrStdout(), nodes)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderNodes(nodes))
			return err
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "parent node id")
	cmd.Flags().StringVar(&state, "state", "", "node state (waiting, running, finished, excepted, killed)")
	cmd.Flags().StringVar(&nodeType, "type", "", "node type, for example fleur.scf or fleur.fleur")
	return cmd
}

func renderNodes(nodes []*execution.Node) string {
	t := newTable(fmt.Sprintf("%d node(s)", len(nodes)), "id", "type", "state", "exit", "label", "created")
	for _, node := range nodes {
		exit := "-"
		if status := node.ExitStatus(); status >= 0 {
			exit = strconv.Itoa(status)
		}
		t.add(node.ID, node.Type, string(node.State), exit, node.Label, humanize.Time(node.CreatedAt))
	}
	return t.render()
}
