package main

import (
	"context"
	"fmt"

	"github.com/aretw0/introspection"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/pkg/core"
)

var infoDiagram bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the collection in use and its note types",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := openService(ctx, true)
		defer closeService(svc)

		state, ok := svc.State().(core.ServiceState)
		if !ok {
			fatal("Error reading state", fmt.Errorf("unexpected state %T", svc.State()))
		}

		if infoDiagram {
			config := introspection.DefaultDiagramConfig()
			config.SecondaryID = "collection"
			config.SecondaryLabel = "Collection"
			fmt.Println(introspection.TreeDiagram(buildTree(state), config))
			return
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			fatal("Error encoding state", err)
		}
		fmt.Println(titleStyle.Render("Collection (" + state.CollectionType + ")"))
		fmt.Println(string(data))
		if cfg.File != "" {
			fmt.Println(dimStyle.Render("config: " + cfg.File))
		}
		fmt.Println(dimStyle.Render("jobs: " + jobFile()))
	},
}

type stateNode struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []stateNode
}

// buildTree lays the service state out for the diagram. Status values
// must be classes of introspection.DefaultStyles().
func buildTree(state core.ServiceState) stateNode {
	coll := stateNode{
		Name:     "Collection",
		Status:   "running",
		Metadata: map[string]string{"type": state.CollectionType},
	}
	if fields, ok := toStrings(state.Collection); ok {
		for k, v := range fields {
			coll.Metadata[k] = v
		}
	}
	if dryRun {
		coll.Status = "suspended"
		coll.Metadata["dry_run"] = "true"
	}
	return stateNode{
		Name:     "Service",
		Status:   "running",
		Metadata: map[string]string{"type": "process"},
		Children: []stateNode{coll},
	}
}

// toStrings flattens the scalar fields of an adapter state.
func toStrings(v any) (map[string]string, bool) {
	if v == nil {
		return nil, false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		switch t := val.(type) {
		case []any:
			out[k] = fmt.Sprintf("%d", len(t))
		case map[string]any:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, true
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoDiagram, "diagram", false, "Print a Mermaid diagram of the components")
}
