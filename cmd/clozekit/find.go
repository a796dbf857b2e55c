package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
)

var (
	findType  string
	findField string
	findJSON  bool
)

var findCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "List the notes matching a search query",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := openService(ctx, true)
		defer closeService(svc)

		ids, nt, err := svc.FindNotes(ctx, args[0], findType)
		if err != nil {
			fatal("Error finding notes", err)
		}
		notes, err := svc.Notes(ctx, ids)
		if err != nil {
			fatal("Error reading notes", err)
		}

		if findJSON {
			type row struct {
				ID      core.NoteID `json:"id"`
				Type    string      `json:"note_type"`
				Preview string      `json:"preview"`
				Tags    []string    `json:"tags,omitempty"`
			}
			rows := make([]row, 0, len(notes))
			for _, n := range notes {
				rows = append(rows, row{ID: n.ID, Type: nt.Name, Preview: core.Preview(nt, n, findField), Tags: n.Tags})
			}
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				fatal("Error encoding notes", err)
			}
			fmt.Println(string(data))
			return
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("%s: %d notes", nt.Name, len(notes))))
		for _, n := range notes {
			fmt.Printf("%s %s\n",
				idStyle.Render(fmt.Sprintf("%d", n.ID)),
				cloze.Truncate(core.Preview(nt, n, findField), 2*cloze.DefaultTruncate))
		}
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVarP(&findType, "type", "t", "", "Note type the notes must belong to")
	findCmd.Flags().StringVar(&findField, "cloze-field", "Text", "Field shown for cloze notes")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "Output in JSON format")
}
