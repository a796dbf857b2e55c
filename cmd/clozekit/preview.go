package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/group"
	"github.com/aretw0/clozekit/pkg/hint"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	maskStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("219"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("78"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func printHint(res hint.Result) {
	title := fmt.Sprintf("Hint %q", res.Query)
	if res.Group > 0 {
		title = fmt.Sprintf("Group %d", res.Group)
	}
	fmt.Println(titleStyle.Render(title))
	for _, l := range res.Lines {
		if l == "" {
			fmt.Println(dimStyle.Render("  ·"))
			continue
		}
		fmt.Println("  " + l)
	}
	for _, n := range res.Notes {
		action := "append"
		if n.Replaced {
			action = "replace"
		}
		fmt.Printf("%s %s %s\n",
			idStyle.Render(fmt.Sprintf("%d", n.Note)),
			fieldStyle.Render(cloze.Truncate(n.Preview, cloze.DefaultTruncate)),
			dimStyle.Render(action))
		fmt.Println("    " + maskStyle.Render(strings.ReplaceAll(n.Hint, hint.LineSeparator, " | ")))
	}
	fmt.Println()
}

func printNotes(nt core.NoteType, notes []core.Note) {
	fmt.Println(titleStyle.Render(nt.Name))
	for _, n := range notes {
		fmt.Println(idStyle.Render(fmt.Sprintf("%d", n.ID)))
		for i, f := range nt.Fields {
			if i >= len(n.Fields) {
				break
			}
			fmt.Printf("  %s %s\n",
				fieldStyle.Render(f.Name+":"),
				cloze.Truncate(cloze.Text(n.Fields[i]), 2*cloze.DefaultTruncate))
		}
	}
	fmt.Println()
}

func printSets(sets []group.Set) {
	for _, s := range sets {
		id := dimStyle.Render("new")
		if s.ID > 0 {
			id = okStyle.Render(fmt.Sprintf("%d", s.ID))
		}
		fmt.Printf("%s %s\n", titleStyle.Render("Group"), id)
		for i, n := range s.Notes {
			key := ""
			if i < len(s.Keys) {
				key = s.Keys[i]
			}
			fmt.Printf("  %s %s\n", idStyle.Render(fmt.Sprintf("%d", n)), fieldStyle.Render(key))
		}
	}
}
