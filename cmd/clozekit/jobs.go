package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/internal/jobs"
)

var jobsForce bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the presets of the job file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f := loadJobs()
		section := func(name string, presets []string) {
			sort.Strings(presets)
			fmt.Println(titleStyle.Render(name))
			for _, p := range presets {
				fmt.Println("  " + p)
			}
		}
		section("convert", names(f.Convert))
		section("hint", names(f.Hint))
		section("group", names(f.Group))
		section("pinyin", names(f.Pinyin))
	},
}

var jobsInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the built-in presets to a job file to edit",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := jobFile()
		if len(args) == 1 {
			path = args[0]
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if jobsForce {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			fatal("Error creating job file", err)
		}
		if _, err := f.Write(jobs.DefaultsYAML()); err != nil {
			f.Close()
			fatal("Error writing job file", err)
		}
		if err := f.Close(); err != nil {
			fatal("Error writing job file", err)
		}
		fmt.Println(okStyle.Render("Job file written: " + path))
	},
}

func names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsInitCmd)
	jobsInitCmd.Flags().BoolVarP(&jobsForce, "force", "f", false, "Overwrite an existing file")
}
