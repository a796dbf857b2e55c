package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/clozekit/pkg/prompt"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	if svc := active; svc != nil {
		active = nil
		if cerr := svc.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error closing collection: %v\n", cerr)
		}
	}
	if errors.Is(err, prompt.ErrAborted) {
		fmt.Fprintln(os.Stderr, "Aborted.")
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
