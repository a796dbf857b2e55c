// Package prompt implements the confirmation gates placed before every
// destructive step.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrAborted is returned when the user declines to proceed.
var ErrAborted = errors.New("aborted by user")

// Confirmer asks whether to proceed. A nil error means go on.
type Confirmer interface {
	Confirm(question string) error
}

// LineReader reads one line of free text, used for interactive entry.
type LineReader interface {
	ReadLine(question string) (string, error)
}

// Console prompts on a terminal. Only "Y" proceeds; a lowercase "y" asks
// again for a capital one so a stray keystroke cannot confirm a write.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
}

// NewConsole creates a console prompt reading from in and writing to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Confirm implements Confirmer.
func (c *Console) Confirm(question string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prompt := question + " Y/n "
	for {
		answer, err := c.readLine(prompt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAborted, err)
		}
		switch answer {
		case "Y":
			return nil
		case "y":
			prompt = "Type a capital Y to confirm: "
		default:
			return ErrAborted
		}
	}
}

// ReadLine implements LineReader.
func (c *Console) ReadLine(question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLine(question)
}

func (c *Console) readLine(question string) (string, error) {
	fmt.Fprint(c.out, question)
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AutoYes confirms every question; used with --yes.
type AutoYes struct{}

func (AutoYes) Confirm(string) error { return nil }

// AutoNo declines every question; used for dry runs.
type AutoNo struct{}

func (AutoNo) Confirm(question string) error {
	return fmt.Errorf("%w: %s (dry run)", ErrAborted, question)
}
