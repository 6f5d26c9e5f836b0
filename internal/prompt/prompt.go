// Package prompt reads interactive answers from the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/BgWv3/procore-doc-downloader/internal/selection"
)

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the terminal file descriptor of in, or -1.
	fd int
}

// New creates a Prompter over arbitrary streams. Secrets are read as plain lines.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Stdio creates a Prompter on the process standard streams.
func Stdio() *Prompter {
	p := New(os.Stdin, os.Stdout)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		p.fd = fd
	}
	return p
}

// Line prints label and returns the trimmed answer. io.EOF is returned only
// when the input ended without an answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// Secret reads an answer without echo when in is a terminal.
func (p *Prompter) Secret(label string) (string, error) {
	if p.fd < 0 {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	data, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Confirm asks a y/n question. Only "y" and "yes" confirm.
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.Line(label + " (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// SelectOne asks for a one-based number in 1..n until a valid one is given
// and returns it zero-based.
func (p *Prompter) SelectOne(label string, n int) (int, error) {
	for {
		answer, err := p.Line(label)
		if err != nil {
			return 0, err
		}
		num, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(p.out, "Invalid input. Please enter a number.")
			continue
		}
		if num < 1 || num > n {
			fmt.Fprintln(p.out, "Invalid selection. Please try again.")
			continue
		}
		return num - 1, nil
	}
}

// SelectMany asks for a selection expression until a valid one is given.
func (p *Prompter) SelectMany(label string, n int) ([]int, error) {
	for {
		answer, err := p.Line(label)
		if err != nil {
			return nil, err
		}
		indices, err := selection.Parse(answer, n)
		if err != nil {
			fmt.Fprintf(p.out, "Invalid selection (%v). Please try again.\n", err)
			continue
		}
		return indices, nil
	}
}
