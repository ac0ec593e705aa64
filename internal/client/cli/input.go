package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Seams over x/term so tests never touch a real terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// prompter asks for values the user left off the command line. Secrets are
// read without echo from a terminal, or as a plain line when input is piped
// (echo "$PW" | credcore-cli login -u alice).
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter(in io.Reader, out io.Writer, fd int) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Line prints "label: " and returns the next trimmed input line. A final line
// without a newline is accepted.
func (p *prompter) Line(label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	return p.readLine()
}

// Secret reads a password. The caller wipes the returned slice.
func (p *prompter) Secret(label string) ([]byte, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return nil, err
	}

	if !isTerminal(p.fd) {
		s, err := p.readLine()
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}

	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no input: %w", err)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// fill prompts for *v when it is still empty.
func (p *prompter) fill(v *string, label string) error {
	if *v != "" {
		return nil
	}
	s, err := p.Line(label)
	if err != nil {
		return err
	}
	*v = s
	return nil
}
