package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal hooks, replaced in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// prompter asks for missing values on stdin.
type prompter struct {
	in io.Reader
	r  *bufio.Reader
	w  io.Writer
}

func newPrompter(in io.Reader, w io.Writer) *prompter {
	if in == nil {
		return nil
	}
	return &prompter{in: in, r: bufio.NewReader(in), w: w}
}

// ask returns value if non-empty, otherwise prompts with label.
func (p *prompter) ask(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if p == nil {
		return "", fmt.Errorf("%s required", strings.ToLower(label))
	}
	fmt.Fprintf(p.w, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return required(label, strings.TrimRight(line, "\r\n"))
}

// secret is ask without echo when stdin is a terminal. Piped input is read
// line by line like ask.
func (p *prompter) secret(label, value string) (string, error) {
	if value != "" || p == nil {
		return p.ask(label, value)
	}
	f, ok := p.in.(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		return p.ask(label, value)
	}
	fmt.Fprintf(p.w, "%s: ", label)
	b, err := readPassword(int(f.Fd()))
	fmt.Fprintln(p.w)
	if err != nil {
		return "", err
	}
	return required(label, string(b))
}

func required(label, s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%s required", strings.ToLower(label))
	}
	return s, nil
}
