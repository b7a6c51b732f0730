package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the command's input.
type prompter struct {
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), raw: in, out: out}
}

// Line prompts for a single line. An empty answer is an error.
func (p *prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

// Password prompts without echo when the input is a terminal.
func (p *prompter) Password(label string) (string, error) {
	f, ok := p.raw.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return p.Line(label)
	}

	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("password is required")
	}
	return string(b), nil
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (p *prompter) Confirm(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, _ := p.in.ReadString('\n') //nolint:errcheck // EOF means no
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// readPasswordFile returns the first line of path.
func readPasswordFile(path string) (string, error) {
	//nolint:gosec // G304: path is supplied by the user on purpose.
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading password file: %w", err)
	}
	password, _, _ := strings.Cut(string(data), "\n")
	password = strings.TrimRight(password, "\r")
	if password == "" {
		return "", errors.New("password file is empty")
	}
	return password, nil
}
