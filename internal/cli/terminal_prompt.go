package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	if _, err := fmt.Fprint(out, label); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func resolveRequiredValue(reader *bufio.Reader, out io.Writer, value string, canPrompt bool, promptLabel string) (string, bool, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		return value, false, nil
	}
	if !canPrompt {
		return "", true, nil
	}
	v, err := prompt(reader, out, promptLabel)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(v), false, nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(reader *bufio.Reader, out io.Writer, label string) (bool, error) {
	v, err := prompt(reader, out, label+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readSecret reads a password. An empty file prompts on the terminal with
// echo disabled, "-" reads one line from stdin and anything else is a file
// path.
func (c *cli) readSecret(label, file string) (string, error) {
	switch file {
	case "":
		f, ok := c.stdin.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) {
			return "", invalidf("no terminal available for password prompt (use --password-file)")
		}
		fprintf(c.stderr, "%s", label)
		raw, err := term.ReadPassword(int(f.Fd()))
		fprintln(c.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	case "-":
		line, err := c.reader().ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	default:
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(raw), "\r\n"), nil
	}
}
