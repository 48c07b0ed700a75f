package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/secure"
	"golang.org/x/term"
)

// prompter reads interactive input. Passwords are read with echo disabled
// when in is a terminal, and line by line otherwise.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *prompter) terminalFD() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	text, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", kuerrors.UsageError{Message: fmt.Sprintf("no input for %s", strings.ToLower(label))}
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func (p *prompter) password(label string) (*secure.Password, error) {
	if fd, ok := p.terminalFD(); ok {
		fmt.Fprintf(p.out, "%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return secure.NewPassword(raw), nil
	}

	text, err := p.line(label)
	if err != nil {
		return nil, err
	}
	return secure.NewPassword([]byte(text)), nil
}

// newPassword asks twice and requires both entries to match.
func (p *prompter) newPassword() (*secure.Password, error) {
	first, err := p.password("Password")
	if err != nil {
		return nil, err
	}
	if first.Empty() {
		return nil, kuerrors.UsageError{Message: "Password cannot be empty"}
	}

	second, err := p.password("Confirm password")
	if err != nil {
		first.Destroy()
		return nil, err
	}
	defer second.Destroy()

	same, err := first.Equal(second)
	if err != nil {
		first.Destroy()
		return nil, err
	}
	if !same {
		first.Destroy()
		return nil, kuerrors.UsageError{Message: "Passwords do not match", Suggestion: "Try again"}
	}
	return first, nil
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.line(question + " (y/N)")
	if err != nil {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
