package admin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for golang.org/x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// readSecret prompts on w and reads a password without echo when r is a
// terminal. Otherwise the first line of r is used, so passwords can be
// piped in. With confirm set, a terminal user has to type it twice.
func readSecret(r io.Reader, w io.Writer, confirm bool) (string, error) {
	if f, ok := r.(*os.File); ok && isTerminal(int(f.Fd())) {
		pw, err := promptPassword(f, w, "Password: ")
		if err != nil {
			return "", err
		}
		if confirm {
			again, err := promptPassword(f, w, "Repeat password: ")
			if err != nil {
				return "", err
			}
			if again != pw {
				return "", ErrPasswordMismatch
			}
		}
		return pw, nil
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("missing password from stdin")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptPassword(f *os.File, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
