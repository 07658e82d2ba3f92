/*
Copyright © 2025 Alexey Zapparov <alexey@zapparov.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads missing credentials interactively. Reads block without a
// timeout; prompts go to stderr so stdout stays a single status line.
type prompter struct {
	in  *bufio.Reader
	fd  int
	out io.Writer
}

// newPrompter wraps the given reader and writer, defaulting to stdin and
// stderr. Echo suppression is only possible when the reader is a terminal.
func newPrompter(in io.Reader, out io.Writer) *prompter {
	if in == nil {
		in = os.Stdin
	}

	if out == nil {
		out = os.Stderr
	}

	fd := -1

	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}

	return &prompter{in: bufio.NewReader(in), fd: fd, out: out}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')

	// A final line without a trailing newline is still a valid answer.
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (p *prompter) readUsername() (string, error) {
	fmt.Fprint(p.out, "Enter Username: ")

	return p.readLine()
}

// readPassword suppresses echo when reading from a terminal and falls back
// to a plain read otherwise (pipes, tests).
func (p *prompter) readPassword() (string, error) {
	fmt.Fprint(p.out, "Enter Password: ")

	if p.fd >= 0 && term.IsTerminal(p.fd) {
		password, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)

		if err != nil {
			return "", err
		}

		return string(password), nil
	}

	return p.readLine()
}
