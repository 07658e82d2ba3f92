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

// Package nagios implements the Nagios plugin exit code convention.
package nagios

// Exit codes defined by the Nagios plugin API.
const (
	StatusOK       = 0
	StatusWarning  = 1
	StatusCritical = 2
	StatusUnknown  = 3
)

var labels = map[int]string{
	StatusOK:       "OK",
	StatusWarning:  "WARNING",
	StatusCritical: "CRITICAL",
	StatusUnknown:  "UNKNOWN",
}

// Label returns the severity label for the given exit code. Codes outside
// the plugin convention are labeled UNKNOWN.
func Label(code int) string {
	if label, ok := labels[code]; ok {
		return label
	}
	return labels[StatusUnknown]
}

// Result is a single check outcome: the one-line status message for stdout
// and the process exit code for the scheduler.
type Result struct {
	Message string
	Code    int
}
