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

// Package check reduces a Cloudera Manager service health report to a
// Nagios result.
package check

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ixti/check-cm-service/internal/cm"
	"github.com/ixti/check-cm-service/internal/nagios"
)

// Health summary values reported by Cloudera Manager.
const (
	SummaryHistoryNotAvailable = "HISTORY_NOT_AVAILABLE"
	SummaryNotAvailable        = "NOT_AVAILABLE"
	SummaryDisabled            = "DISABLED"
	SummaryGood                = "GOOD"
	SummaryConcerning          = "CONCERNING"
	SummaryBad                 = "BAD"
)

var summaryCodes = map[string]int{
	SummaryHistoryNotAvailable: nagios.StatusUnknown,
	SummaryNotAvailable:        nagios.StatusUnknown,
	SummaryDisabled:            nagios.StatusUnknown,
	SummaryGood:                nagios.StatusOK,
	SummaryConcerning:          nagios.StatusWarning,
	SummaryBad:                 nagios.StatusCritical,
}

func summaryCode(summary string) int {
	code, ok := summaryCodes[summary]

	if !ok {
		slog.Warn("unrecognized health summary, reporting UNKNOWN", "summary", summary)
		return nagios.StatusUnknown
	}

	return code
}

// healthy reports whether a summary value needs no operator attention.
// DISABLED counts as healthy for the purpose of listing failing checks.
func healthy(summary string) bool {
	return summary == SummaryGood || summary == SummaryDisabled
}

// Evaluate reduces the service's health report to a status line and exit
// code.
//
// CONCERNING is reported with the OK label and exit code. Existing check
// definitions depend on this, so it is pinned by a regression test; do not
// change it without coordinating with the monitoring configuration.
func Evaluate(service *cm.Service) nagios.Result {
	summary := service.HealthSummary
	code := summaryCode(summary)

	if summary == SummaryConcerning {
		code = summaryCodes[SummaryGood]
	}

	var status strings.Builder

	fmt.Fprintf(&status, "%s: %s is %s", nagios.Label(code), service.Name, summary)

	if !healthy(summary) {
		if failing := failingChecks(service.HealthChecks); len(failing) > 0 {
			status.WriteString(" - ")

			for _, chk := range failing {
				fmt.Fprintf(&status, "%s (%s) ", chk.Name, chk.Summary)
			}
		}
	}

	return nagios.Result{Message: status.String(), Code: code}
}

// failingChecks filters the individual health checks down to the ones worth
// surfacing, preserving server order.
func failingChecks(checks []cm.HealthCheck) []cm.HealthCheck {
	var failing []cm.HealthCheck

	for _, chk := range checks {
		if !healthy(chk.Summary) {
			failing = append(failing, chk)
		}
	}

	return failing
}
