package tick

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/condatools/feedtick/internal/common/output"
)

// Report aggregates one run's outcomes for the end-of-run tally. Counts and
// failure collections cover every candidate; nothing is reported twice.
type Report struct {
	User        string
	DryRun      bool
	Checked     int
	UpToDate    int
	Independent int
	Patched     int
	Pulls       int

	// Skipped lists skip-listed feedstocks, never checked.
	Skipped []string

	// StatusFailures and PatchFailures group feedstocks by failure reason.
	StatusFailures map[string][]string
	PatchFailures  map[string][]string

	// The remaining collections are per-step casualties, in pipeline order.
	OpenPulls     []string
	ForkFailures  []string
	WriteFailures []string
	RegenFailures []string
	PullFailures  []string
}

func newReport(scan *ScanResult, dryRun bool) *Report {
	return &Report{
		User:           scan.User,
		DryRun:         dryRun,
		Checked:        scan.Checked,
		UpToDate:       scan.UpToDate,
		Skipped:        scan.Skipped,
		StatusFailures: scan.StatusFailures,
		PatchFailures:  make(map[string][]string),
	}
}

func (r *Report) patchFailure(reason, feedstock string) {
	r.PatchFailures[reason] = append(r.PatchFailures[reason], feedstock)
}

// Print writes the end-of-run tally to w: counts first, then every failure
// category that has entries.
func (r *Report) Print(w io.Writer) {
	if r.DryRun {
		fmt.Fprintln(w, output.Sprint(output.Warning, "Dry run: nothing was pushed."))
	}

	fmt.Fprintf(w, "%d total feedstocks checked.\n", r.Checked)
	fmt.Fprintf(w, "  %d were up-to-date.\n", r.UpToDate)
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "  %d were skip-listed.\n", len(r.Skipped))
	}
	fmt.Fprintf(w, "  %d were independent of other out-of-date feedstocks\n", r.Independent)
	if r.DryRun {
		fmt.Fprintf(w, "  %d had patches computed.\n", r.Patched)
	}
	fmt.Fprintf(w, "  %d had pulls submitted.\n", r.Pulls)
	fmt.Fprintln(w, "-----")

	printGrouped(w, "Couldn't check status", r.StatusFailures)
	printGrouped(w, "Couldn't create patch", r.PatchFailures)

	printFlat(w, "Already had an open pull", output.Skipped, r.OpenPulls)
	printFlat(w, "Couldn't fork", output.Error, r.ForkFailures)
	printFlat(w, "Couldn't apply patch", output.Error, r.WriteFailures)
	printFlat(w, "Couldn't regenerate", output.Warning, r.RegenFailures)
	printFlat(w, "Couldn't create pull", output.Error, r.PullFailures)
}

// Print writes the scan-only report to w: one line per out-of-date
// feedstock, the counts, then the status failures.
func (s *ScanResult) Print(w io.Writer) {
	for _, c := range s.Candidates {
		fmt.Fprintf(w, "%s %s %s\n", output.FormatStatus("needs-update"),
			output.FormatFeedstock(c.Feedstock), output.FormatBump(c.Version, c.Latest))
	}

	fmt.Fprintf(w, "%d total feedstocks checked.\n", s.Checked)
	fmt.Fprintf(w, "  %d were up-to-date.\n", s.UpToDate)
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "  %d were skip-listed.\n", len(s.Skipped))
	}
	fmt.Fprintf(w, "  %d need updates.\n", len(s.Candidates))

	printGrouped(w, "Couldn't check status", s.StatusFailures)
}

// printGrouped prints a failure map as heading, reasons in sorted order,
// then the affected feedstocks under each reason.
func printGrouped(w io.Writer, heading string, failures map[string][]string) {
	if len(failures) == 0 {
		return
	}

	fmt.Fprintf(w, "%s:\n", output.Sprint(output.Error, heading))

	reasons := make([]string, 0, len(failures))
	for reason := range failures {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	for _, reason := range reasons {
		names := failures[reason]
		fmt.Fprintf(w, "  %s (%d):\n", reason, len(names))
		for _, name := range names {
			fmt.Fprintf(w, "    %s\n", name)
		}
	}
}

func printFlat(w io.Writer, heading string, c *color.Color, names []string) {
	if len(names) == 0 {
		return
	}

	fmt.Fprintf(w, "%s (%d):\n", output.Sprint(c, heading), len(names))
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
