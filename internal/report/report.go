// Package report renders simulation results for people and for programs.
//
// A Formatter writes either text blocks, styled with lipgloss when the output
// is a terminal, or JSON. It never runs simulations itself.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/nvandessel/hounds/internal/analytic"
	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/store"
	"github.com/nvandessel/hounds/internal/strategy"
	"github.com/nvandessel/hounds/internal/trial"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	colorHeading = lipgloss.Color("#D9822B")
	colorMuted   = lipgloss.Color("#7A7A7A")
	colorGood    = lipgloss.Color("#3FA34D")
	colorBad     = lipgloss.Color("#C0392B")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorHeading)
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	goodStyle    = lipgloss.NewStyle().Foreground(colorGood)
	badStyle     = lipgloss.NewStyle().Foreground(colorBad)
)

// Formatter writes reports to Out.
type Formatter struct {
	Out    io.Writer
	JSON   bool
	Styled bool

	// Printer formats counts with digit grouping.
	Printer *message.Printer
}

// New returns a Formatter for out. Styling is enabled when out is a
// terminal and JSON is off.
func New(out io.Writer, jsonOut bool) *Formatter {
	return &Formatter{
		Out:     out,
		JSON:    jsonOut,
		Styled:  !jsonOut && IsTerminal(out),
		Printer: message.NewPrinter(language.English),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Report is everything shown after a simulation run.
type Report struct {
	Stats *trial.Statistics `json:"statistics"`

	// Expected maps strategy name to its exact success probability. Nil
	// when the exact values were not computed.
	Expected map[string]float64 `json:"expected,omitempty"`

	// UnanimousExpected is the exact accuracy when every dog agrees. Zero
	// when not computed.
	UnanimousExpected float64 `json:"unanimous_expected,omitempty"`

	// Tolerance is the absolute tolerance for the verdict comparing the
	// first two strategies.
	Tolerance float64 `json:"tolerance"`

	// RunID is set when the run was recorded in history.
	RunID string `json:"run_id,omitempty"`
}

// Verdict compares the first two strategies of the run. It returns false
// when fewer than two strategies were run.
func (r Report) Verdict() (trial.Verdict, bool) {
	if r.Stats == nil || len(r.Stats.Results) < 2 {
		return trial.Verdict{}, false
	}
	return trial.Compare(r.Stats.Results[0], r.Stats.Results[1], r.Tolerance), true
}

func (f *Formatter) printer() *message.Printer {
	if f.Printer == nil {
		f.Printer = message.NewPrinter(language.English)
	}
	return f.Printer
}

func (f *Formatter) style(s lipgloss.Style, text string) string {
	if !f.Styled {
		return text
	}
	return s.Render(text)
}

func (f *Formatter) writeJSON(v any) error {
	enc := json.NewEncoder(f.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Results writes the outcome of a simulation run.
func (f *Formatter) Results(r Report) error {
	if r.Stats == nil {
		return fmt.Errorf("report has no statistics")
	}
	if f.JSON {
		out := struct {
			Report
			Verdict *trial.Verdict `json:"verdict,omitempty"`
		}{Report: r}
		if v, ok := r.Verdict(); ok {
			out.Verdict = &v
		}
		return f.writeJSON(out)
	}

	p := f.printer()
	s := r.Stats
	var b strings.Builder

	b.WriteString(f.style(titleStyle, "***** Results *****") + "\n")
	b.WriteString(p.Sprintf("The simulation has been run %d times for a situation with %d possible paths and %d dogs.\n",
		s.Trials, s.Config.NumPaths, s.Config.NumAgents))
	b.WriteString(f.style(mutedStyle, p.Sprintf("Dog probabilities: %s", formatProbabilities(s.Config.Probabilities))) + "\n\n")

	for _, res := range s.Results {
		title := res.Title
		if title == "" {
			title = res.Name
		}
		b.WriteString(f.style(headingStyle, "*** "+title+" ***") + "\n")
		if res.Description != "" {
			b.WriteString(res.Description + "\n")
		}
		b.WriteString(p.Sprintf("- Correct in %d runs out of %d attempts\n", res.Successes, res.Trials))
		b.WriteString(fmt.Sprintf("- Accuracy of %.3f (± %.3f)\n", res.Rate(), res.StdErr()))
		if want, ok := r.Expected[res.Name]; ok {
			b.WriteString(f.expectedLine(res.Rate(), want, res.Trials))
		}
		b.WriteString("\n")
	}

	if s.Unanimous > 0 {
		b.WriteString(p.Sprintf("When every dog agreed (%d of %d trials) they were right %.1f%% of the time",
			s.Unanimous, s.Trials, 100*s.UnanimousAccuracy()))
		if r.UnanimousExpected > 0 {
			b.WriteString(fmt.Sprintf(" (exact %.3f)", r.UnanimousExpected))
		}
		b.WriteString(".\n")
	}

	if v, ok := r.Verdict(); ok {
		a, bb := s.Results[0], s.Results[1]
		if v.Equal {
			b.WriteString(f.style(goodStyle, fmt.Sprintf("With a tolerance of %g, %s is equal to %s.", v.Tolerance, titleOf(a), titleOf(bb))) + "\n")
		} else {
			better, worse := a, bb
			if v.Better == bb.Name {
				better, worse = bb, a
			}
			b.WriteString(f.style(badStyle, fmt.Sprintf("With a tolerance of %g, %s is NOT equal to %s: %s performs better by %.3f.",
				v.Tolerance, titleOf(a), titleOf(bb), titleOf(better), better.Rate()-worse.Rate())) + "\n")
		}
	}

	footer := fmt.Sprintf("Seed %d, %d worker(s), %s.", s.Seed, s.Workers, s.Elapsed.Round(time.Millisecond))
	if r.RunID != "" {
		footer += " Recorded as " + r.RunID + "."
	}
	b.WriteString(f.style(mutedStyle, footer) + "\n")

	_, err := io.WriteString(f.Out, b.String())
	return err
}

func (f *Formatter) expectedLine(observed, expected float64, n int) string {
	line := fmt.Sprintf("- Expected %.3f", expected)
	if analytic.Within(observed, expected, n, constants.DefaultSigmas) {
		return line + f.style(mutedStyle, " (within sampling error)") + "\n"
	}
	return line + f.style(badStyle, " (outside sampling error)") + "\n"
}

// ExpectedRow is one strategy's exact success probability.
type ExpectedRow struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Probability float64 `json:"probability"`
}

// ExpectedReport is the output of the exact calculation.
type ExpectedReport struct {
	Config            trial.Config  `json:"config"`
	Rows              []ExpectedRow `json:"strategies"`
	UnanimousAccuracy float64       `json:"unanimous_accuracy"`
}

// Expected writes exact success probabilities.
func (f *Formatter) Expected(r ExpectedReport) error {
	if f.JSON {
		return f.writeJSON(r)
	}

	var b strings.Builder
	b.WriteString(f.style(titleStyle, "***** Exact success probabilities *****") + "\n")
	b.WriteString(fmt.Sprintf("%d possible paths, %d dogs, probabilities %s\n\n",
		r.Config.NumPaths, r.Config.NumAgents, formatProbabilities(r.Config.Probabilities)))
	for _, row := range r.Rows {
		b.WriteString(fmt.Sprintf("  %-30s %.4f\n", row.Title, row.Probability))
	}
	b.WriteString(fmt.Sprintf("\nWhen every dog agrees they are right with probability %.4f.\n", r.UnanimousAccuracy))

	_, err := io.WriteString(f.Out, b.String())
	return err
}

// Runs writes a history listing.
func (f *Formatter) Runs(runs []store.Run) error {
	if f.JSON {
		if runs == nil {
			runs = []store.Run{}
		}
		return f.writeJSON(map[string]any{"runs": runs, "count": len(runs)})
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(f.Out, "No recorded runs.")
		return err
	}

	p := f.printer()
	var b strings.Builder
	b.WriteString(f.style(headingStyle, fmt.Sprintf("%-8s  %-19s  %5s  %4s  %11s  %s", "ID", "WHEN", "PATHS", "DOGS", "TRIALS", "ACCURACY")) + "\n")
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rates := make([]string, len(run.Results))
		for i, res := range run.Results {
			rates[i] = fmt.Sprintf("%s=%.3f", res.Name, res.Rate())
		}
		b.WriteString(p.Sprintf("%-8s  %-19s  %5d  %4d  %11d  %s\n",
			id,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Config.NumPaths,
			run.Config.NumAgents,
			run.Trials,
			strings.Join(rates, " ")))
	}
	_, err := io.WriteString(f.Out, b.String())
	return err
}

// Strategies writes the registered strategies.
func (f *Formatter) Strategies(list []strategy.Strategy) error {
	if f.JSON {
		type entry struct {
			Name        string `json:"name"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Default     bool   `json:"default"`
		}
		out := make([]entry, len(list))
		for i, s := range list {
			out[i] = entry{s.Name(), s.Title(), s.Description(), isDefault(s)}
		}
		return f.writeJSON(out)
	}

	var b strings.Builder
	for _, s := range list {
		name := s.Name()
		if isDefault(s) {
			name += " (default)"
		}
		b.WriteString(f.style(headingStyle, name) + "\n")
		b.WriteString("  " + s.Title() + ": " + s.Description() + "\n")
	}
	_, err := io.WriteString(f.Out, b.String())
	return err
}

func isDefault(s strategy.Strategy) bool {
	for _, d := range strategy.Default() {
		if d.Name() == s.Name() {
			return true
		}
	}
	return false
}

func titleOf(r trial.StrategyResult) string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func formatProbabilities(probs []float64) string {
	parts := make([]string, len(probs))
	for i, p := range probs {
		parts[i] = fmt.Sprintf("%g", p)
	}
	return strings.Join(parts, ", ")
}
