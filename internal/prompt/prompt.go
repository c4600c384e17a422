// Package prompt collects a hunting party configuration from a person.
//
// On a terminal the questions are asked with an interactive form; otherwise
// they are read line by line, re-asking after every invalid answer.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/nvandessel/hounds/internal/constants"
	"github.com/nvandessel/hounds/internal/trial"
)

// Questions asked by Collect.
const (
	Welcome     = "Welcome to Hunting Dog Simulator!"
	PathsPrompt = "You reach a fork in the road. How many paths forward are there? "
	DogsPrompt  = "How many dogs are in your hunting party? "
)

// ProbabilitiesPrompt returns the question asking for n probabilities.
func ProbabilitiesPrompt(n int) string {
	return fmt.Sprintf("Enter %d probabilities (one for each dog, each between 0 and 1, comma-separated): ", n)
}

// Prompter asks questions and returns validated answers. Implementations
// keep asking until the answer is valid or input ends.
type Prompter interface {
	// Int asks for an integer of at least min.
	Int(label string, min int) (int, error)

	// Probabilities asks for exactly n comma-separated probabilities.
	Probabilities(label string, n int) ([]float64, error)
}

// New returns a FormPrompter when in is a terminal and a LinePrompter
// otherwise.
func New(in *os.File, out io.Writer) Prompter {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return &FormPrompter{Input: in, Output: out}
	}
	return NewLinePrompter(in, out)
}

// Collect asks for the number of paths, the number of dogs, and each dog's
// probability, and returns the resulting configuration.
func Collect(p Prompter) (trial.Config, error) {
	paths, err := p.Int(PathsPrompt, constants.MinPaths)
	if err != nil {
		return trial.Config{}, fmt.Errorf("reading number of paths: %w", err)
	}
	dogs, err := p.Int(DogsPrompt, constants.MinAgents)
	if err != nil {
		return trial.Config{}, fmt.Errorf("reading number of dogs: %w", err)
	}
	probs, err := p.Probabilities(ProbabilitiesPrompt(dogs), dogs)
	if err != nil {
		return trial.Config{}, fmt.Errorf("reading probabilities: %w", err)
	}
	return trial.NewConfig(paths, probs...), nil
}

// ParseInt parses an integer answer of at least min.
func ParseInt(s string, min int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errNotInteger
	}
	if v < min {
		return 0, fmt.Errorf("must be at least %d", min)
	}
	return v, nil
}

var errNotInteger = errors.New("not an integer")

// ParseProbabilities parses exactly n comma-separated probabilities, each in
// (0, 1]. Spaces are ignored.
func ParseProbabilities(s string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("the number of probabilities must be greater than 0")
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("please enter exactly %d probabilities", n)
	}

	probs := make([]float64, n)
	for i, part := range parts {
		p, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		if !(p > 0 && p <= 1) {
			return nil, fmt.Errorf("each probability must be greater than 0 and at most 1, got %v", p)
		}
		probs[i] = p
	}
	return probs, nil
}

// LinePrompter reads answers line by line.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter reading from in and writing
// questions to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Int asks until it reads an integer of at least min. Returns io.EOF when
// input ends first.
func (l *LinePrompter) Int(label string, min int) (int, error) {
	for {
		line, err := l.ask(label)
		if err != nil {
			return 0, err
		}
		v, perr := ParseInt(line, min)
		if perr == nil {
			return v, nil
		}
		if errors.Is(perr, errNotInteger) {
			fmt.Fprintln(l.out, "Invalid input. Please enter a valid integer.")
		} else {
			fmt.Fprintf(l.out, "Invalid input: %v. Please try again.\n", perr)
		}
	}
}

// Probabilities asks until it reads n valid probabilities. Returns io.EOF
// when input ends first.
func (l *LinePrompter) Probabilities(label string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("the number of probabilities must be greater than 0")
	}
	for {
		line, err := l.ask(label)
		if err != nil {
			return nil, err
		}
		probs, perr := ParseProbabilities(line, n)
		if perr == nil {
			return probs, nil
		}
		fmt.Fprintf(l.out, "Invalid input: %v. Please try again.\n", perr)
	}
}

func (l *LinePrompter) ask(label string) (string, error) {
	fmt.Fprint(l.out, label)
	line, err := l.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// FormPrompter asks with interactive huh forms.
type FormPrompter struct {
	Input  io.Reader
	Output io.Writer
}

// Int asks for an integer of at least min.
func (f *FormPrompter) Int(label string, min int) (int, error) {
	var answer string
	err := f.run(huh.NewInput().
		Title(strings.TrimSpace(label)).
		Value(&answer).
		Validate(func(s string) error {
			_, err := ParseInt(s, min)
			if errors.Is(err, errNotInteger) {
				return errors.New("please enter a valid integer")
			}
			return err
		}))
	if err != nil {
		return 0, err
	}
	return ParseInt(answer, min)
}

// Probabilities asks for exactly n comma-separated probabilities.
func (f *FormPrompter) Probabilities(label string, n int) ([]float64, error) {
	var answer string
	err := f.run(huh.NewInput().
		Title(strings.TrimSpace(label)).
		Placeholder(placeholder(n)).
		Value(&answer).
		Validate(func(s string) error {
			_, err := ParseProbabilities(s, n)
			return err
		}))
	if err != nil {
		return nil, err
	}
	return ParseProbabilities(answer, n)
}

func (f *FormPrompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field))
	if f.Input != nil {
		form = form.WithInput(f.Input)
	}
	if f.Output != nil {
		form = form.WithOutput(f.Output)
	}
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return io.EOF
		}
		return err
	}
	return nil
}

func placeholder(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "0.7"
	}
	return strings.Join(parts, ", ")
}
