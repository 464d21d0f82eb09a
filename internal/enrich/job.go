// Package enrich runs row-by-row enrichment jobs: each input row is passed
// through a chain of cached completion prompts and the answers are written
// as new columns.
package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Job is an enrichment job definition.
type Job struct {
	Name            string        `yaml:"name" json:"name"`
	Input           string        `yaml:"input" json:"input"`
	Delimiter       string        `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	TextColumn      string        `yaml:"text_column,omitempty" json:"textColumn,omitempty"`
	Output          string        `yaml:"output" json:"output"`
	OutputDelimiter string        `yaml:"output_delimiter,omitempty" json:"outputDelimiter,omitempty"`
	Columns         []string      `yaml:"columns,omitempty" json:"columns,omitempty"`
	Delay           time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	Steps           []Step        `yaml:"steps" json:"steps"`
}

// Step is one prompt applied to every row.
type Step struct {
	ID string `yaml:"id" json:"id"`
	// From names the input column or earlier step whose value is sent.
	From   string `yaml:"from" json:"from"`
	Prompt string `yaml:"prompt" json:"prompt"`
	Cache  string `yaml:"cache,omitempty" json:"cache,omitempty"`
	// Column receives the answer. Defaults to the step ID.
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
	When   string `yaml:"when,omitempty" json:"when,omitempty"`
	// Split divides the answer into Columns.
	Split   string   `yaml:"split,omitempty" json:"split,omitempty"`
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Newline string   `yaml:"newline,omitempty" json:"newline,omitempty"`

	prompt *template.Template
	when   *vm.Program
}

// OutputColumns lists the columns this step writes.
func (s *Step) OutputColumns() []string {
	if s.Split != "" {
		return s.Columns
	}
	if s.Column != "" {
		return []string{s.Column}
	}
	return []string{s.ID}
}

// LoadJob reads and parses a job file. Relative input, output and cache
// paths are resolved against the job file's directory.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job file not found: %s — check that the path is correct", path)
		}
		return nil, fmt.Errorf("could not read job file %s: %w", path, err)
	}

	job, err := ParseJob(data)
	if err != nil {
		return nil, err
	}
	if job.Name == "" {
		job.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	job.resolvePaths(filepath.Dir(path))
	return job, nil
}

// ParseJob parses and validates a job from YAML bytes.
func ParseJob(data []byte) (*Job, error) {
	var j Job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("invalid job YAML: %w", err)
	}
	if err := j.validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

func (j *Job) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	j.Input = abs(j.Input)
	j.Output = abs(j.Output)
	for i := range j.Steps {
		j.Steps[i].Cache = abs(j.Steps[i].Cache)
	}
}

// InputDelimiter returns the input CSV delimiter. Zero means ','.
func (j *Job) InputDelimiter() rune { return delimiterRune(j.Delimiter) }

// OutputDelimiterRune returns the output CSV delimiter, falling back to the
// input delimiter.
func (j *Job) OutputDelimiterRune() rune {
	if j.OutputDelimiter != "" {
		return delimiterRune(j.OutputDelimiter)
	}
	return j.InputDelimiter()
}

func delimiterRune(s string) rune {
	if s == "" {
		return 0
	}
	if s == `\t` {
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func validDelimiter(s string) bool {
	return s == "" || s == `\t` || utf8.RuneCountInString(s) == 1 && s != "\n" && s != "\r" && s != `"`
}

func (j *Job) validate() error {
	if j.Input == "" {
		return fmt.Errorf("job is missing an 'input' field")
	}
	if j.Output == "" {
		return fmt.Errorf("job is missing an 'output' field")
	}
	switch strings.ToLower(filepath.Ext(j.Output)) {
	case ".csv", ".xlsx":
	default:
		return fmt.Errorf("unsupported output %s — expected a .csv or .xlsx file", j.Output)
	}
	if !validDelimiter(j.Delimiter) {
		return fmt.Errorf("invalid delimiter %q — expected a single character", j.Delimiter)
	}
	if !validDelimiter(j.OutputDelimiter) {
		return fmt.Errorf("invalid output_delimiter %q — expected a single character", j.OutputDelimiter)
	}
	if j.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", j.Delay)
	}
	if len(j.Steps) == 0 {
		return fmt.Errorf("job %q has no steps defined", j.Name)
	}

	seen := make(map[string]bool)
	outputs := make(map[string]string)
	for _, c := range j.Columns {
		outputs[c] = "columns"
	}

	for i := range j.Steps {
		step := &j.Steps[i]
		if step.ID == "" {
			return fmt.Errorf("step %d is missing an 'id' field", i+1)
		}
		if seen[step.ID] {
			return fmt.Errorf("duplicate step ID %q — each step must have a unique ID", step.ID)
		}
		seen[step.ID] = true

		if step.From == "" {
			return fmt.Errorf("step %q is missing a 'from' field", step.ID)
		}
		if step.From == step.ID {
			return fmt.Errorf("step %q cannot read its own result", step.ID)
		}
		if step.Prompt == "" {
			return fmt.Errorf("step %q is missing a 'prompt' field", step.ID)
		}
		if step.Split != "" && len(step.Columns) == 0 {
			return fmt.Errorf("step %q splits its answer but declares no 'columns'", step.ID)
		}
		if step.Split == "" && len(step.Columns) > 0 {
			return fmt.Errorf("step %q declares 'columns' without a 'split' separator — use 'column' for a single column", step.ID)
		}

		for _, c := range step.OutputColumns() {
			if owner, dup := outputs[c]; dup {
				return fmt.Errorf("step %q writes column %q, already written by %s", step.ID, c, owner)
			}
			outputs[c] = fmt.Sprintf("step %q", step.ID)
		}

		tmpl, err := template.New(step.ID).Option("missingkey=zero").Parse(step.Prompt)
		if err != nil {
			return fmt.Errorf("step %q has an invalid prompt template: %w", step.ID, err)
		}
		step.prompt = tmpl

		if step.When != "" {
			program, err := expr.Compile(step.When, expr.AllowUndefinedVariables())
			if err != nil {
				return fmt.Errorf("step %q has an invalid 'when' condition %q: %w", step.ID, step.When, err)
			}
			step.when = program
		}
	}

	return nil
}
