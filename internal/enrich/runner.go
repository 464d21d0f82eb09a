package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"

	"github.com/klytics/tabkit/internal/ai"
	"github.com/klytics/tabkit/internal/cache"
	"github.com/klytics/tabkit/internal/export"
	"github.com/klytics/tabkit/internal/progress"
	"github.com/klytics/tabkit/internal/records"
	"github.com/klytics/tabkit/internal/table"
)

// ErrorAnswer is cached and written in place of an answer when the
// completion request fails, so a rerun does not retry known failures.
const ErrorAnswer = "Error"

// Options configures a Runner.
type Options struct {
	// CacheBackend selects the store for step caches ("json", "sqlite").
	// Empty infers it from each cache file's extension.
	CacheBackend string
	// DryRun answers from the caches only and never calls the completer.
	DryRun bool
	// Verbose logs every processed row.
	Verbose bool
	// Export configures .xlsx output.
	Export export.Options
}

// Summary describes a finished run.
type Summary struct {
	Job       string `json:"job"`
	Output    string `json:"output"`
	Rows      int    `json:"rows"`
	APICalls  int    `json:"apiCalls"`
	CacheHits int    `json:"cacheHits"`
	Skipped   int    `json:"skipped"`
	Missing   int    `json:"missing,omitempty"`
	Errors    int    `json:"errors"`
	Duration  string `json:"duration"`
}

// Runner executes enrichment jobs.
type Runner struct {
	Logger *log.Logger
	// Progress reports each processed row. Nil uses a stderr bar.
	Progress *progress.Bar

	completer ai.Completer
	opts      Options
}

// NewRunner creates a runner that sends cache misses to c. c may be nil in
// dry-run mode.
func NewRunner(c ai.Completer, opts Options) *Runner {
	return &Runner{
		Logger:    log.New(os.Stderr, "[enrich] ", log.LstdFlags),
		completer: c,
		opts:      opts,
	}
}

// run holds the state of one job execution.
type run struct {
	*Runner
	job     *Job
	caches  map[string]cache.Cache
	stores  []cache.Cache
	summary *Summary
}

// Run processes every input row through the job's steps and writes the
// output file.
func (r *Runner) Run(ctx context.Context, job *Job) (*Summary, error) {
	if r.completer == nil && !r.opts.DryRun {
		return nil, fmt.Errorf("no completion provider configured — set 'provider' in the config or use --dry-run")
	}
	if err := job.validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	rows, inputColumns, err := readInput(job)
	if err != nil {
		return nil, err
	}

	passthrough := job.Columns
	if len(passthrough) == 0 {
		passthrough = inputColumns
	}
	if err := checkColumns(job, passthrough, inputColumns); err != nil {
		return nil, err
	}

	x := &run{
		Runner:  r,
		job:     job,
		caches:  make(map[string]cache.Cache),
		summary: &Summary{Job: job.Name, Output: job.Output},
	}
	defer x.closeCaches()
	if err := x.openCaches(); err != nil {
		return nil, err
	}

	fields := slices.Clone(passthrough)
	for i := range job.Steps {
		fields = append(fields, job.Steps[i].OutputColumns()...)
	}

	bar := r.Progress
	if bar == nil {
		bar = progress.New(job.Name, len(rows))
	}

	out := make([]*table.Record, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := x.processRow(ctx, i, row, passthrough)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		x.summary.Rows++
		bar.Increment(rowLabel(job, row))
	}

	if err := writeOutput(job, fields, out, r.opts.Export); err != nil {
		return nil, err
	}

	x.summary.Duration = time.Since(start).Round(time.Millisecond).String()
	bar.Finish(fmt.Sprintf("%s: %d rows, %d API calls, %d cache hits", job.Name, x.summary.Rows, x.summary.APICalls, x.summary.CacheHits))
	return x.summary, nil
}

func readInput(job *Job) ([]*table.Record, []string, error) {
	reader, closer, err := records.Open(job.Input, job.InputDelimiter(), job.TextColumn)
	if err != nil {
		return nil, nil, err
	}
	defer closer.Close()

	rows, err := records.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read %s: %w", job.Input, err)
	}

	var columns []string
	switch r := reader.(type) {
	case *records.CSVReader:
		columns = r.Header()
	default:
		column := job.TextColumn
		if column == "" {
			column = "value"
		}
		columns = []string{column}
	}
	return rows, columns, nil
}

func checkColumns(job *Job, passthrough, inputColumns []string) error {
	for _, c := range passthrough {
		if !slices.Contains(inputColumns, c) {
			return fmt.Errorf("column %q not found in %s — available columns: %s", c, job.Input, strings.Join(inputColumns, ", "))
		}
	}
	for _, step := range job.Steps {
		for _, c := range step.OutputColumns() {
			if slices.Contains(passthrough, c) {
				return fmt.Errorf("step %q writes column %q, which is also an input column — rename the step's column or list the input 'columns' to keep", step.ID, c)
			}
		}
	}
	for i, step := range job.Steps {
		earlier := slices.ContainsFunc(job.Steps[:i], func(s Step) bool { return s.ID == step.From })
		if !earlier && !slices.Contains(inputColumns, step.From) {
			return fmt.Errorf("step %q reads %q, which is neither an input column nor an earlier step — available columns: %s",
				step.ID, step.From, strings.Join(inputColumns, ", "))
		}
	}
	return nil
}

func (x *run) openCaches() error {
	for _, step := range x.job.Steps {
		if step.Cache == "" {
			c := cache.NewMemory()
			x.stores = append(x.stores, c)
			x.caches[step.ID] = c
			continue
		}
		if existing, ok := x.cacheByPath(step.Cache); ok {
			x.caches[step.ID] = existing
			continue
		}
		c, err := cache.Open(x.opts.CacheBackend, step.Cache)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
		x.stores = append(x.stores, c)
		x.caches[step.ID] = c
	}
	return nil
}

// cacheByPath lets steps that name the same file share one store.
func (x *run) cacheByPath(path string) (cache.Cache, bool) {
	for _, step := range x.job.Steps {
		if c, ok := x.caches[step.ID]; ok && step.Cache != "" && filepath.Clean(step.Cache) == filepath.Clean(path) {
			return c, true
		}
	}
	return nil, false
}

func (x *run) closeCaches() {
	for _, c := range x.stores {
		if err := c.Close(); err != nil {
			x.Logger.Printf("could not close cache: %v", err)
		}
	}
}

func (x *run) processRow(ctx context.Context, index int, row *table.Record, passthrough []string) (*table.Record, error) {
	out := table.NewRecord()
	for _, c := range passthrough {
		v, _ := row.Get(c)
		out.Set(c, v)
	}

	env := row.Map()
	results := make(map[string]string, len(x.job.Steps))

	for i := range x.job.Steps {
		step := &x.job.Steps[i]

		value, ok := results[step.From]
		if !ok {
			v, _ := row.Get(step.From)
			value = records.Format(v)
		}
		value = strings.TrimSpace(value)

		if x.opts.Verbose && i == 0 {
			x.Logger.Printf("processing #%d: %s", index+1, value)
		}

		active, err := x.shouldRun(step, env)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", index+1, err)
		}
		if !active {
			x.summary.Skipped++
			results[step.ID] = ""
			env[step.ID] = ""
			setColumns(out, step, "")
			continue
		}

		answer, err := x.answer(ctx, step, value, env, results)
		if err != nil {
			return nil, fmt.Errorf("row %d step %q: %w", index+1, step.ID, err)
		}
		results[step.ID] = answer
		env[step.ID] = answer
		setColumns(out, step, answer)
	}
	return out, nil
}

func (x *run) shouldRun(step *Step, env map[string]any) (bool, error) {
	if step.when == nil {
		return true, nil
	}
	result, err := expr.Run(step.when, env)
	if err != nil {
		return false, fmt.Errorf("step %q: evaluate condition %q: %w", step.ID, step.When, err)
	}
	if result == nil {
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("step %q: condition %q evaluated to %T, expected bool", step.ID, step.When, result)
	}
	return b, nil
}

type promptData struct {
	Value string
	Row   map[string]any
	Steps map[string]string
}

// answer returns the cached answer for value or asks the completer.
func (x *run) answer(ctx context.Context, step *Step, value string, row map[string]any, results map[string]string) (string, error) {
	c := x.caches[step.ID]
	if cached, ok := c.Get(value); ok {
		x.summary.CacheHits++
		return cached, nil
	}
	if x.opts.DryRun {
		x.summary.Missing++
		return "", nil
	}

	var prompt strings.Builder
	if err := step.prompt.Execute(&prompt, promptData{Value: value, Row: row, Steps: results}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	x.summary.APICalls++
	text, err := x.completer.Complete(ctx, prompt.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		x.Logger.Printf("error with %s: %v", value, err)
		x.summary.Errors++
		text = ErrorAnswer
	} else {
		text = strings.TrimSpace(text)
	}

	if err := c.Put(value, text); err != nil {
		return "", err
	}

	if err := sleep(ctx, x.job.Delay); err != nil {
		return "", err
	}
	return text, nil
}

func setColumns(out *table.Record, step *Step, answer string) {
	if step.Newline != "" {
		answer = strings.NewReplacer("\r\n", step.Newline, "\n", step.Newline, "\r", step.Newline).Replace(answer)
	}
	if step.Split == "" {
		out.Set(step.OutputColumns()[0], answer)
		return
	}
	for i, part := range splitAnswer(answer, step.Split, len(step.Columns)) {
		out.Set(step.Columns[i], part)
	}
}

// splitAnswer splits answer on sep into exactly n trimmed parts. An answer
// without the separator yields n empty parts; extra parts are dropped.
func splitAnswer(answer, sep string, n int) []string {
	out := make([]string, n)
	if !strings.Contains(answer, sep) {
		return out
	}
	parts := strings.Split(answer, sep)
	for i := 0; i < n && i < len(parts); i++ {
		out[i] = strings.TrimSpace(parts[i])
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rowLabel is the input value the first step reads.
func rowLabel(job *Job, row *table.Record) string {
	v, _ := row.Get(job.Steps[0].From)
	return strings.TrimSpace(records.Format(v))
}

func writeOutput(job *Job, fields []string, rows []*table.Record, opts export.Options) error {
	if dir := filepath.Dir(job.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create output directory: %w", err)
		}
	}

	if strings.EqualFold(filepath.Ext(job.Output), ".xlsx") {
		for _, rec := range rows {
			for _, f := range fields {
				if _, ok := rec.Get(f); !ok {
					rec.Set(f, nil)
				}
			}
		}
		_, err := export.File(table.FromRecords(rows), job.Output, opts)
		return err
	}

	f, err := os.Create(job.Output)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", job.Output, err)
	}
	if err := writeCSV(f, fields, rows, job.OutputDelimiterRune()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, fields []string, rows []*table.Record, delimiter rune) error {
	cw, err := records.NewCSVWriter(w, fields, delimiter)
	if err != nil {
		return err
	}
	for _, rec := range rows {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return cw.Flush()
}
