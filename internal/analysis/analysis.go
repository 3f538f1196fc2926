// Package analysis runs the whole pipeline for the functions of a source
// file: build the flow graph, select the paths for each criterion and
// project them onto test records.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
	"github.com/sut-sqrlab/more-coverage/internal/coverage"
	"github.com/sut-sqrlab/more-coverage/internal/paths"
	"github.com/sut-sqrlab/more-coverage/internal/syntax"
	"github.com/sut-sqrlab/more-coverage/internal/testgen"
)

var (
	// ErrNoFunctions means that there is nothing to analyze.
	ErrNoFunctions = errors.New("no functions to analyze")

	// ErrUnknownFunction means that a requested function is not defined
	// in the file.
	ErrUnknownFunction = errors.New("unknown function")
)

// Options controls an analysis.
type Options struct {
	Criteria []coverage.Criterion

	// Paths bounds the enumeration, see paths.Options.
	Paths paths.Options

	// Stubs controls the generated test stubs. If its CommentPrefix is
	// empty, the conventions of the file's language are used.
	Stubs testgen.Options

	// Concurrency is the number of functions that are analyzed at the
	// same time. Zero means one per CPU.
	Concurrency int

	Log zerolog.Logger
}

// Report is the outcome of analyzing a file.
type Report struct {
	RunID    uuid.UUID     `json:"run_id"`
	File     string        `json:"file"`
	Language string        `json:"language"`
	Package  string        `json:"package,omitempty"`
	Funcs    []*FuncReport `json:"functions"`
	Warnings []string      `json:"warnings,omitempty"`
}

// FuncReport is the outcome of analyzing a single function.
type FuncReport struct {
	Name        string             `json:"name"`
	Lines       syntax.Span        `json:"-"`
	Statements  int                `json:"statements"`
	Nodes       int                `json:"nodes"`
	Edges       int                `json:"edges"`
	Loops       int                `json:"loops"`
	Unreachable []int              `json:"unreachable,omitempty"`
	Criteria    []*CriterionReport `json:"criteria"`

	Func  *syntax.Func `json:"-"`
	Graph *cfg.Graph   `json:"-"`
}

// CriterionReport is the outcome of selecting the paths of a function
// for a single criterion.
type CriterionReport struct {
	Criterion  coverage.Criterion     `json:"criterion"`
	Complete   bool                   `json:"complete"`
	Truncated  bool                   `json:"truncated,omitempty"`
	Candidates int                    `json:"candidates"`
	Universe   []coverage.Requirement `json:"universe"`
	Uncovered  []coverage.Requirement `json:"uncovered,omitempty"`
	Records    []testgen.Record       `json:"tests"`

	Result *coverage.Result `json:"-"`
}

// Complete tells whether every criterion of every function is satisfied
// completely.
func (r *Report) Complete() bool {
	for _, fn := range r.Funcs {
		for _, crit := range fn.Criteria {
			if !crit.Complete || crit.Truncated {
				return false
			}
		}
	}
	return true
}

// Records returns the records of all functions and criteria, in report
// order.
func (r *Report) Records() []testgen.Record {
	var records []testgen.Record
	for _, fn := range r.Funcs {
		for _, crit := range fn.Criteria {
			records = append(records, crit.Records...)
		}
	}
	return records
}

// StubOptions returns the stub conventions for the given language.
func StubOptions(language string, stubs bool) testgen.Options {
	opts := testgen.DefaultOptions
	if language == "go" {
		opts = testgen.Options{CommentPrefix: "// ", Placeholder: "t.Skip(\"not implemented\")"}
	}
	opts.Stubs = stubs
	return opts
}

// Analyze analyzes the named functions of file, or all of them if no
// names are given. The functions are analyzed in parallel; the report
// lists them in the requested order, or in source order.
func Analyze(ctx context.Context, file *syntax.File, names []string, opts Options) (*Report, error) {
	funcs, err := selectFuncs(file, names)
	if err != nil {
		return nil, err
	}
	if len(opts.Criteria) == 0 {
		opts.Criteria = coverage.Criteria()
	}
	if opts.Stubs.CommentPrefix == "" {
		opts.Stubs = StubOptions(file.Language, opts.Stubs.Stubs)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	report := &Report{
		RunID:    uuid.New(),
		File:     file.Name,
		Language: file.Language,
		Package:  file.Package,
		Funcs:    make([]*FuncReport, len(funcs)),
		Warnings: file.Warnings,
	}
	log := opts.Log.With().Str("run", report.RunID.String()).Str("file", file.Name).Logger()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, fn := range funcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr, err := analyzeFunc(fn, opts, log)
			if err != nil {
				return fmt.Errorf("%s: %w", fn.Name, err)
			}
			report.Funcs[i] = fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Int("functions", len(funcs)).Bool("complete", report.Complete()).Msg("analyzed file")
	return report, nil
}

func selectFuncs(file *syntax.File, names []string) ([]*syntax.Func, error) {
	if len(names) == 0 {
		if len(file.Funcs) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoFunctions, file.Name)
		}
		return file.Funcs, nil
	}

	var funcs []*syntax.Func
	var unknown []string
	for _, name := range names {
		if fn := file.Lookup(name); fn != nil {
			funcs = append(funcs, fn)
		} else {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w in %s: %s", ErrUnknownFunction, file.Name, strings.Join(unknown, ", "))
	}
	return funcs, nil
}

func analyzeFunc(fn *syntax.Func, opts Options, log zerolog.Logger) (*FuncReport, error) {
	log = log.With().Str("func", fn.Name).Logger()

	g := cfg.NewBuilder(log).Build(fn)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("malformed flow graph: %w", err)
	}

	fr := &FuncReport{
		Name:        fn.Name,
		Lines:       fn.Pos,
		Statements:  syntax.Count(fn.Body),
		Nodes:       g.Len(),
		Edges:       len(g.Edges()),
		Loops:       g.Loops(),
		Unreachable: g.Unreachable,
		Func:        fn,
		Graph:       g,
	}
	if len(g.Unreachable) > 0 {
		log.Debug().Ints("lines", g.Unreachable).Msg("unreachable statements")
	}

	for _, c := range opts.Criteria {
		res := coverage.Select(g, c, coverage.Options{Paths: opts.Paths, Log: log})
		fr.Criteria = append(fr.Criteria, &CriterionReport{
			Criterion:  c,
			Complete:   res.Complete(),
			Truncated:  res.Truncated,
			Candidates: res.Candidates,
			Universe:   res.Universe,
			Uncovered:  res.Uncovered,
			Records:    testgen.Project(fn.Name, g, res, opts.Stubs),
			Result:     res,
		})
	}
	return fr, nil
}
