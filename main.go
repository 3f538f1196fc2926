package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/sut-sqrlab/more-coverage/internal/analysis"
	"github.com/sut-sqrlab/more-coverage/internal/config"
	"github.com/sut-sqrlab/more-coverage/internal/frontend"
	"github.com/sut-sqrlab/more-coverage/internal/render"
	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

const version = "v0.3.0"

// exitIncomplete is the exit code for --strict when some coverage
// requirement cannot be satisfied.
const exitIncomplete = 3

var exit = os.Exit

func main() {
	exit(morecovMain(os.Stdout, os.Stderr, os.Args...))
}

func morecovMain(stdout, stderr io.Writer, args ...string) int {
	m := newMorecov(stdout, stderr)
	m.parseCommandLine(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report := m.analyze(ctx)
	m.printOutput(report)
	return m.exitCode
}

type morecov struct {
	cfg      config.Config
	listAll  bool
	language string

	file  string
	funcs []string

	exitCode int

	logger
}

func newMorecov(stdout io.Writer, stderr io.Writer) *morecov {
	var m morecov
	m.logger.init(stdout, stderr)
	return &m
}

func (m *morecov) parseCommandLine(argv []string) {
	args := m.parseOptions(argv)
	m.parseArgs(args)
}

func (m *morecov) parseOptions(argv []string) []string {
	var help, ver, verbose bool
	var configFile string
	flagged := config.Default()
	var criteria []string

	flags := pflag.NewFlagSet(filepath.Base(argv[0]), pflag.ContinueOnError)
	flags.SortFlags = false
	flags.BoolVarP(&help, "help", "h", false,
		"print the available command line options")
	flags.StringVar(&configFile, "config", "",
		"load the settings from this YAML `file`")
	flags.VarP(newSliceFlag(&criteria), "criterion", "c",
		"select paths for this `criterion` (node, edge, edge-pair, prime-path), repeatable")
	flags.IntVar(&flagged.MaxPaths, "max-paths", flagged.MaxPaths,
		"stop enumerating after this many paths, -1 for no limit")
	flags.IntVar(&flagged.MaxExpansions, "max-expansions", flagged.MaxExpansions,
		"stop enumerating after this many path extensions, -1 for no limit")
	flags.StringVar(&flagged.BackEdges, "back-edges", flagged.BackEdges,
		"how to detect loop-closing edges, tagged or positional")
	flags.BoolVar(&flagged.Stubs, "stubs", flagged.Stubs,
		"generate a test stub for each path")
	flags.StringVarP(&flagged.Format, "format", "f", flagged.Format,
		"the output `format`: text, json, dot, script or tree")
	flags.StringVarP(&flagged.Output, "output", "o", "",
		"write the output to this `file` instead of stdout")
	flags.IntVarP(&flagged.Concurrency, "concurrency", "j", 0,
		"analyze this many functions in parallel, 0 for one per CPU")
	flags.BoolVar(&flagged.Strict, "strict", false,
		"exit with status 3 if some requirement cannot be covered")
	flags.StringVar(&m.language, "language", "",
		"the source `language` (go, python), instead of guessing it from the file name")
	flags.BoolVar(&m.listAll, "list-all", false,
		"list each selected path, not only the uncovered requirements")
	flags.StringVar(&flagged.LogLevel, "log-level", flagged.LogLevel,
		"the minimum `level` of log messages")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"show progress messages")
	flags.BoolVar(&ver, "version", false,
		"print the morecov version")

	usageOut := m.stderr
	flags.SetOutput(m.stderr)
	flags.Usage = func() {
		_, _ = fmt.Fprintf(usageOut,
			"usage: %s [options] file [function...]\n", flags.Name())
		flags.PrintDefaults()
		m.exitCode = 2
	}

	err := flags.Parse(argv[1:])
	if err != nil {
		m.errf("%s", err)
		flags.Usage()
		exit(m.exitCode)
	}

	if help {
		usageOut = m.stdout
		flags.SetOutput(m.stdout)
		flags.Usage()
		exit(0)
	}

	if ver {
		m.outf("%s", version)
		exit(0)
	}

	cfg, err := config.Load(configFile)
	m.check(err)

	changed := func(name string) bool { return flags.Changed(name) }
	if changed("criterion") {
		cfg.Criteria = criteria
	}
	if changed("max-paths") {
		cfg.MaxPaths = flagged.MaxPaths
	}
	if changed("max-expansions") {
		cfg.MaxExpansions = flagged.MaxExpansions
	}
	if changed("back-edges") {
		cfg.BackEdges = flagged.BackEdges
	}
	if changed("stubs") {
		cfg.Stubs = flagged.Stubs
	}
	if changed("format") {
		cfg.Format = flagged.Format
	}
	if changed("output") {
		cfg.Output = flagged.Output
	}
	if changed("concurrency") {
		cfg.Concurrency = flagged.Concurrency
	}
	if changed("strict") {
		cfg.Strict = flagged.Strict
	}
	if changed("log-level") {
		cfg.LogLevel = flagged.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		m.errf("%s", err)
		exit(2)
	}
	m.cfg = cfg

	level := cfg.Level()
	if verbose && level > zerolog.InfoLevel {
		level = zerolog.InfoLevel
	}
	m.setLevel(level)

	return flags.Args()
}

func (m *morecov) parseArgs(args []string) {
	if len(args) == 0 {
		m.errf("morecov: missing source file")
		m.errf("usage: morecov [options] file [function...]")
		exit(2)
	}
	m.file = args[0]
	m.funcs = args[1:]
}

func (m *morecov) analyze(ctx context.Context) *analysis.Report {
	file := m.parse(ctx)

	criteria, err := m.cfg.ParsedCriteria()
	m.check(err)

	report, err := analysis.Analyze(ctx, file, m.funcs, analysis.Options{
		Criteria:    criteria,
		Paths:       m.cfg.PathOptions(),
		Stubs:       analysis.StubOptions(file.Language, m.cfg.Stubs),
		Concurrency: m.cfg.Concurrency,
		Log:         m.log,
	})
	m.check(err)

	if m.cfg.Format != "text" {
		m.logDiagnostics(report)
	}
	return report
}

// logDiagnostics logs what the text output would report besides the
// coverage, since the other formats are meant for further processing.
func (m *morecov) logDiagnostics(report *analysis.Report) {
	for _, warning := range report.Warnings {
		m.log.Warn().Msg(warning)
	}
	for _, fn := range report.Funcs {
		if len(fn.Unreachable) > 0 {
			m.log.Warn().
				Str("func", fn.Name).
				Ints("lines", fn.Unreachable).
				Msg("unreachable statements")
		}
	}
}

func (m *morecov) parse(ctx context.Context) *syntax.File {
	var fe frontend.Frontend
	var err error
	if m.language != "" {
		fe, err = frontend.ForLanguage(m.language)
	} else {
		fe, err = frontend.ForFile(m.file)
	}
	m.check(err)

	src, err := os.ReadFile(m.file)
	m.check(err)

	file, err := fe.Parse(ctx, m.file, src)
	m.check(err)
	m.verbosef("Read %d functions from %s", len(file.Funcs), m.file)
	return file
}

func (m *morecov) printOutput(report *analysis.Report) {
	err := writeOutput(m.cfg.Output, m.stdout, func(w io.Writer) error {
		return render.Write(w, m.cfg.Format, report, render.Options{ListAll: m.listAll})
	})
	m.check(err)
	if m.cfg.Output != "" {
		m.verbosef("Wrote the %s output to %s", m.cfg.Format, m.cfg.Output)
	}

	if m.cfg.Strict && !report.Complete() {
		m.errf("morecov: some coverage requirements cannot be satisfied")
		m.exitCode = exitIncomplete
	}
}

// logger provides basic logging and error checking.
//
// The results go to stdout, errors to stderr. Diagnostics from the
// analysis are structured log messages on stderr.
type logger struct {
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

func (l *logger) init(stdout io.Writer, stderr io.Writer) {
	l.stdout = stdout
	l.stderr = stderr
	l.setLevel(zerolog.WarnLevel)
}

func (l *logger) setLevel(level zerolog.Level) {
	out := l.stderr
	l.log = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.NoColor = !isTerminal(out)
		w.PartsExclude = []string{zerolog.TimestampFieldName}
	})).Level(level)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (l *logger) check(err error) {
	if err != nil {
		l.errf("%s", err)
		exit(1)
	}
}

func (l *logger) outf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(l.stdout, format+"\n", args...)
}

func (l *logger) errf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(l.stderr, format+"\n", args...)
}

func (l *logger) verbosef(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}
