package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"bis/internal/ast"
	"bis/internal/evaluator"
	"bis/internal/journal"
	bislog "bis/internal/log"
	"bis/internal/parser"
	"bis/internal/repl"
	"bis/internal/runner"
	"bis/internal/util"
)

var (
	// Version is stamped at build time with -ldflags.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// config file
	configPath string
	// logging
	logLevel string
	logFile  string
	// parser config
	debugAST string
	// evaluator config
	maxCallDepth int
	showSource   bool
	historyFile  string
	// journal
	journalDriver string
	journalDSN    string
	journalList   int
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configPath, "config", "", "Config file (.yaml, .yml or .toml); defaults to $"+util.ConfigEnv)
	// parser config
	flag.StringVar(&debugAST, "debug-ast", "", "Print the parsed AST to stderr: text or json")
	// evaluator config
	flag.IntVar(&maxCallDepth, "max-call-depth", 0, "Maximum nesting of function calls (0 or less disables the limit)")
	flag.BoolVar(&showSource, "show-source", false, "Print source lines under each diagnostic")
	flag.StringVar(&historyFile, "history", "", "REPL history file (relative paths are under $HOME)")
	// journal
	flag.StringVar(&journalDriver, "journal-driver", "", "Journal database driver: sqlite3, mysql or postgres")
	flag.StringVar(&journalDSN, "journal", "", "Journal data source name; enables recording runs")
	flag.IntVar(&journalList, "journal-list", 0, "Print the N most recent journal entries and exit")
	// log config
	flag.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if version {
		printVersion()
		return runner.ExitOK
	}

	if help {
		printHelp()
		return runner.ExitOK
	}

	config, err := loadConfiguration()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runner.ExitUsage
	}

	logger := bislog.New(config.LogLevel, config.LogFile)
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	if config.DebugAST != "" && config.DebugAST != "text" && config.DebugAST != "json" {
		fmt.Fprintf(os.Stderr, "unknown -debug-ast format %q; use text or json\n", config.DebugAST)
		return runner.ExitUsage
	}
	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: bis [options] [script]")
		return runner.ExitUsage
	}

	ctx := context.Background()

	opts := []runner.Option{
		runner.WithEvaluatorOptions(evaluator.WithMaxCallDepth(config.MaxCallDepth)),
	}

	if journalList > 0 && !config.Journal.Enabled() {
		fmt.Fprintln(os.Stderr, "-journal-list needs a journal; set -journal or journal.dsn")
		return runner.ExitUsage
	}
	if config.Journal.Enabled() {
		store, err := journal.Open(ctx, config.Journal.Driver, config.Journal.DSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return runner.ExitIOError
		}
		defer store.Close()

		if journalList > 0 {
			return listJournal(ctx, os.Stdout, store, journalList)
		}
		opts = append(opts, runner.WithRecorder(store))
	}

	r := runner.New(opts...)
	if config.DebugAST != "" {
		format := config.DebugAST
		r.OnParsed = func(stmts []ast.Statement) { dumpAST(os.Stderr, format, stmts) }
	}

	if flag.NArg() == 0 {
		session := &repl.Session{
			Runner:     r,
			Out:        os.Stdout,
			Err:        os.Stderr,
			ShowSource: config.ShowSource,
		}
		repl.Start(ctx, session, config.HistoryFile)
		return runner.ExitOK
	}

	// Optional profiling via env var: BIS_CPU_PROFILE=<path>
	if stop := startCPUProfile(os.Getenv("BIS_CPU_PROFILE")); stop != nil {
		defer stop()
	}

	res := r.RunFile(ctx, flag.Arg(0))
	if res.ExitCode == runner.ExitIOError && res.Err != nil {
		fmt.Fprintln(os.Stderr, res.Err)
	}
	runner.Report(os.Stderr, res, config.ShowSource)
	return res.ExitCode
}

// loadConfiguration starts from defaults, applies the config file and then
// every flag that was set explicitly.
func loadConfiguration() (util.Configuration, error) {
	config := util.DefaultConfiguration()
	config.Version = Version
	config.BuildDate = BuildDate
	config.Commit = Commit

	if path := util.ConfigPath(configPath); path != "" {
		if err := util.LoadFile(path, &config); err != nil {
			return config, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug-ast":
			config.DebugAST = debugAST
		case "log-level":
			config.LogLevel = logLevel
		case "log-file":
			config.LogFile = logFile
		case "max-call-depth":
			config.MaxCallDepth = maxCallDepth
		case "show-source":
			config.ShowSource = showSource
		case "history":
			config.HistoryFile = historyFile
		case "journal-driver":
			config.Journal.Driver = journalDriver
		case "journal":
			config.Journal.DSN = journalDSN
		}
	})
	return config, nil
}

func dumpAST(w io.Writer, format string, stmts []ast.Statement) {
	program := &ast.Program{Statements: stmts}
	if format == "json" {
		out, err := parser.RenderASTAsJSON(program)
		if err != nil {
			slog.Error("failed to render AST", slog.Any("error", err))
			return
		}
		fmt.Fprintln(w, out)
		return
	}
	fmt.Fprintln(w, parser.RenderASTAsText(program, 0))
}

func listJournal(ctx context.Context, w io.Writer, store *journal.Store, n int) int {
	entries, err := store.Recent(ctx, n)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runner.ExitIOError
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\texit=%d\t%s\t%s\n",
			e.ID, e.StartedAt.Format(time.RFC3339), shortDigest(e.Digest), e.ExitCode, e.Duration, e.Name)
		for _, d := range e.Diagnostics {
			fmt.Fprintf(w, "\t%s\n", d)
		}
	}
	return runner.ExitOK
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func startCPUProfile(path string) func() {
	if path == "" {
		return nil
	}
	profFile, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create CPU profile %q: %v\n", path, err)
		return nil
	}
	if err := pprof.StartCPUProfile(profFile); err != nil {
		fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
		_ = profFile.Close()
		return nil
	}
	return func() {
		pprof.StopCPUProfile()
		_ = profFile.Close()
	}
}

func printVersion() {
	fmt.Printf("bis version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: bis [options] [script]

Options:
  -config <path>          Load settings from a .yaml, .yml or .toml file. Default is $BIS_CONFIG.
  -debug-ast <format>     Print the parsed AST to stderr as text or json.
  -max-call-depth <n>     Maximum nesting of function calls. Default is 2048.
  -show-source            Print the offending source lines under each diagnostic.
  -history <path>         REPL history file. Default is ~/.bis_history.
  -journal <dsn>          Record every run in a database.
  -journal-driver <name>  Journal driver: sqlite3, mysql or postgres. Default is sqlite3.
  -journal-list <n>       Print the n most recent journal entries and exit.
  -log-level <level>      Set the log level: trace, debug, info, warn, error, none. Default is 'none'.
  -log-file <path>        Specify a log file to write logs. Default is stderr.
  -help                   Display this help information and exit.
  -version                Display version information and exit.

Details:
This is the Bis scripting language. Without a script it starts an interactive
session; type :quit to leave.

Exit codes:
  0   success
  64  usage error
  65  syntax or resolution error
  70  runtime error
  74  could not read the script or open the journal

Examples:
  bis                                  Start the REPL
  bis hello.bis                        Run a script
  bis -debug-ast=text hello.bis        Show the parse tree, then run
  bis -journal=runs.db hello.bis       Run and record the result in SQLite

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}
