// Command fastlane streams one structured extraction and starts downstream
// work as soon as the required fields are complete, without waiting for the
// rest of the record.
//
// Usage:
//
//	fastlane -simulate [flags]
//	fastlane -schema profile.yaml -replay run.jsonl [flags]
//	fastlane -schema profile.yaml -replay fixtures/ [flags]
//	model-cli ... | fastlane -schema profile.yaml -text - [flags]
//
// Flags:
//
//	-schema string        Path to a YAML schema (default for -simulate: built-in profile)
//	-simulate             Replay the built-in demo timeline
//	-speed float          Time scale for -simulate (default 1)
//	-replay string        JSON Lines fixture, or a directory of *.jsonl fixtures
//	-pace                 Honor fixture offsets when replaying
//	-text string          File with streamed JSON text, or - for stdin
//	-chunk int            Read size for -text (default 64)
//	-record string        Write every snapshot to a JSON Lines fixture
//	-report string        Save the session report as JSON
//	-on-ready string      Shell command to run when the required fields are complete
//	-on-final string      Shell command to run with the final record
//	-min-required int     Fire once this many required fields are complete (default: all)
//	-timeout duration     Abort the session after this long
//	-tui                  Show a live field board
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-ws-addr string       Stream events over WebSocket on this address
//	-log-level string     debug, info, warn, error (default "info")
//	-log-file string      Write logs here instead of stderr
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fwojciec/fastlane"
	bt "github.com/fwojciec/fastlane/bubbletea"
	fexec "github.com/fwojciec/fastlane/exec"
	"github.com/fwojciec/fastlane/ingest"
	fjson "github.com/fwojciec/fastlane/json"
	"github.com/fwojciec/fastlane/progress"
	fslog "github.com/fwojciec/fastlane/slog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fastlane: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse flags.
	var (
		schemaPath  = flag.String("schema", "", "Path to a YAML schema")
		simulateRun = flag.Bool("simulate", false, "Replay the built-in demo timeline")
		speed       = flag.Float64("speed", 1, "Time scale for -simulate")
		replayPath  = flag.String("replay", "", "JSON Lines fixture, or a directory of *.jsonl fixtures")
		pace        = flag.Bool("pace", false, "Honor fixture offsets when replaying")
		textPath    = flag.String("text", "", "File with streamed JSON text, or - for stdin")
		chunk       = flag.Int("chunk", 64, "Read size for -text")
		recordPath  = flag.String("record", "", "Write every snapshot to a JSON Lines fixture")
		reportPath  = flag.String("report", "", "Save the session report as JSON")
		onReady     = flag.String("on-ready", "", "Shell command to run when the required fields are complete")
		onFinal     = flag.String("on-final", "", "Shell command to run with the final record")
		minRequired = flag.Int("min-required", 0, "Fire once this many required fields are complete (default: all)")
		timeout     = flag.Duration("timeout", 0, "Abort the session after this long")
		tui         = flag.Bool("tui", false, "Show a live field board")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
		wsAddr      = flag.String("ws-addr", "", "Stream events over WebSocket on this address")
		logLevel    = flag.String("log-level", "info", "debug, info, warn, error")
		logFile     = flag.String("log-file", "", "Write logs here instead of stderr")
	)
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level, err := fslog.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logOut, closeLog, err := logWriter(*logFile, *tui)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	schema, err := resolveSchema(*schemaPath, *simulateRun)
	if err != nil {
		return err
	}
	sources, err := resolveSources(sourceFlags{
		simulate: *simulateRun,
		speed:    *speed,
		replay:   *replayPath,
		pace:     *pace,
		text:     *textPath,
		chunk:    *chunk,
	}, os.Stdin)
	if err != nil {
		return err
	}
	if len(sources) > 1 && (*tui || *recordPath != "" || *reportPath != "") {
		return errors.New("-tui, -record and -report need a single fixture")
	}

	obs, err := newObservers(ctx, *metricsAddr, *wsAddr, logger)
	if err != nil {
		return err
	}
	defer obs.Close()

	var opts []ingest.Option
	opts = append(opts,
		ingest.WithLogger(logger),
		ingest.WithEventHandler(fslog.NewHandler(logger)),
	)
	opts = append(opts, obs.Options()...)
	if *onReady != "" {
		opts = append(opts, ingest.WithTrigger(fexec.Job{Command: *onReady, Stdout: os.Stderr}.Trigger()))
	}
	if *onFinal != "" {
		opts = append(opts, ingest.WithFinal(fexec.Job{Command: *onFinal, Stdout: os.Stderr}.Final()))
	}
	if *minRequired > 0 {
		opts = append(opts, ingest.WithReadiness(fastlane.RequireAtLeast(*minRequired)))
	}

	if *tui {
		src := sources[0]
		producer, closeRecord, err := record(src.producer, *recordPath)
		if err != nil {
			return err
		}
		defer closeRecord()
		runFn := func(ctx context.Context, onEvent func(fastlane.Event)) (*ingest.Result, error) {
			ctx, cancel := withTimeout(ctx, *timeout)
			defer cancel()
			return runSession(ctx, producer, schema, append(opts, ingest.WithEventHandler(onEvent))...)
		}
		res, runErr := bt.Run(ctx, bt.New(runFn, schema, fastlane.DefaultTheme()))
		if err := saveReport(*reportPath, res); err != nil {
			return err
		}
		return runErr
	}

	var failed error
	for _, src := range sources {
		producer, closeRecord, err := record(src.producer, *recordPath)
		if err != nil {
			return err
		}
		printer := progress.NewPrinter(os.Stdout, schema)
		if len(sources) > 1 {
			fmt.Fprintf(os.Stdout, "== %s\n", src.name)
		}
		sctx, cancel := withTimeout(ctx, *timeout)
		res, runErr := runSession(sctx, producer, schema, append(opts, ingest.WithEventHandler(printer.Handle))...)
		cancel()
		if err := closeRecord(); err != nil {
			return err
		}
		if res != nil {
			fmt.Fprintln(os.Stdout)
			printer.Summary(res)
		}
		if err := saveReport(*reportPath, res); err != nil {
			return err
		}
		if runErr != nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", src.name, runErr))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return failed
}

// runSession runs one session to its end.
func runSession(ctx context.Context, p fastlane.Producer, schema *fastlane.Schema, opts ...ingest.Option) (*ingest.Result, error) {
	s, err := ingest.NewSession(p, schema, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, "")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// logWriter picks the log destination. The live board owns the terminal,
// so without a log file its logs are dropped.
func logWriter(path string, tui bool) (io.Writer, func(), error) {
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	case tui:
		return io.Discard, func() {}, nil
	default:
		return os.Stderr, func() {}, nil
	}
}

func saveReport(path string, res *ingest.Result) error {
	if path == "" || res == nil {
		return nil
	}
	if err := fjson.Save(path, res); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Report saved to %s\n", path)
	return nil
}
