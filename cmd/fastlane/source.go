package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fwojciec/fastlane"
	"github.com/fwojciec/fastlane/jsonpartial"
	"github.com/fwojciec/fastlane/replay"
	"github.com/fwojciec/fastlane/simulate"
	"github.com/fwojciec/fastlane/yaml"
)

// sourceFlags holds the flags that pick where snapshots come from.
type sourceFlags struct {
	simulate bool
	speed    float64
	replay   string
	pace     bool
	text     string
	chunk    int
}

// source is one producer to run, named for output.
type source struct {
	name     string
	producer fastlane.Producer
}

// resolveSchema loads the schema file. The demo timeline brings its own
// schema when none is given.
func resolveSchema(path string, simulateRun bool) (*fastlane.Schema, error) {
	switch {
	case path != "":
		return yaml.LoadSchema(path)
	case simulateRun:
		return simulate.ProfileSchema(), nil
	default:
		return nil, errors.New("no schema: use -schema (or -simulate for the demo)")
	}
}

// resolveSources builds the producers for exactly one of -simulate,
// -replay and -text. A replay directory yields one source per fixture.
func resolveSources(f sourceFlags, stdin io.Reader) ([]source, error) {
	set := 0
	for _, on := range []bool{f.simulate, f.replay != "", f.text != ""} {
		if on {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, errors.New("no source: use -simulate, -replay or -text")
	case set > 1:
		return nil, errors.New("-simulate, -replay and -text are mutually exclusive")
	}

	switch {
	case f.simulate:
		if f.speed <= 0 {
			return nil, fmt.Errorf("invalid -speed %v: must be positive", f.speed)
		}
		arrivals := simulate.Scale(simulate.ProfileArrivals(), 1/f.speed)
		return []source{{name: "simulate", producer: &simulate.Producer{Arrivals: arrivals}}}, nil
	case f.replay != "":
		return replaySources(f.replay, f.pace)
	default:
		return []source{{name: f.text, producer: textProducer(f.text, f.chunk, stdin)}}, nil
	}
}

func replaySources(path string, pace bool) ([]source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if !info.IsDir() {
		return []source{{name: path, producer: &replay.Producer{Path: path, Pace: pace}}}, nil
	}
	paths, err := replay.Glob(path, "**/*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("replay: no *.jsonl fixtures under %s", path)
	}
	sources := make([]source, len(paths))
	for i, p := range paths {
		name, err := filepath.Rel(path, p)
		if err != nil {
			name = p
		}
		sources[i] = source{name: name, producer: &replay.Producer{Path: p, Pace: pace}}
	}
	return sources, nil
}

// textProducer streams JSON text from a file, or from stdin for "-".
func textProducer(path string, chunk int, stdin io.Reader) fastlane.Producer {
	return &jsonpartial.Producer{
		Open: func(_ context.Context, _ fastlane.Request) (jsonpartial.Source, error) {
			if path == "-" {
				return jsonpartial.ReaderSource(stdin, chunk), nil
			}
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open text: %w", err)
			}
			return fileSource{Source: jsonpartial.ReaderSource(f, chunk), f: f}, nil
		},
	}
}

// fileSource closes its file when the stream closes.
type fileSource struct {
	jsonpartial.Source
	f *os.File
}

func (s fileSource) Close() error { return s.f.Close() }

// record tees p into a fixture file when path is set. The returned func
// closes the file.
func record(p fastlane.Producer, path string) (fastlane.Producer, func() error, error) {
	if path == "" {
		return p, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("record: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("record: %w", err)
	}
	return replay.Tee(p, replay.NewEncoder(f)), f.Close, nil
}
