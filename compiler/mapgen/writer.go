package mapgen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task describes one generation: the structs Types of the Input file are
// written to Output. An empty Output defaults to OutputPath(Input).
type Task struct {
	Input  string
	Output string
	Types  []string
}

// OutputPath returns the default output path of an input file:
// models.go becomes models_mapping.go.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, ".go") + "_mapping.go"
}

// Writer runs generation tasks in parallel.
type Writer struct {
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// Metrics tracks generation results.
type Metrics struct {
	FilesGenerated int
	Structs        int
	TotalBytes     int64
	Duration       time.Duration
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithLogger sets the logger reporting written files.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// NewWriter creates a Writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Metrics returns the accumulated generation metrics.
func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Run executes the tasks in parallel and returns the first error.
func (w *Writer) Run(ctx context.Context, tasks ...Task) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, t := range tasks {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.run(t)
			}
		})
	}
	return eg.Wait()
}

func (w *Writer) run(t Task) error {
	start := time.Now()
	out := t.Output
	if out == "" {
		out = OutputPath(t.Input)
	}
	f, err := ParseFile(t.Input, nil, t.Types...)
	if err != nil {
		return err
	}
	if len(f.Structs) == 0 {
		return fmt.Errorf("mapgen: %s: no struct types to generate", t.Input)
	}
	src, err := Format(out, Generate(f))
	if err != nil {
		if src != nil {
			debugPath := out + ".error"
			_ = os.WriteFile(debugPath, src, 0o644)
			return fmt.Errorf("%w (unformatted written to %s)", err, debugPath)
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("mapgen: create directory for %s: %w", out, err)
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return fmt.Errorf("mapgen: write %s: %w", out, err)
	}
	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.Structs += len(f.Structs)
	w.metrics.TotalBytes += int64(len(src))
	w.metrics.Duration += time.Since(start)
	w.mu.Unlock()
	w.logger.Info("generated mapping", "input", t.Input, "output", out, "structs", len(f.Structs))
	return nil
}
