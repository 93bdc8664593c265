package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/syssam/quarry/compiler/mapgen"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Files   []string
	Types   []string
	Output  string
	Watch   bool
	Workers int
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate precompiled row mappers",
		Long: `Generate precompiled row mappers for the entity structs of Go source files.

Each input file gets a <name>_mapping.go file next to it, registering one
mapper per struct in an init function. Without --type, every exported
struct of the file is generated.`,
		Example: `  quarry gen --file models.go --type User --type Post
  quarry gen --file models.go --out internal/models/mapping.go --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGen(cmd.Context(), opts, opts.Logger(cmd))
		},
	}
	cmd.Flags().StringSliceVarP(&opts.Files, "file", "f", nil, "Go source file to read (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.Types, "type", "t", nil, "struct type to generate (repeatable)")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output file path (single input only)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "regenerate when an input file changes")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "number of parallel workers (default GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// Tasks returns the generation tasks described by the options.
func (o *GenOptions) Tasks() ([]mapgen.Task, error) {
	files := lo.Uniq(o.Files)
	if len(files) == 0 {
		return nil, errors.New("at least one --file is required")
	}
	if o.Output != "" && len(files) > 1 {
		return nil, errors.New("--out requires a single --file")
	}
	return lo.Map(files, func(f string, _ int) mapgen.Task {
		return mapgen.Task{Input: f, Output: o.Output, Types: o.Types}
	}), nil
}

func runGen(ctx context.Context, opts *GenOptions, logger *slog.Logger) error {
	tasks, err := opts.Tasks()
	if err != nil {
		return err
	}
	w := mapgen.NewWriter(mapgen.WithWorkers(opts.Workers), mapgen.WithLogger(logger))
	if err := w.Run(ctx, tasks...); err != nil {
		if !opts.Watch {
			return err
		}
		logger.Error("generation failed", "error", err)
	}
	if !opts.Watch {
		m := w.Metrics()
		logger.Debug("generation done", "files", m.FilesGenerated, "structs", m.Structs, "bytes", m.TotalBytes, "duration", m.Duration)
		return nil
	}
	return watch(ctx, w, tasks, logger, 100*time.Millisecond)
}

// watch regenerates the task of an input file after it changes, until the
// context is done. Events are coalesced over the debounce interval.
// Directories are watched instead of files so editors that replace files on
// save keep being observed.
func watch(ctx context.Context, w *mapgen.Writer, tasks []mapgen.Task, logger *slog.Logger, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	byPath := make(map[string]mapgen.Task, len(tasks))
	for _, t := range tasks {
		abs, err := filepath.Abs(t.Input)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		byPath[abs] = t
	}
	dirs := lo.Uniq(lo.Map(lo.Keys(byPath), func(p string, _ int) string { return filepath.Dir(p) }))
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Info("watching for changes", "files", len(byPath))

	var (
		pending = make(map[string]mapgen.Task)
		timer   = time.NewTimer(debounce)
	)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if t, ok := byPath[abs]; ok {
				pending[abs] = t
				timer.Reset(debounce)
			}
		case <-timer.C:
			changed := lo.Values(pending)
			clear(pending)
			if err := w.Run(ctx, changed...); err != nil {
				logger.Error("generation failed", "error", err)
			}
		}
	}
}
