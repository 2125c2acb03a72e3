package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/dash/internal/formatter"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
)

// HabitLister lists habits.
type HabitLister interface {
	List(ctx context.Context) ([]models.Habit, error)
}

// TodoLister lists todos.
type TodoLister interface {
	List(ctx context.Context) ([]models.Todo, error)
}

// Exporter writes the dashboard's habits and todos to files.
type Exporter struct {
	habits HabitLister
	todos  TodoLister
	clock  shared.Clock
}

// NewExporter creates an [Exporter]. Either lister may be nil to skip that dataset.
func NewExporter(habits HabitLister, todos TodoLister, clock shared.Clock) *Exporter {
	return &Exporter{habits: habits, todos: todos, clock: clock}
}

// ExportOpts contains configuration for an export run.
type ExportOpts struct {
	Formats    []formatter.Format // Formats to write (default: json)
	OutputDir  string             // Output directory (default: dash_export_{epoch})
	NumWorkers int                // Concurrent writers (default: 2, max: 4)
}

// ExportFile is the outcome of writing one dataset in one format.
type ExportFile struct {
	Dataset string           `json:"dataset"`
	Format  formatter.Format `json:"format"`
	Path    string           `json:"path"`
	Error   string           `json:"error,omitempty"`
}

// ExportResult summarizes an export run.
type ExportResult struct {
	OutputDirectory string       `json:"output_directory"`
	ExportedAt      time.Time    `json:"exported_at"`
	Habits          int          `json:"habits"`
	Todos           int          `json:"todos"`
	Files           []ExportFile `json:"files"`
	Succeeded       int          `json:"succeeded"`
	Failed          int          `json:"failed"`
	ManifestPath    string       `json:"-"`
}

type exportJob struct {
	dataset string
	format  formatter.Format
	path    string
	render  func(formatter.Format) ([]byte, error)
}

// Export loads both datasets once and writes every requested format with a worker pool.
//
// Individual file failures are recorded in the result; only load and setup failures return an error.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	now := e.clock.Now()

	opts.Formats = uniqueFormats(opts.Formats)
	if len(opts.Formats) == 0 {
		opts.Formats = []formatter.Format{formatter.JSON}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("dash_export_%d", now.Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 4 {
		opts.NumWorkers = 4
	}

	result := &ExportResult{OutputDirectory: opts.OutputDir, ExportedAt: now.UTC()}
	var jobs []exportJob

	if e.habits != nil {
		habits, err := e.habits.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load habits: %w", err)
		}
		result.Habits = len(habits)
		sendProgress(prog, fetchUpdate(FetchHabits, len(habits)))
		for _, f := range opts.Formats {
			jobs = append(jobs, exportJob{
				dataset: "habits",
				format:  f,
				path:    filepath.Join(opts.OutputDir, "habits"+f.Ext()),
				render:  func(f formatter.Format) ([]byte, error) { return formatter.RenderHabits(f, habits, now) },
			})
		}
	}

	if e.todos != nil {
		todos, err := e.todos.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load todos: %w", err)
		}
		result.Todos = len(todos)
		sendProgress(prog, fetchUpdate(FetchTodos, len(todos)))
		for _, f := range opts.Formats {
			jobs = append(jobs, exportJob{
				dataset: "todos",
				format:  f,
				path:    filepath.Join(opts.OutputDir, "todos"+f.Ext()),
				render:  func(f formatter.Format) ([]byte, error) { return formatter.RenderTodos(f, todos) },
			})
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	queue := make(chan exportJob, len(jobs))
	results := make(chan ExportFile, len(jobs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, queue, results)
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Files = append(result.Files, res)
		if res.Error == "" {
			result.Succeeded++
			sendProgress(prog, exportCompletedUpdate(completed, len(jobs), res.Path))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(jobs), res.Path, fmt.Errorf("%s", res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifest, err := formatter.ToJSON(result)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteFile(manifestPath, manifest); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker renders and writes jobs until the queue is drained or ctx is done.
// uniqueFormats drops repeats, keeping first-seen order. Each format maps to one output path.
func uniqueFormats(formats []formatter.Format) []formatter.Format {
	seen := make(map[formatter.Format]bool, len(formats))
	out := make([]formatter.Format, 0, len(formats))
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- ExportFile) {
	defer wg.Done()

	for j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := ExportFile{Dataset: j.dataset, Format: j.format, Path: j.path}
		data, err := j.render(j.format)
		if err == nil {
			err = formatter.WriteFile(j.path, data)
		}
		if err != nil {
			res.Error = err.Error()
		}
		results <- res
	}
}
