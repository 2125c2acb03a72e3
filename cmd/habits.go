package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/dash/internal/formatter"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/desertthunder/dash/internal/streak"
	"github.com/desertthunder/dash/internal/tasks"
	"github.com/urfave/cli/v3"
)

// idArg parses the positional id argument.
func idArg(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("id")
	if raw == "" {
		return 0, fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer, got %q", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

// HabitsList prints every habit in the requested format.
func (r *Runner) HabitsList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	habits, err := s.habits.List(ctx)
	if err != nil {
		return err
	}

	out, err := formatter.RenderHabits(format, habits, r.clock.Now())
	if err != nil {
		return err
	}
	return r.writePlain("%s", out)
}

// HabitsAdd creates a habit with a zero streak.
func (r *Runner) HabitsAdd(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	habit, err := s.habits.Create(ctx, models.HabitUpdate{
		Name:        cmd.StringArg("name"),
		Description: cmd.String("description"),
	})
	if err != nil {
		return err
	}

	r.logger.Debug("habit created", "id", habit.ID)
	return r.writePlain("✓ Created habit #%d: %s\n", habit.ID, habit.Name)
}

// HabitsEdit changes the name and/or description. The streak is left alone.
func (r *Runner) HabitsEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}
	if !cmd.IsSet("name") && !cmd.IsSet("description") {
		return fmt.Errorf("%w: pass --name and/or --description", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	current, err := s.habits.Get(ctx, id)
	if err != nil {
		return err
	}

	u := models.HabitUpdate{Name: current.Name, Description: current.Description}
	if cmd.IsSet("name") {
		u.Name = cmd.String("name")
	}
	if cmd.IsSet("description") {
		u.Description = cmd.String("description")
	}

	habit, err := s.habits.Update(ctx, id, u)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated habit #%d: %s\n", habit.ID, habit.Name)
}

// HabitsDelete removes a habit.
func (r *Runner) HabitsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	if err := s.habits.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted habit #%d\n", id)
}

// HabitsDone marks a habit completed now through the tracker.
func (r *Runner) HabitsDone(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}
	tracker, err := r.tracker(s)
	if err != nil {
		return err
	}

	habit, err := tracker.Track(ctx, id, true)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s done • streak %d\n", habit.Name, habit.Streak)
}

// HabitsStreak prints the streak a completion now would produce, without touching the database.
func (r *Runner) HabitsStreak(ctx context.Context, cmd *cli.Command) error {
	policy, err := streak.FromConfig(r.config.Habits, r.clock)
	if err != nil {
		return err
	}

	n, err := tasks.NewHabitTracker(nil, policy, r.clock).Preview(cmd.String("last"), cmd.Int("prior"))
	if err != nil {
		return err
	}
	return r.writePlain("%d\n", n)
}

// HabitsExport writes habits in each requested format.
func (r *Runner) HabitsExport(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	return r.export(ctx, cmd, tasks.NewExporter(s.habits, nil, r.clock))
}

// export runs exporter with the format, output, and worker flags and prints progress and a summary.
func (r *Runner) export(ctx context.Context, cmd *cli.Command, exporter *tasks.Exporter) error {
	var formats []formatter.Format
	for _, name := range cmd.StringSlice("format") {
		f, err := formatter.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	progressCh := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	result, err := exporter.Export(ctx, progressCh, tasks.ExportOpts{
		Formats:    formats,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Files written: %d/%d\n", result.Succeeded, result.Succeeded+result.Failed)
	for _, f := range result.Files {
		if f.Error != "" {
			r.writePlain("  ✗ %s: %s\n", f.Path, f.Error)
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d export files failed", result.Failed)
	}
	return nil
}
