package main

import (
	"context"

	"github.com/desertthunder/dash/internal/formatter"
	"github.com/desertthunder/dash/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TodoList prints the to-do list in the requested format.
func (r *Runner) TodoList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	todos, err := s.todos.List(ctx)
	if err != nil {
		return err
	}

	out, err := formatter.RenderTodos(format, todos)
	if err != nil {
		return err
	}
	return r.writePlain("%s", out)
}

// TodoAdd appends an open todo.
func (r *Runner) TodoAdd(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	todo, err := s.todos.Create(ctx, cmd.StringArg("title"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added todo #%d: %s\n", todo.ID, todo.Title)
}

// TodoEdit retitles a todo, keeping its completed flag.
func (r *Runner) TodoEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	todo, err := s.todos.Get(ctx, id)
	if err != nil {
		return err
	}
	todo.Title = cmd.String("title")

	if todo, err = s.todos.Update(ctx, *todo); err != nil {
		return err
	}
	return r.writePlain("✓ Updated todo #%d: %s\n", todo.ID, todo.Title)
}

// TodoDone flips a todo between open and completed.
func (r *Runner) TodoDone(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	todo, err := s.todos.Toggle(ctx, id)
	if err != nil {
		return err
	}
	if todo.Completed {
		return r.writePlain("✓ Completed: %s\n", todo.Title)
	}
	return r.writePlain("↺ Reopened: %s\n", todo.Title)
}

// TodoDelete removes a todo.
func (r *Runner) TodoDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	todo, err := s.todos.Delete(ctx, id)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Deleted todo #%d: %s\n", todo.ID, todo.Title)
}

// TodoExport writes todos in each requested format.
func (r *Runner) TodoExport(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	return r.export(ctx, cmd, tasks.NewExporter(nil, s.todos, r.clock))
}
