package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TheFastest599/flowtrack/internal/board"
	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/ui"
)

var boardColumns = []model.TaskStatus{
	model.StatusTodo,
	model.StatusInProgress,
	model.StatusDone,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		project, _ := cmd.Flags().GetString("project")
		tasks, _, err := client.ListTasks(context.Background(), model.TaskFilter{
			ProjectID: project,
		})
		if err != nil {
			return err
		}

		coord := board.NewCoordinator(board.WithLogger(logger))
		coord.Load(tasks)

		if jsonOutput {
			printJSON(tasks)
			return nil
		}
		printBoard(tasks, coord)
		return nil
	},
}

var boardMoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task optimistically and show the result",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		id := args[0]
		to := model.TaskStatus(args[1])
		if !to.IsValid() {
			return fmt.Errorf("invalid status %q (todo, in_progress, done)", args[1])
		}

		ctx := context.Background()
		task, err := client.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if task.Status == to {
			return fmt.Errorf("%s is already in %s", id, to)
		}

		noticeCh := make(chan board.Notice, 1)
		resolvedCh := make(chan board.Intent, 1)
		coord := board.NewCoordinator(
			board.WithLogger(logger),
			board.WithNoticeFunc(func(n board.Notice) { noticeCh <- n }),
			board.WithResolvedFunc(func(it board.Intent) { resolvedCh <- it }),
		)
		coord.Load([]*model.Task{task})

		coord.Apply(ctx, id, task.Status, to, func(ctx context.Context, entityID string, to model.TaskStatus) error {
			_, err := client.MoveTask(ctx, entityID, to)
			return err
		})
		fmt.Printf("%s -> %s ...\n", id, ui.RenderStatus(to))

		if it := <-resolvedCh; it.Status == board.IntentRolledBack {
			n := <-noticeCh
			return fmt.Errorf("move rejected, %s stays in %s: %s", id, n.RevertedTo, n.Message)
		}
		fmt.Printf("%s moved to %s\n", id, ui.RenderStatus(to))
		return nil
	},
}

// printBoard renders one column per status, using the coordinator's visible
// values so optimistic moves show where the user dropped them.
func printBoard(tasks []*model.Task, coord *board.Coordinator) {
	byStatus := make(map[model.TaskStatus][]*model.Task)
	for _, t := range tasks {
		st := t.Status
		if v, ok := coord.Visible(t.ID); ok {
			st = v
		}
		byStatus[st] = append(byStatus[st], t)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, col := range boardColumns {
		fmt.Fprintf(w, "%s (%d)\n", ui.RenderStatus(col), len(byStatus[col]))
		for _, t := range byStatus[col] {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", t.ID, ui.RenderPriority(t.Priority), t.Title)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func init() {
	boardCmd.Flags().String("project", "", "filter by project ID")
	boardCmd.AddCommand(boardMoveCmd)
}
