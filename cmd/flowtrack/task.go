package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/session"
)

// requireLogin fails the command unless the hydrated session allows access.
func requireLogin(requireAdmin bool) error {
	switch session.Evaluate(sessions.Snapshot(), requireAdmin) {
	case session.Allow:
		return nil
	case session.RedirectHome:
		return fmt.Errorf("admin role required")
	default:
		return fmt.Errorf("not logged in; run 'flowtrack login <email>'")
	}
}

func parseStatuses(csv string) ([]model.TaskStatus, error) {
	if csv == "" {
		return nil, nil
	}
	var out []model.TaskStatus
	for _, part := range strings.Split(csv, ",") {
		st := model.TaskStatus(strings.TrimSpace(part))
		if !st.IsValid() {
			return nil, fmt.Errorf("invalid status %q (todo, in_progress, done)", part)
		}
		out = append(out, st)
	}
	return out, nil
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and move tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		statusCSV, _ := cmd.Flags().GetString("status")
		statuses, err := parseStatuses(statusCSV)
		if err != nil {
			return err
		}
		project, _ := cmd.Flags().GetString("project")
		assignee, _ := cmd.Flags().GetString("assignee")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		tasks, total, err := client.ListTasks(context.Background(), model.TaskFilter{
			Status:    statuses,
			ProjectID: project,
			Assignee:  assignee,
			Search:    search,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(tasks)
			return nil
		}
		printTaskList(tasks, total)
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		task, err := client.GetTask(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(task)
			return nil
		}
		printTask(task)
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task to another column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		status := model.TaskStatus(args[1])
		if !status.IsValid() {
			return fmt.Errorf("invalid status %q (todo, in_progress, done)", args[1])
		}

		task, err := client.MoveTask(context.Background(), args[0], status)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(task)
			return nil
		}
		fmt.Printf("%s moved to %s\n", task.ID, task.Status)
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List your notifications, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		notifs, err := client.ListNotifications(context.Background(), limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(notifs)
			return nil
		}
		if len(notifs) == 0 {
			fmt.Println("no notifications")
			return nil
		}
		for _, n := range notifs {
			printNotification(n)
		}
		return nil
	},
}

func init() {
	taskListCmd.Flags().String("status", "", "filter by status (comma-separated)")
	taskListCmd.Flags().String("project", "", "filter by project ID")
	taskListCmd.Flags().String("assignee", "", "filter by assignee user ID")
	taskListCmd.Flags().String("search", "", "search in title and description")
	taskListCmd.Flags().Int("limit", 0, "max tasks to return")
	taskListCmd.Flags().Int("offset", 0, "pagination offset")

	notificationsCmd.Flags().Int("limit", 0, "max notifications to return")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskMoveCmd)
}
