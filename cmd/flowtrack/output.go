package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printTask(t *model.Task) {
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Status:      %s\n", ui.RenderStatus(t.Status))
	fmt.Printf("Priority:    %s\n", ui.RenderPriority(t.Priority))
	fmt.Printf("Project:     %s\n", t.ProjectID)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	if t.AssignedTo != "" {
		fmt.Printf("Assignee:    %s\n", t.AssignedTo)
	}
	if t.Deadline != nil {
		fmt.Printf("Deadline:    %s\n", t.Deadline.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Created By:  %s\n", t.CreatedBy)
	fmt.Printf("Created At:  %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated At:  %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printTaskList(tasks []*model.Task, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tTITLE\tASSIGNEE")
	for _, t := range tasks {
		title := t.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			ui.RenderStatus(t.Status),
			ui.RenderPriority(t.Priority),
			title,
			t.AssignedTo,
		)
	}
	w.Flush()
	fmt.Printf("\n%d tasks (%d total)\n", len(tasks), total)
}

func printNotification(n *model.Notification) {
	ts := ui.RenderMuted(n.CreatedAt.Format("2006-01-02 15:04:05"))
	if n.TaskID != "" {
		fmt.Printf("%s  [%s] %s (%s)\n", ts, n.Type, n.Message, n.TaskID)
		return
	}
	fmt.Printf("%s  [%s] %s\n", ts, n.Type, n.Message)
}
