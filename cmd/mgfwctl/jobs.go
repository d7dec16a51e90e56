package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newJobsCmd groups the client-side commands that talk to a running demo's
// debug server, grounded on wilke-GoWe's internal/cli status/cancel
// commands.
func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "inspect or cancel jobs on a running demo's debug server",
	}
	cmd.AddCommand(newJobsListCmd(), newJobsCancelCmd())
	return cmd
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list pending jobs with their due time, interval and description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/jobs")
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			var data struct {
				Jobs []struct {
					ID       uint32 `json:"id"`
					Deadline string `json:"deadline"`
					Interval string `json:"interval,omitempty"`
					Desc     string `json:"desc,omitempty"`
				} `json:"jobs"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			if len(data.Jobs) == 0 {
				fmt.Println("no pending jobs")
				return nil
			}
			for _, j := range data.Jobs {
				line := fmt.Sprintf("%d  due %s", j.ID, j.Deadline)
				if j.Interval != "" {
					line += "  every " + j.Interval
				}
				if j.Desc != "" {
					line += "  " + j.Desc
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newJobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "cancel a pending job by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if _, err := client.Post("/jobs/" + id + "/cancel"); err != nil {
				return fmt.Errorf("cancel job %s: %w", id, err)
			}
			fmt.Printf("cancelled job %s\n", id)
			return nil
		},
	}
}
