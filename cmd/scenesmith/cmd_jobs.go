package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scenesmith/internal/buildjob"
	"scenesmith/internal/store"
	"scenesmith/internal/types"
)

// jobService opens the durable side only; job submission and inspection do
// not need the artifact backend.
func jobStore() (*store.Store, error) {
	return store.New(cfg.Store.DataDir)
}

var submitCmd = &cobra.Command{
	Use:   "submit <scene-file>",
	Short: "Submit a scene source as an asynchronous build job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		st, err := jobStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc := buildjob.New(st, nil, buildjob.DefaultConfig(), logger)
		id, err := svc.Submit(cmd.Context(), string(source))
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a build job's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := jobStore()
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJob(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("status: %s\n", job.Status)
		switch job.Status {
		case types.JobReady:
			fmt.Printf("artifact: %s\n", job.ArtifactRef)
		case types.JobFailed:
			fmt.Printf("error: %s\n", job.ErrorMessage)
		}
		if job.RetryCount > 0 {
			fmt.Printf("retries: %d\n", job.RetryCount)
		}
		return nil
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix <job-id> <scene-file>",
	Short: "Resubmit a failed job with corrected source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		st, err := jobStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc := buildjob.New(st, nil, buildjob.DefaultConfig(), logger)
		return svc.Fix(cmd.Context(), args[0], string(source))
	},
}

func init() {
	rootCmd.AddCommand(submitCmd, statusCmd, fixCmd)
}
