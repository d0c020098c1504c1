package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/unslug/backend/internal/scheduler"
	"github.com/wonny/unslug/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the scan scheduler",
	Long: `Starts the scheduler daemon or inspects its jobs.

Registered jobs:
  signal_scan - scores the symbol universe on SCAN_SCHEDULE

Example:
  go run ./cmd/unslug scheduler start
  go run ./cmd/unslug scheduler run signal_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func initScheduler() (*scheduler.Scheduler, *stack, error) {
	stack, err := buildStack()
	if err != nil {
		return nil, nil, err
	}

	runner, err := stack.newRunner(nil)
	if err != nil {
		stack.Close()
		return nil, nil, err
	}

	sched := scheduler.New(stack.log)
	if err := sched.AddJob(jobs.NewScanJob(runner, stack.cfg, stack.log)); err != nil {
		stack.Close()
		return nil, nil, fmt.Errorf("register scan job: %w", err)
	}

	return sched, stack, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, stack, err := initScheduler()
	if err != nil {
		return err
	}
	defer stack.Close()

	sched.Start()

	fmt.Println("Scheduler started. Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	stack, err := buildStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	runner, err := stack.newRunner(nil)
	if err != nil {
		return err
	}

	job := jobs.NewScanJob(runner, stack.cfg, stack.log)
	if args[0] != job.Name() {
		return fmt.Errorf("unknown job %q (available: %s)", args[0], job.Name())
	}

	fmt.Printf("Running job %s...\n", job.Name())
	if err := job.Run(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Job completed")
	return nil
}
