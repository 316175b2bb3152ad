package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/ordersvc/config"
	"github.com/shashiranjanraj/ordersvc/pkg/app"
)

var (
	queueWorkersFlag int
	queueNamesFlag   []string
	failedLimitFlag  int
)

// ordersvc queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start a queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.QueueDriver() == "memory" {
			return errors.New("queue:work cannot reach the memory driver of another process; it runs inside serve")
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}
		fmt.Printf("🚀 Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		err = a.Worker(queueNamesFlag).Run(ctx, workers)
		fmt.Println("\n⚡ Queue worker stopped.")
		return err
	},
}

// ordersvc queue:retry
var queueRetryCmd = &cobra.Command{
	Use:   "queue:retry",
	Short: "Push every failed job back onto its queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.FailedJobs.Retry(ctx, a.Dispatcher)
		fmt.Printf("Requeued %d failed job(s).\n", n)
		return err
	},
}

// ordersvc queue:failed
var queueFailedCmd = &cobra.Command{
	Use:   "queue:failed",
	Short: "List failed jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.FailedJobs.List(ctx, failedLimitFlag)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tENVELOPE\tQUEUE\tATTEMPTS\tFAILED AT\tERROR")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.EnvelopeID, r.Queue, r.Attempts, r.FailedAt.Format("2006-01-02 15:04:05"), r.Error)
		}
		return w.Flush()
	},
}

// ordersvc queue:flush
var queueFlushCmd = &cobra.Command{
	Use:   "queue:flush",
	Short: "Delete every failed job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.FailedJobs.Flush(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d failed job(s).\n", n)
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
	queueWorkCmd.Flags().StringSliceVarP(&queueNamesFlag, "queues", "q", nil, "Queues to consume (default emailQueue,invoiceQueue)")
	queueFailedCmd.Flags().IntVarP(&failedLimitFlag, "limit", "n", 50, "Maximum rows to show")
}
