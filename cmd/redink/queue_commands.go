package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"redink/internal/api"
	"redink/internal/ipc"
	"redink/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var stats map[string]int
				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					stats = status.QueueStats
				} else {
					queueStats, err := store.Stats()
					if err != nil {
						return err
					}
					stats = api.MergeQueueStats(queueStats)
				}

				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					switch {
					case clearCompleted:
						resp, err := client.QueueClearCompleted()
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "Cleared %d completed tasks\n", resp.Removed)
					case clearFailed:
						resp, err := client.QueueClearFailed()
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "Cleared %d failed tasks\n", resp.Removed)
					default:
						resp, err := client.QueueClear()
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "Cleared %d tasks\n", resp.Removed)
					}
					return nil
				}

				switch {
				case clearCompleted:
					removed, err := store.ClearCompleted()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed tasks\n", removed)
				case clearFailed:
					removed, err := store.ClearFailed()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed tasks\n", removed)
				default:
					removed, err := store.Clear()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d tasks\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed tasks")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed tasks")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight tasks to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				if client != nil {
					resp, err := client.QueueReset()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reset %d tasks\n", resp.Updated)
					return nil
				}
				updated, err := store.ResetStuckProcessing()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d tasks\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [taskID...]",
		Short: "Retry failed or review tasks",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.QueueRetry(ids)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d tasks\n", resp.Updated)
					return nil
				}
				updated, err := store.RetryFailed(ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Retried %d tasks\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					health, err := client.QueueHealth()
					if err != nil {
						return err
					}
					printQueueHealth(out, health.Healthy, health.DatabasePath, health.SchemaVersion, health.TaskCount, health.Error)
					return nil
				}
				health := store.CheckHealth(cmd.Context())
				printQueueHealth(out, health.Healthy, health.DatabasePath, health.SchemaVersion, health.TaskCount, health.Error)
				return nil
			})
		},
	}
}

func printQueueHealth(out io.Writer, healthy bool, dbPath string, schema, tasks int, errMsg string) {
	state := "healthy"
	if !healthy {
		state = "unhealthy"
	}
	fmt.Fprintf(out, "Database: %s (%s)\n", dbPath, state)
	fmt.Fprintf(out, "Schema version: %d\n", schema)
	fmt.Fprintf(out, "Tasks: %d\n", tasks)
	if errMsg != "" {
		fmt.Fprintf(out, "Error: %s\n", errMsg)
	}
}
