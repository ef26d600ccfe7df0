package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"redink/internal/api"
	"redink/internal/ipc"
	"redink/internal/queue"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage grading tasks",
	}

	taskCmd.AddCommand(newTaskCreateCommand(ctx))
	taskCmd.AddCommand(newTaskListCommand(ctx))
	taskCmd.AddCommand(newTaskShowCommand(ctx))
	taskCmd.AddCommand(newTaskUpdateCommand(ctx))
	taskCmd.AddCommand(newTaskDeleteCommand(ctx))
	taskCmd.AddCommand(newTaskProcessCommand(ctx))
	taskCmd.AddCommand(newTaskStatsCommand(ctx))
	taskCmd.AddCommand(newTaskExportCommand(ctx))

	return taskCmd
}

func newTaskCreateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var referenceFile string
	var model string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a grading task from reference text",
		RunE: func(cmd *cobra.Command, args []string) error {
			reference, err := readTextArgument(referenceFile)
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				task, err := svc.tasks.Create(api.CreateTaskRequest{
					Title:         title,
					ReferenceText: reference,
					OCRModel:      model,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, task)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d (%s)\n", task.ID, task.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Task title")
	cmd.Flags().StringVarP(&referenceFile, "reference", "r", "", "Reference text file (- for stdin)")
	cmd.Flags().StringVar(&model, "model", "", "Override the configured OCR model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grading tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var tasks []api.Task
				if client != nil {
					resp, err := client.TaskList(listStatuses)
					if err != nil {
						return err
					}
					tasks = resp.Tasks
				} else {
					statuses := make([]queue.Status, 0, len(listStatuses))
					for _, raw := range listStatuses {
						status, err := queue.ParseStatus(raw)
						if err != nil {
							return err
						}
						statuses = append(statuses, status)
					}
					items, err := store.List(statuses...)
					if err != nil {
						return err
					}
					tasks = api.FromTasks(items)
				}

				if asJSON {
					return writeJSON(cmd, tasks)
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						strconv.FormatInt(task.ID, 10),
						task.Title,
						task.Status,
						fmt.Sprintf("%d/%d", task.CompletedImages, task.TotalImages),
						task.CreatedAt,
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Pages", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by task status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <taskID>",
		Short: "Show one task with its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				task, err := svc.tasks.Describe(id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, task)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Task #%d: %s\n", task.ID, task.Title)
				fmt.Fprintf(out, "Status: %s\n", task.Status)
				if task.OCRModel != "" {
					fmt.Fprintf(out, "OCR model: %s\n", task.OCRModel)
				}
				if task.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", task.ErrorMessage)
				}
				if task.ReviewReason != "" {
					fmt.Fprintf(out, "Review reason: %s\n", task.ReviewReason)
				}
				fmt.Fprintf(out, "Reference: %s\n", task.ReferencePreview)

				if len(task.Images) == 0 {
					fmt.Fprintln(out, "No pages uploaded")
					return nil
				}
				rows := make([][]string, 0, len(task.Images))
				for _, img := range task.Images {
					rows = append(rows, []string{
						strconv.FormatInt(img.ID, 10),
						strconv.Itoa(img.SortOrder),
						img.OriginalFilename,
						img.Status,
						yesNo(img.Annotated),
					})
				}
				table := renderTable(
					[]string{"ID", "Order", "Filename", "Status", "Annotated"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newTaskUpdateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var referenceFile string
	var model string

	cmd := &cobra.Command{
		Use:   "update <taskID>",
		Short: "Update task title, reference text, or model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			req := api.UpdateTaskRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("model") {
				req.OCRModel = &model
			}
			if cmd.Flags().Changed("reference") {
				reference, readErr := readTextArgument(referenceFile)
				if readErr != nil {
					return readErr
				}
				req.ReferenceText = &reference
			}
			if req.Title == nil && req.ReferenceText == nil && req.OCRModel == nil {
				return fmt.Errorf("nothing to update; pass --title, --reference, or --model")
			}

			return ctx.withServices(func(svc *cliServices) error {
				task, err := svc.tasks.Update(id, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task #%d (status %s)\n", task.ID, task.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New task title")
	cmd.Flags().StringVarP(&referenceFile, "reference", "r", "", "New reference text file (- for stdin)")
	cmd.Flags().StringVar(&model, "model", "", "New OCR model override")
	return cmd
}

func newTaskDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <taskID>",
		Short: "Delete a task and its stored files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				if err := svc.tasks.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", id)
				return nil
			})
		},
	}
}

func newTaskProcessCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "process <taskID>",
		Short: "Queue a task for recognition and grading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				task, err := svc.tasks.Process(id, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task #%d queued (status %s)\n", task.ID, task.Status)
				fmt.Fprintln(cmd.OutOrStdout(), "Run `redink start` if the daemon is not already processing the queue")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reprocess pages that already have OCR results")
	return cmd
}

func newTaskStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats <taskID>",
		Short: "Show per-page and total grading statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				stats, err := svc.tasks.Stats(id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}

				rows := make([][]string, 0, len(stats.Images)+1)
				for _, img := range stats.Images {
					rows = append(rows, []string{
						fmt.Sprintf("Page %d", img.SortOrder),
						strconv.Itoa(img.Correct),
						strconv.Itoa(img.Wrong),
						strconv.Itoa(img.Missing),
						strconv.Itoa(img.Extra),
						fmt.Sprintf("%.1f%%", img.AccuracyPct),
					})
				}
				rows = append(rows, []string{
					"Total",
					strconv.Itoa(stats.Correct),
					strconv.Itoa(stats.Wrong),
					strconv.Itoa(stats.Missing),
					strconv.Itoa(stats.Extra),
					fmt.Sprintf("%.1f%%", stats.AccuracyPct),
				})
				table := renderTable(
					[]string{"Page", "Correct", "Wrong", "Missing", "Extra", "Accuracy"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newTaskExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <taskID>",
		Short: "Bundle annotated pages into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				archivePath, archiveName, err := svc.exports.Archive(cmd.Context(), id)
				if err != nil {
					return err
				}

				target := strings.TrimSpace(output)
				if target == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", archiveName, archivePath)
					return nil
				}
				if err := copyFile(archivePath, target); err != nil {
					return fmt.Errorf("copy archive to %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Copy the archive to this path")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func readTextArgument(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("text file path is required")
	}
	if path == "-" {
		data, err := readAllStdin()
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
