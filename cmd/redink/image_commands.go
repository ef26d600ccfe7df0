package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImageCommand(ctx *commandContext) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Manage uploaded pages",
	}

	imageCmd.AddCommand(newImageAddCommand(ctx))
	imageCmd.AddCommand(newImageReorderCommand(ctx))
	imageCmd.AddCommand(newImageCorrectCommand(ctx))
	imageCmd.AddCommand(newImageRemoveCommand(ctx))
	imageCmd.AddCommand(newImageRenderCommand(ctx))

	return imageCmd
}

func newImageAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <taskID> <file>...",
		Short: "Upload page images to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				for _, path := range args[1:] {
					data, readErr := os.ReadFile(path)
					if readErr != nil {
						return fmt.Errorf("read %s: %w", path, readErr)
					}
					img, uploadErr := svc.images.Upload(taskID, filepath.Base(path), data)
					if uploadErr != nil {
						return fmt.Errorf("upload %s: %w", path, uploadErr)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added page #%d (%s, position %d)\n", img.ID, img.OriginalFilename, img.SortOrder)
				}
				return nil
			})
		},
	}
}

func newImageReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <taskID> <imageID>...",
		Short: "Set page order for a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			orderedIDs := make([]int64, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, parseErr := parseID(arg)
				if parseErr != nil {
					return parseErr
				}
				orderedIDs = append(orderedIDs, id)
			}
			return ctx.withServices(func(svc *cliServices) error {
				if err := svc.images.Reorder(taskID, orderedIDs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d pages\n", len(orderedIDs))
				return nil
			})
		},
	}
}

func newImageCorrectCommand(ctx *commandContext) *cobra.Command {
	var textFile string

	cmd := &cobra.Command{
		Use:   "correct <imageID>",
		Short: "Replace recognized text for a page and rebuild its diff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			corrected, err := readTextArgument(textFile)
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				img, err := svc.images.CorrectText(imageID, corrected)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Corrected page #%d (%d words, status %s)\n", img.ID, len(img.Words), img.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&textFile, "text", "f", "", "Corrected text file (- for stdin)")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newImageRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <imageID>",
		Short: "Remove a page and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				if err := svc.images.Remove(imageID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed page #%d\n", imageID)
				return nil
			})
		},
	}
}

func newImageRenderCommand(ctx *commandContext) *cobra.Command {
	var scale float64
	var output string

	cmd := &cobra.Command{
		Use:   "render <imageID>",
		Short: "Render an annotated page to a JPEG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				renderedPath, err := svc.exports.RenderPage(cmd.Context(), imageID, scale)
				if err != nil {
					return err
				}
				if output == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", renderedPath)
					return nil
				}
				if err := copyFile(renderedPath, output); err != nil {
					return fmt.Errorf("copy render to %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&scale, "scale", 1, "Scale factor for the rendered page (1 keeps original size)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Copy the rendered page to this path")
	return cmd
}
