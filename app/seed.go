package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/seeders"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var file string
	var group string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create process types, stages and forms from a YAML file",
		Long:  "Seeds workflows from --file, or from the built-in defaults when no file is given. Process types that already exist in the group are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			workflows, err := loadWorkflows(file)
			if err != nil {
				return err
			}
			if g := strings.TrimSpace(group); g != "" {
				workflows.GroupID = g
			}

			svc, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}
			seeder := seeders.NewWorkflowSeeder(svc.ProcessTypes, svc.Stages, svc.Forms, ctx.log())
			result, err := seeder.Seed(cmd.Context(), workflows)
			if err != nil {
				return err
			}

			ctx.log().Info("seed finished",
				zap.String("group", workflows.GroupID),
				zap.Strings("created", result.Created),
				zap.Strings("skipped", result.Skipped),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d, skipped %d process types\n", len(result.Created), len(result.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow YAML file (defaults to the built-in workflows)")
	cmd.Flags().StringVar(&group, "group", "", "Override the groupId declared in the file")
	return cmd
}

func loadWorkflows(path string) (*seeders.WorkflowFile, error) {
	if path == "" {
		return seeders.DefaultWorkflows()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return seeders.LoadWorkflowFile(f)
}
