package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/geniusappsio/tramita/internal/dto"
)

func newBoardCommand(ctx *commandContext) *cobra.Command {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "board <processTypeId>",
		Short: "Print the card count of every stage of a process type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			processTypeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || processTypeID == 0 {
				return fmt.Errorf("invalid process type id %q", args[0])
			}

			svc, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := svc.Board.Summary(cmd.Context(), processTypeID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBoard(summary))

			if exportPath == "" {
				return nil
			}
			f, err := os.Create(exportPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportPath, err)
			}
			defer f.Close()
			if err := svc.Board.Export(cmd.Context(), processTypeID, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "Also write the board as an xlsx file")
	return cmd
}

func renderBoard(summary *dto.BoardSummaryDTO) string {
	rows := make([][]string, 0, len(summary.Columns)+1)
	for _, col := range summary.Columns {
		kind := ""
		switch {
		case col.Stage.IsInitial:
			kind = "initial"
		case col.Stage.IsFinal:
			kind = "final"
		}
		rows = append(rows, []string{strconv.Itoa(col.Stage.SortOrder), col.Stage.Name, kind, strconv.Itoa(col.Count)})
	}
	rows = append(rows, []string{"", "Total", "", strconv.Itoa(summary.Total)})

	title := fmt.Sprintf("%s (%s)\n", summary.ProcessType.Name, summary.ProcessType.Prefix)
	return title + renderTable(
		[]string{"#", "Stage", "Kind", "Cards"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}
