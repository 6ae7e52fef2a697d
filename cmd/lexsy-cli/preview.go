package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vedthemaster/lexsy-frontend/service"
)

var previewOut string

var previewCmd = &cobra.Command{
	Use:   "preview <file.docx>",
	Short: "Render a local .docx as HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		rendered, err := service.NewDocxConverter().Convert(data)
		if err != nil {
			return fmt.Errorf("preview document: %w", err)
		}
		for _, w := range rendered.Warnings {
			printNotice(cmd.ErrOrStderr(), "warning: %s", w)
		}
		return writeOutput(previewOut, []byte(rendered.HTML), cmd.OutOrStdout())
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "write HTML to this path instead of stdout")
	rootCmd.AddCommand(previewCmd)
}
