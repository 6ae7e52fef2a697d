package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/service"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show the agent's state for a v2 session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := service.NewAPIClient(&cfg.API)
		status, err := client.SessionStatus(cmd.Context(), model.SessionID(args[0]), model.VariantV2)
		if err != nil {
			printBanner(cmd.ErrOrStderr(), bannerOf(err))
			return err
		}

		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
