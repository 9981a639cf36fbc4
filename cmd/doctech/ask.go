package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/message"
)

var askCmd = &cobra.Command{
	Use:   "ask <utterance>",
	Short: "Classify and execute a typed command and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().Int("page", 0, "page currently displayed (1-based, 0 if unknown)")
	askCmd.Flags().Int("page-count", 0, "pages in the open document (0 if unknown)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("release backends", zap.Error(err))
		}
	}()

	page, _ := cmd.Flags().GetInt("page")
	pageCount, _ := cmd.Flags().GetInt("page-count")

	answer, err := a.dispatcher.Ask(cmd.Context(), strings.Join(args, " "), message.NavigationContext{
		CurrentPage: page,
		PageCount:   pageCount,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(answer)
}
