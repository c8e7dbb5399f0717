package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukikurage/project-board-api/internal/repository"
	"github.com/yukikurage/project-board-api/internal/services"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send reminders for tasks scheduled today",
	Long: `Finds open tasks scheduled for today and sends one reminder per
project to its owner. Meant to be run once a day by a scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reminders := services.NewReminderService(
			repository.NewTaskRepository(db),
			repository.NewProjectRepository(db),
			repository.NewUserRepository(db),
			services.LogNotifier{Logger: logger},
			logger,
		)

		sent, err := reminders.SendDueToday(cmd.Context())
		if err != nil {
			return fmt.Errorf("send reminders: %w", err)
		}
		logger.Info("reminders sent", zap.Int("count", sent))
		return nil
	},
}
