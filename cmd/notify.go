/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobboard/apiserver/config"
	"github.com/jobboard/apiserver/internal/logger"
	"github.com/jobboard/apiserver/internal/mq"
	"github.com/jobboard/apiserver/internal/notify"
)

// notifyCmd consumes application events and notifies employers.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume application events and notify employers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.New(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer func() {
			_ = queue.Close()
		}()
		if !queue.Enabled() {
			return fmt.Errorf("notify needs MQ_BACKEND set to %s or %s", config.MQBackendRabbitMQ, config.MQBackendPubSub)
		}

		consumer := notify.NewConsumer(queue, notify.LogNotifier{Logger: log}, log)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
