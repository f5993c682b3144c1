package main

import (
	"context"
	"os"

	"finsight/internal/amqp"
	"finsight/internal/cli"
	"finsight/internal/config"
	"finsight/internal/log"
	gsheet "finsight/internal/sheets/google"
	"finsight/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(log.ComponentWorker)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	mirror, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
		JSON:            cfg.GoogleServiceAccountJSON,
		File:            cfg.GoogleServiceAccountFile,
		OAuthClientJSON: cfg.GoogleOAuthClientJSON,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return worker.NewEventWorker(mirror, logger).Run(ctx, client)
}
