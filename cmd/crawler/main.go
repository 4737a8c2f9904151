package main

import (
	"context"
	"log/slog"
	"os"

	"nhlcrawl-backend/cmd/crawler/commands"
	"nhlcrawl-backend/lib/serviceutil"
	"nhlcrawl-backend/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	telemetry.InitSlog(os.Getenv("LOG_LEVEL") == "debug")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to load .env", err)
	}

	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "crawler")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer tel.Shutdown(context.Background())
		if err := telemetry.InstrumentPerfStats(ctx); err != nil {
			serviceutil.Fatal("failed to register perf gauges", err)
		}
	} else {
		slog.Debug("no telemetry.json5 found, running without exporters")
	}

	commands.ExecuteContext(ctx)
}
