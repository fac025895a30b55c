package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"courserank-backend/cmd/courserank/commands"
	"courserank-backend/lib/serviceutil"
	"courserank-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "courserank")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	code := commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err = t.Shutdown(shutdownCtx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	os.Exit(code)
}
