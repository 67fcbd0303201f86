package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"anidata-backend/cmd/anidata/commands"
	"anidata-backend/lib/telemetry"
	"anidata-backend/lib/util/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "anidata")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to set up telemetry", "err", err)
	}
	defer tel.Shutdown(context.Background())

	telemetry.InstrumentPerfStats(ctx)
	commands.ExecuteContext(ctx)
}
