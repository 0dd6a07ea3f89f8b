package main

import (
	"context"

	"actassist-backend/cmd/actassist-cli/commands"
	"actassist-backend/lib/serviceutil"
	"actassist-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	// exporting is optional for the cli, a missing telemetry.json5 is fine
	tel, _ := telemetry.SetupFromEnv(ctx, "actassist-cli")
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
