package main

import (
	"context"

	"dcad-backend/cmd/dcad-cli/commands"
	"dcad-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "dcad-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
