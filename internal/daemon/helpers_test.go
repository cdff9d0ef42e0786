package daemon_test

import (
	"log/slog"

	"tunebind/internal/logging"
)

func testLogger() *slog.Logger { return logging.NewNop() }
