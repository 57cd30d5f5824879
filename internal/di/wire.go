package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/plaquette/internal/config"
	"github.com/aristath/plaquette/internal/modules/runs"
)

// Wire initializes all dependencies and returns a configured container.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	container.Runs = runs.NewRepository(container.RunsDB.Conn(), log)
	return container, nil
}
