// Package di wires the run store and the reduction pipeline together.
package di

import (
	"github.com/aristath/plaquette/internal/database"
	"github.com/aristath/plaquette/internal/modules/runs"
)

// Container holds the long-lived dependencies of the process.
type Container struct {
	RunsDB *database.DB
	Runs   *runs.Repository
}

// Close releases the container's databases.
func (c *Container) Close() error {
	if c == nil || c.RunsDB == nil {
		return nil
	}
	return c.RunsDB.Close()
}
