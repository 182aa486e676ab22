// internal/config/database.go
package config

import (
	"fmt"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DSN builds a lib/pq style connection string. Sessions run in UTC so
// timestamps in the audit trail compare without conversion.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

func (d *DatabaseConfig) InMemory() bool {
	return d.Driver == DriverMemory
}
