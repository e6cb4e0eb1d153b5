package config

import (
	"fmt"
	"strings"

	"mortality-platform/internal/models"
)

// server.port -> MORTALITY_SERVER_PORT
var envKeyReplacer = strings.NewReplacer(".", "_")

// ServerAddress returns the HTTP listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Database,
		d.SSLMode,
	)
}

// ColumnMap converts the column configuration to its domain form
func (c ColumnConfig) ColumnMap() models.ColumnMap {
	return models.ColumnMap{
		Jurisdiction: c.Jurisdiction,
		Group:        c.Group,
		Subgroup:     c.Subgroup,
		Year:         c.Year,
		Month:        c.Month,
		DeathCount:   c.DeathCount,
	}
}
