package config

import (
	"fmt"
	"strings"
)

// DatabaseConfig configures the relational session store.
type DatabaseConfig struct {
	// Driver is one of postgres, mysql, sqlite.
	Driver string `yaml:"driver,omitempty"`

	// URL is a full DSN (DATABASE_URL). When set it wins over the
	// individual fields below.
	URL string `yaml:"url,omitempty"`

	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`

	// Path is the file path for the sqlite driver.
	Path string `yaml:"path,omitempty"`

	MaxConns int `yaml:"max_conns,omitempty"`
	MaxIdle  int `yaml:"max_idle,omitempty"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		// DATABASE_URL scheme decides the driver when present.
		switch {
		case strings.HasPrefix(c.URL, "postgres://"), strings.HasPrefix(c.URL, "postgresql://"):
			c.Driver = "postgres"
		case strings.HasPrefix(c.URL, "mysql://"):
			c.Driver = "mysql"
		default:
			c.Driver = "sqlite"
		}
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		switch c.Driver {
		case "postgres":
			c.Port = 5432
		case "mysql":
			c.Port = 3306
		}
	}
	if c.Database == "" {
		c.Database = "salesmind"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.Path == "" {
		c.Path = "salesmind.db"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: postgres, mysql, sqlite)", c.Driver)
	}
	return nil
}

// ConnectionString builds the driver-specific DSN.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" && c.Driver != "mysql" {
		return c.URL
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
	case "mysql":
		if c.URL != "" {
			// go-sql-driver does not accept URL-style DSNs.
			return strings.TrimPrefix(c.URL, "mysql://")
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	default:
		return c.Path
	}
}
