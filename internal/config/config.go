// Package config handles subq project configuration.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/subq/internal/querysql"
)

// FileName is the config file looked up in the working directory.
const FileName = "subq.toml"

// Config represents the project configuration. Command-line flags
// override every value set here.
type Config struct {
	// Dialect is the default SQL dialect: sqlite, postgres or mysql.
	Dialect string `toml:"dialect"`

	// Models is the default CUE models directory.
	Models string `toml:"models"`

	// StableOrdering appends the primary key to root query ordering.
	StableOrdering bool `toml:"stable_ordering"`

	// Run configures the run command.
	Run RunConfig `toml:"run"`
}

// RunConfig configures query execution.
type RunConfig struct {
	// Database is the SQLite database path used by run.
	Database string `toml:"database"`
}

// Load loads the configuration from path. An empty path means FileName
// in the working directory, which may be absent; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(FileName); os.IsNotExist(err) {
			return &Config{}, nil
		}
		path = FileName
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path. Unknown keys
// are rejected.
func LoadFrom(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if config.Dialect != "" {
		if _, err := querysql.DialectByName(config.Dialect); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return &config, nil
}
