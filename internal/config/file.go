package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// FileConfig is the optional taskmesh.yaml layer (§4.7/§9): it sets
// defaults for concurrency, max-attempts, log-level, and log-format at
// lower priority than the matching CLI flags/environment variable. Zero
// values mean "not set in the file" and the caller's own default applies.
type FileConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	MaxAttempts int    `mapstructure:"max-attempts"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
}

// LoadFileConfig reads taskmesh.yaml from workspaceRoot if present. A
// missing file returns a zero-value FileConfig and a nil error (all
// settings fall through to CLI/environment defaults). A malformed file
// returns an error; the caller decides whether to warn-and-continue.
func LoadFileConfig(workspaceRoot string) (FileConfig, error) {
	var fc FileConfig

	path := filepath.Join(workspaceRoot, "taskmesh.yaml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fc, errors.New("invalid taskmesh.yaml: " + err.Error())
	}
	if err := v.Unmarshal(&fc); err != nil {
		return fc, errors.New("invalid taskmesh.yaml: " + err.Error())
	}
	return fc, nil
}
