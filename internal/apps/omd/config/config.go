package omdconfig

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// EnvConfigDir overrides the config root.
const EnvConfigDir = "OMD_DIR"

// ConfigBasePath is $OMD_DIR, or ~/.omd.
func ConfigBasePath() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}

	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), "omd")
	}
	return filepath.Join(home, ".omd")
}

func RegistryFile() string {
	return filepath.Join(ConfigBasePath(), "registry.json")
}

func StateDBFile() string {
	return filepath.Join(ConfigBasePath(), "state.db")
}

func SettingsFile() string {
	return filepath.Join(ConfigBasePath(), "config.toml")
}

func LogsPath() string {
	return filepath.Join(ConfigBasePath(), "logs")
}

func RunLogPath() string {
	return filepath.Join(LogsPath(), "omd.log")
}
