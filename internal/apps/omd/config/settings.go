package omdconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Settings are the global knobs read from <root>/config.toml. Every key can
// be overridden from the environment, e.g. OMD_HTTPS_ENABLED=false.
type Settings struct {
	Caddy CaddySettings `mapstructure:"caddy"`
	HTTPS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"https"`
	Hosts HostsSettings `mapstructure:"hosts"`

	root string
}

type CaddySettings struct {
	// Container is the name of the running proxy container.
	Container string `mapstructure:"container"`
	// Config is the Caddyfile path inside the proxy container.
	Config string `mapstructure:"config"`
	// CertsMount is where certificates are mounted inside the proxy container.
	CertsMount  string `mapstructure:"certs_mount"`
	ProjectsDir string `mapstructure:"projects_dir"`
}

type HostsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
	Address string `mapstructure:"address"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("caddy.container", "omd-caddy")
	v.SetDefault("caddy.config", "/etc/caddy/Caddyfile")
	v.SetDefault("caddy.certs_mount", "/certs")
	v.SetDefault("caddy.projects_dir", "caddy/projects")
	v.SetDefault("https.enabled", true)
	v.SetDefault("hosts.enabled", false)
	v.SetDefault("hosts.file", "/etc/hosts")
	v.SetDefault("hosts.address", "127.0.0.1")
}

// LoadSettings reads config.toml under root. A missing file means defaults.
func LoadSettings(fsys afero.Fs, root string) (*Settings, error) {
	v := viper.New()
	v.SetFs(fsys)
	setDefaults(v)

	v.SetEnvPrefix("omd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := filepath.Join(root, "config.toml")
	exists, err := afero.Exists(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", file, err)
	}
	if exists {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", file, err)
	}
	s.root = root
	return &s, nil
}

// CaddyProjectsDir is where per-project fragments live on the host.
func (s *Settings) CaddyProjectsDir() string {
	dir, err := homedir.Expand(s.Caddy.ProjectsDir)
	if err != nil {
		dir = s.Caddy.ProjectsDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(s.root, dir)
}
