package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL = "http://localhost:8092"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "warn"

	envPrefix = "SHOPCTL"
)

// dotEnvFile is loaded before the environment is consulted, if present.
var dotEnvFile = ".env"

type Config struct {
	CurrentProfile string              `yaml:"current_profile" mapstructure:"current_profile"`
	Defaults       Defaults            `yaml:"defaults" mapstructure:"defaults"`
	Profiles       map[string]*Profile `yaml:"profiles" mapstructure:"profiles"`
	path           string
}

// Defaults apply to every profile that does not override them.
type Defaults struct {
	ServerURL string        `yaml:"server_url" mapstructure:"server_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	LogLevel  string        `yaml:"log_level" mapstructure:"log_level"`
}

// Profile is one named login. The token fields are the persisted session.
type Profile struct {
	ServerURL    string `yaml:"server_url,omitempty" mapstructure:"server_url"`
	AccessToken  string `yaml:"access_token,omitempty" mapstructure:"access_token"`
	RefreshToken string `yaml:"refresh_token,omitempty" mapstructure:"refresh_token"`
	Username     string `yaml:"username,omitempty" mapstructure:"username"`
	Role         string `yaml:"role,omitempty" mapstructure:"role"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Defaults: Defaults{
			ServerURL: DefaultServerURL,
			Timeout:   DefaultTimeout,
			LogLevel:  DefaultLogLevel,
		},
		Profiles: make(map[string]*Profile),
	}
}

// DefaultPath returns $HOME/.shopctl/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".shopctl", "config.yaml"), nil
}

// Load reads cfgFile (default $HOME/.shopctl/config.yaml). A missing file is
// not an error. SHOPCTL_SERVER_URL, SHOPCTL_TIMEOUT and SHOPCTL_LOG_LEVEL
// override the defaults section, and a .env file in the working directory is
// loaded into the environment first.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", dotEnvFile, err)
	}

	if cfgFile == "" {
		var err error
		if cfgFile, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetDefault("current_profile", "default")
	v.SetDefault("defaults.server_url", DefaultServerURL)
	v.SetDefault("defaults.timeout", DefaultTimeout)
	v.SetDefault("defaults.log_level", DefaultLogLevel)

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys need explicit bindings.
	_ = v.BindEnv("defaults.server_url", envPrefix+"_SERVER_URL")
	_ = v.BindEnv("defaults.timeout", envPrefix+"_TIMEOUT")
	_ = v.BindEnv("defaults.log_level", envPrefix+"_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	cfg := Default()
	cfg.path = cfgFile

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}

	return cfg, nil
}

// Path is the file Save writes to.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) Save() error {
	if c.path == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = path
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}

	return profile, nil
}

// SetServerURL pins a profile to a backend, creating the profile if needed.
func (c *Config) SetServerURL(name, serverURL string) error {
	c.profile(name).ServerURL = serverURL
	return c.Save()
}

// ServerURL resolves the backend for a profile, falling back to the defaults.
func (c *Config) ServerURL(name string) string {
	if name == "" {
		name = c.CurrentProfile
	}
	if p, ok := c.Profiles[name]; ok && p.ServerURL != "" {
		return p.ServerURL
	}
	if c.Defaults.ServerURL != "" {
		return c.Defaults.ServerURL
	}
	return DefaultServerURL
}

// Timeout is the per-request timeout, never zero.
func (c *Config) Timeout() time.Duration {
	if c.Defaults.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Defaults.Timeout
}

// UseProfile makes an existing profile the current one.
func (c *Config) UseProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	c.CurrentProfile = name
	return c.Save()
}

func (c *Config) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(c.Profiles, name)

	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.Save()
}

// profile returns the named profile, creating an empty one if missing.
func (c *Config) profile(name string) *Profile {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	p, ok := c.Profiles[name]
	if !ok {
		p = &Profile{}
		c.Profiles[name] = p
	}
	return p
}
