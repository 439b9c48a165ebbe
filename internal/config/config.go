package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings shared by the commands. Values come from
// WEBAPPINFO_* environment variables and may be overridden by flags.
type Config struct {
	OutputDir    string        `env:"OUTPUT_DIR" envDefault:"/tmp/webappinfo-apps"`
	Debug        bool          `env:"DEBUG"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	MaxIconBytes int64         `env:"MAX_ICON_BYTES" envDefault:"1048576"`
	IconSizes    []int         `env:"ICON_SIZES" envSeparator:"," envDefault:"16,32,48,128"`
	DockerHost   string        `env:"DOCKER_APP_HOST" envDefault:"localhost"`
}

const envPrefix = "WEBAPPINFO_"

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from environment, or from the process
// environment when environment is nil.
func LoadFrom(environment map[string]string) (*Config, error) {
	var cfg Config
	opts := env.Options{Prefix: envPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RegisterFlags binds flags to c so that flag values override env values.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.OutputDir, "output", c.OutputDir, "Output directory for installed web apps")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.DurationVar(&c.FetchTimeout, "timeout", c.FetchTimeout, "HTTP timeout for page and icon requests")
	fs.Int64Var(&c.MaxIconBytes, "max-icon-bytes", c.MaxIconBytes, "Maximum size of a single icon download")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "How long downloaded icons are cached (0 disables)")
	fs.StringVar(&c.DockerHost, "docker-host", c.DockerHost, "Host used in URLs of container apps")
	fs.Func("icon-sizes", fmt.Sprintf("Comma separated icon sizes to generate (default %s)", joinInts(c.IconSizes)), func(s string) error {
		sizes, err := parseInts(s)
		if err != nil {
			return err
		}
		c.IconSizes = sizes
		return nil
	})
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// Validate rejects settings the commands cannot work with.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxIconBytes <= 0 {
		return fmt.Errorf("max icon bytes must be positive, got %d", c.MaxIconBytes)
	}
	for _, s := range c.IconSizes {
		if s <= 0 {
			return fmt.Errorf("icon sizes must be positive, got %d", s)
		}
	}
	return nil
}
