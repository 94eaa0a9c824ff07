package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/innbucks/dashboard/internal/engine"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Generator GeneratorConfig `mapstructure:"generator"`
	// Out is the directory cmd/export writes into.
	Out string `mapstructure:"out"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"env"`
	Version     string `mapstructure:"version"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GeneratorConfig selects a profile and overrides its size parameters.
// Nil overrides keep the profile's own settings.
type GeneratorConfig struct {
	Profile      string   `mapstructure:"profile"`
	Customers    *int     `mapstructure:"customers"`
	LookbackDays *int     `mapstructure:"lookback_days"`
	Lambda       *float64 `mapstructure:"lambda"`
	Agents       *int     `mapstructure:"agents"`
	Seed         *uint64  `mapstructure:"seed"`
	Unseeded     bool     `mapstructure:"unseeded"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "innbucks-dashboard")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("generator.profile", engine.ProfileClassic)
	v.SetDefault("generator.unseeded", false)
	v.SetDefault("out", "./output")
}

// Overrides without a default are only visible to AutomaticEnv once bound.
var optionalKeys = []string{
	"generator.customers",
	"generator.lookback_days",
	"generator.lambda",
	"generator.agents",
	"generator.seed",
}

// Flags registers the command line overrides on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("profile", engine.ProfileClassic, "generator profile: classic, extended or full")
	fs.Int("customers", 0, "customer count")
	fs.Int("lookback-days", 0, "transaction lookback window in days")
	fs.Float64("lambda", 0, "mean transactions per account")
	fs.Int("agents", 0, "agent count")
	fs.Uint64("seed", 0, "random seed (overrides the profile seed)")
	fs.Bool("unseeded", false, "draw fresh entropy instead of a fixed seed")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "json", "log format: json or console")
	fs.String("out", "./output", "export directory")
}

// Load reads .env, dashboard.yml, INNBUCKS_* environment variables and
// the flags changed in fs (which may be nil), in increasing precedence.
func Load(fs *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("dashboard")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/innbucks")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INNBUCKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range optionalKeys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if fs != nil {
		if err := applyFlags(&cfg, fs); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	num := func(name string, dst **int) {
		if fs.Changed(name) {
			v, err := fs.GetInt(name)
			errs = append(errs, err)
			*dst = &v
		}
	}

	str("profile", &cfg.Generator.Profile)
	str("addr", &cfg.HTTP.Addr)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	str("out", &cfg.Out)
	num("customers", &cfg.Generator.Customers)
	num("lookback-days", &cfg.Generator.LookbackDays)
	num("agents", &cfg.Generator.Agents)
	if fs.Changed("lambda") {
		v, err := fs.GetFloat64("lambda")
		errs = append(errs, err)
		cfg.Generator.Lambda = &v
	}
	if fs.Changed("seed") {
		v, err := fs.GetUint64("seed")
		errs = append(errs, err)
		cfg.Generator.Seed = &v
	}
	if fs.Changed("unseeded") {
		v, err := fs.GetBool("unseeded")
		errs = append(errs, err)
		cfg.Generator.Unseeded = v
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}

// Validate checks the non-generator sections and the resolved generator
// config.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr cannot be empty"))
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
		errs = append(errs, errors.New("http rate limit must not be negative"))
	}
	if _, err := c.GeneratorConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GeneratorConfig resolves the profile and applies overrides. The result
// is validated.
func (c Config) GeneratorConfig() (engine.GeneratorConfig, error) {
	g := c.Generator
	out, err := engine.ProfileConfig(g.Profile)
	if err != nil {
		return out, err
	}
	if g.Customers != nil {
		out.CustomerCount = *g.Customers
	}
	if g.LookbackDays != nil {
		out.LookbackDays = *g.LookbackDays
	}
	if g.Lambda != nil {
		out.TransactionsPerAccount = *g.Lambda
	}
	if g.Agents != nil {
		out.AgentCount = *g.Agents
	}
	if g.Seed != nil {
		s := *g.Seed
		out.Seed = &s
	}
	if g.Unseeded {
		out.Seed = nil
	}
	return out, out.Validate()
}
