package config

import (
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	ModeSingle       = "single"
	ModeMulti        = "multi"
	ModeLoadBalanced = "loadbalanced"
)

const (
	ProbeTCP  = "tcp"
	ProbeHTTP = "http"
)

type ServerConfig struct {
	Environment  string `mapstructure:"environment"`
	AdminAddress string `mapstructure:"admin_address"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type TLSConfig struct {
	CertDir string `mapstructure:"cert_dir"`
}

type DiscoveryConfig struct {
	APIURL        string   `mapstructure:"api_url"`
	NamePrefix    string   `mapstructure:"name_prefix"`
	KeepPrefix    bool     `mapstructure:"keep_prefix"`
	StaticTargets []string `mapstructure:"static_targets"`
	Timeout       string   `mapstructure:"timeout"`
}

type ProbeConfig struct {
	Protocol       string `mapstructure:"protocol"`
	HTTPPath       string `mapstructure:"http_path"`
	Port           int    `mapstructure:"port"`
	ConnectTimeout string `mapstructure:"connect_timeout"`
	TotalTimeout   string `mapstructure:"total_timeout"`
	MaxParallel    int    `mapstructure:"max_parallel"`
}

type CacheConfig struct {
	Duration string `mapstructure:"duration"`
}

type ReconcileConfig struct {
	Interval string `mapstructure:"interval"`
}

type NginxConfig struct {
	ConfigPath string `mapstructure:"config_path"`
	Binary     string `mapstructure:"binary"`
	ListenPort int    `mapstructure:"listen_port"`
}

type PassiveConfig struct {
	MaxFails    int    `mapstructure:"max_fails"`
	FailTimeout string `mapstructure:"fail_timeout"`
}

type RetryConfig struct {
	Tries   int    `mapstructure:"tries"`
	Timeout string `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Rate    string   `mapstructure:"rate"`
	Burst   int      `mapstructure:"burst"`
	Paths   []string `mapstructure:"paths"`
}

type EvidenceConfig struct {
	Dir string `mapstructure:"dir"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Mode      string          `mapstructure:"mode"`
	Domains   []string        `mapstructure:"domains"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Nginx     NginxConfig     `mapstructure:"nginx"`
	Passive   PassiveConfig   `mapstructure:"passive"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Evidence  EvidenceConfig  `mapstructure:"evidence"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.admin_address", ":9180")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("mode", ModeLoadBalanced)
	viper.SetDefault("tls.cert_dir", "/etc/meshfront/certs")
	viper.SetDefault("discovery.api_url", "http://127.0.0.1:4280")
	viper.SetDefault("discovery.keep_prefix", true)
	viper.SetDefault("discovery.timeout", "10s")
	viper.SetDefault("probe.protocol", ProbeHTTP)
	viper.SetDefault("probe.http_path", "/health")
	viper.SetDefault("probe.port", 8080)
	viper.SetDefault("probe.connect_timeout", "5s")
	viper.SetDefault("probe.total_timeout", "10s")
	viper.SetDefault("probe.max_parallel", 10)
	viper.SetDefault("cache.duration", "1h")
	viper.SetDefault("reconcile.interval", "60s")
	viper.SetDefault("nginx.config_path", "/etc/nginx/conf.d/meshfront.conf")
	viper.SetDefault("nginx.binary", "nginx")
	viper.SetDefault("nginx.listen_port", 443)
	viper.SetDefault("passive.max_fails", 2)
	viper.SetDefault("passive.fail_timeout", "30s")
	viper.SetDefault("retry.tries", 2)
	viper.SetDefault("retry.timeout", "30s")
	viper.SetDefault("ratelimit.enabled", false)
	viper.SetDefault("ratelimit.rate", "10r/s")
	viper.SetDefault("ratelimit.burst", 20)
	viper.SetDefault("evidence.dir", "/var/lib/meshfront/evidence")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

var rateLimitRatePattern = regexp.MustCompile(`^\d+r/[sm]$`)

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.AdminAddress,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Mode,
			validation.Required,
			validation.In(ModeSingle, ModeMulti, ModeLoadBalanced),
		),
		validation.Field(&c.Domains,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateDomain)),
		),
		validation.Field(&c.Discovery,
			validation.Required,
			validation.By(c.validateDiscovery),
		),
		validation.Field(&c.Probe,
			validation.Required,
			validation.By(validateProbe),
		),
		validation.Field(&c.Cache,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CacheConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CacheConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.Duration,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Reconcile,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(ReconcileConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ReconcileConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Nginx,
			validation.Required,
			validation.By(func(value interface{}) error {
				nc, ok := value.(NginxConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a NginxConfig")
				}
				return validation.ValidateStruct(&nc,
					validation.Field(&nc.ConfigPath, validation.Required),
					validation.Field(&nc.Binary, validation.Required),
					validation.Field(&nc.ListenPort,
						validation.Required,
						validation.Min(1),
						validation.Max(65535),
					),
				)
			}),
		),
		validation.Field(&c.Passive,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PassiveConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PassiveConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.MaxFails, validation.Required, validation.Min(1)),
					validation.Field(&pc.FailTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Retry,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RetryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Tries, validation.Required, validation.Min(1), validation.Max(2)),
					validation.Field(&rc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.RateLimit,
			validation.By(validateRateLimit),
		),
	)
}

func (c *Config) validateDiscovery(value interface{}) error {
	dc, ok := value.(DiscoveryConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DiscoveryConfig")
	}

	fields := []*validation.FieldRules{
		validation.Field(&dc.Timeout,
			validation.Required,
			validation.By(validateDuration),
		),
	}

	switch c.Mode {
	case ModeLoadBalanced:
		fields = append(fields,
			validation.Field(&dc.APIURL, validation.Required, is.URL),
		)
	case ModeSingle:
		fields = append(fields,
			validation.Field(&dc.StaticTargets, validation.Required, validation.Length(1, 1)),
		)
	case ModeMulti:
		fields = append(fields,
			validation.Field(&dc.StaticTargets, validation.Required, validation.Length(1, 0)),
		)
	}

	return validation.ValidateStruct(&dc, fields...)
}

func validateProbe(value interface{}) error {
	pc, ok := value.(ProbeConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
	}
	return validation.ValidateStruct(&pc,
		validation.Field(&pc.Protocol,
			validation.Required,
			validation.In(ProbeTCP, ProbeHTTP),
		),
		validation.Field(&pc.Port,
			validation.Required,
			validation.Min(1),
			validation.Max(65535),
		),
		validation.Field(&pc.ConnectTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
		validation.Field(&pc.TotalTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
		validation.Field(&pc.MaxParallel,
			validation.Required,
			validation.Min(1),
		),
	)
}

func validateRateLimit(value interface{}) error {
	rl, ok := value.(RateLimitConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RateLimitConfig")
	}

	if !rl.Enabled {
		return nil
	}

	return validation.ValidateStruct(&rl,
		validation.Field(&rl.Rate,
			validation.Required,
			validation.Match(rateLimitRatePattern).
				Error("must be a rate like 10r/s or 600r/m"),
		),
		validation.Field(&rl.Burst, validation.Required, validation.Min(1)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateDomain(value interface{}) error {
	domain, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if domain == "" {
		return validation.NewError("validation_empty_domain", "domain cannot be empty")
	}

	if err := is.DNSName.Validate(domain); err != nil {
		return validation.NewError("validation_invalid_domain", "must be a valid DNS name")
	}

	return nil
}
