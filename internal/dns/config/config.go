package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/dnsq/internal/dns/domain"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. DNSQ_TIMEOUT.
const EnvPrefix = "DNSQ_"

var (
	ErrUsage              = errors.New("usage: dnsq [-t timeout] [-r max-retries] [-p port] [-mx|-ns] [-format text|yaml] [-config file] @server name")
	ErrServerPrefix       = errors.New("server address must start with '@'")
	ErrConflictingTypes   = errors.New("-mx and -ns cannot be used together")
	ErrUnexpectedArgument = errors.New("unexpected argument")
)

// AppConfig holds the settings for a single query.
type AppConfig struct {
	// Timeout is how long to wait for each response attempt, in seconds.
	Timeout int `koanf:"timeout" validate:"gte=1"`

	// MaxRetries is the total number of attempts made before giving up.
	MaxRetries int `koanf:"max_retries" validate:"gte=1"`

	// Port is the UDP port of the DNS server.
	Port int `koanf:"port" validate:"gte=0,lte=65535"`

	// RecordType is the query type: "A", "NS" or "MX".
	RecordType string `koanf:"record_type" validate:"required,oneof=A NS MX"`

	// Server is the IPv4 address of the DNS server, without the leading '@'.
	Server string `koanf:"server" validate:"required,ipv4"`

	// Domain is the name to look up.
	Domain string `koanf:"domain" validate:"required,dns_name"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Format selects the output renderer.
	Format string `koanf:"format" validate:"required,oneof=text yaml"`
}

// DefaultAppConfig mirrors the defaults of the original command-line client.
var DefaultAppConfig = AppConfig{
	Timeout:    5,
	MaxRetries: 3,
	Port:       53,
	RecordType: "A",
	Env:        "prod",
	LogLevel:   "warn",
	Format:     "text",
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *AppConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// QueryType returns RecordType as a domain.RRType.
func (c *AppConfig) QueryType() domain.RRType {
	return domain.RRTypeFromString(c.RecordType)
}

// validDNSName checks the field with the same label rules the encoder applies.
func validDNSName(fl validator.FieldLevel) bool {
	_, err := domain.NormalizeName(fl.Field().String())
	return err == nil
}

// cliArgs is the result of parsing the command line: the values the user set
// explicitly, keyed like AppConfig, plus the config file path if one was given.
type cliArgs struct {
	values     map[string]any
	configPath string
}

func parseArgs(args []string) (cliArgs, error) {
	fs := flag.NewFlagSet("dnsq", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	timeout := fs.Int("t", DefaultAppConfig.Timeout, "seconds to wait before retransmitting")
	retries := fs.Int("r", DefaultAppConfig.MaxRetries, "maximum number of attempts")
	port := fs.Int("p", DefaultAppConfig.Port, "UDP port of the DNS server")
	mx := fs.Bool("mx", false, "send a mail server query")
	ns := fs.Bool("ns", false, "send a name server query")
	format := fs.String("format", DefaultAppConfig.Format, "output format: text or yaml")
	configPath := fs.String("config", "", "optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return cliArgs{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	out := cliArgs{values: map[string]any{}}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			out.values["timeout"] = *timeout
		case "r":
			out.values["max_retries"] = *retries
		case "p":
			out.values["port"] = *port
		case "format":
			out.values["format"] = *format
		case "config":
			out.configPath = *configPath
		}
	})

	switch {
	case *mx && *ns:
		return cliArgs{}, ErrConflictingTypes
	case *mx:
		out.values["record_type"] = "MX"
	case *ns:
		out.values["record_type"] = "NS"
	}

	rest := fs.Args()
	switch {
	case len(rest) < 2:
		return cliArgs{}, ErrUsage
	case len(rest) > 2:
		return cliArgs{}, fmt.Errorf("%w: %q", ErrUnexpectedArgument, rest[2])
	}
	server, ok := strings.CutPrefix(rest[0], "@")
	if !ok {
		return cliArgs{}, ErrServerPrefix
	}
	out.values["server"] = server
	out.values["domain"] = rest[1]

	return out, nil
}

// envLoader loads environment variables with the prefix "DNSQ_".
// Keys are lowercased with the prefix removed. Tests may replace it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DefaultAppConfig through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

// fileLoader merges a YAML config file over whatever is already loaded.
var fileLoader = func(k *koanf.Koanf, path string) error {
	return k.Load(file.Provider(path), yaml.Parser())
}

// registerValidation registers the custom "dns_name" validation.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("dns_name", validDNSName)
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment and finally the command line, then validates the result.
func Load(args []string) (*AppConfig, error) {
	cli, err := parseArgs(args)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	path := cli.configPath
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	if err := k.Load(confmap.Provider(cli.values, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading flags: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.RecordType = strings.ToUpper(cfg.RecordType)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
