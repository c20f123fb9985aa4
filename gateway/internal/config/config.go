package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GeneratorKind is the kind of the text generation backend.
type GeneratorKind string

const (
	// GeneratorKindEcho returns the inputs unchanged.
	GeneratorKindEcho GeneratorKind = "echo"
	// GeneratorKindTriton forwards to a Triton Inference Server ensemble model.
	GeneratorKindTriton GeneratorKind = "triton"
	// GeneratorKindOllama forwards to an Ollama server.
	GeneratorKindOllama GeneratorKind = "ollama"
	// GeneratorKindVLLM forwards to the OpenAI-compatible completion API of vLLM.
	GeneratorKindVLLM GeneratorKind = "vllm"
)

const (
	defaultHost           = "localhost"
	defaultHTTPPort       = 8000
	defaultMonitoringPort = 8081

	defaultMaxConcurrency  = 1
	defaultLoadTimeout     = 10 * time.Minute
	defaultLoadRetryPeriod = 5 * time.Second
)

// GeneratorConfig is the configuration of the generator.
type GeneratorConfig struct {
	Kind GeneratorKind `yaml:"kind"`
	// Pretrained is the identifier of the pretrained model the backend serves.
	Pretrained string `yaml:"pretrained"`
	// BaseURL is the URL of the backend. Not used by the echo generator.
	BaseURL string `yaml:"baseUrl"`

	// MaxConcurrency is the number of generations that can run at the same time.
	// 0 removes the limit and requires a backend that handles concurrent requests.
	MaxConcurrency *int `yaml:"maxConcurrency"`

	// LoadTimeout is how long the gateway waits for the backend to become ready at start-up.
	LoadTimeout time.Duration `yaml:"loadTimeout"`
	// LoadRetryPeriod is the interval between two readiness checks of the backend.
	LoadRetryPeriod time.Duration `yaml:"loadRetryPeriod"`
}

// Concurrency returns the configured concurrency limit.
func (c *GeneratorConfig) Concurrency() int {
	if c.MaxConcurrency == nil {
		return defaultMaxConcurrency
	}
	return *c.MaxConcurrency
}

func (c *GeneratorConfig) validate() error {
	switch c.Kind {
	case GeneratorKindEcho:
	case GeneratorKindTriton, GeneratorKindOllama, GeneratorKindVLLM:
		if c.BaseURL == "" {
			return fmt.Errorf("baseUrl must be set for %q", c.Kind)
		}
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("baseUrl: %s", err)
		}
		if c.Kind != GeneratorKindTriton && c.Pretrained == "" {
			return fmt.Errorf("pretrained must be set for %q", c.Kind)
		}
		if c.LoadTimeout <= 0 {
			return fmt.Errorf("loadTimeout must be greater than 0")
		}
		if c.LoadRetryPeriod <= 0 {
			return fmt.Errorf("loadRetryPeriod must be greater than 0")
		}
	case "":
		return fmt.Errorf("kind must be set")
	default:
		return fmt.Errorf("unknown kind %q", c.Kind)
	}
	if c.Concurrency() < 0 {
		return fmt.Errorf("maxConcurrency must not be negative")
	}
	return nil
}

// CORSConfig is the CORS configuration.
type CORSConfig struct {
	// AllowedOrigins is the list of origins allowed to call the API. "*" allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Config is the configuration.
type Config struct {
	Host           string `yaml:"host"`
	HTTPPort       int    `yaml:"httpPort"`
	MonitoringPort int    `yaml:"monitoringPort"`

	Generator GeneratorConfig `yaml:"generator"`

	CORS CORSConfig `yaml:"cors"`

	// GracefulShutdownTimeout bounds how long in-flight generations are waited for on shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"gracefulShutdownTimeout"`
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = defaultHTTPPort
	}
	if c.MonitoringPort == 0 {
		c.MonitoringPort = defaultMonitoringPort
	}
	if c.Generator.LoadTimeout == 0 {
		c.Generator.LoadTimeout = defaultLoadTimeout
	}
	if c.Generator.LoadRetryPeriod == 0 {
		c.Generator.LoadRetryPeriod = defaultLoadRetryPeriod
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.GracefulShutdownTimeout == 0 {
		c.GracefulShutdownTimeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("httpPort must be greater than 0")
	}
	if c.MonitoringPort <= 0 {
		return fmt.Errorf("monitoringPort must be greater than 0")
	}
	if c.HTTPPort == c.MonitoringPort {
		return fmt.Errorf("httpPort and monitoringPort must be different")
	}
	if err := c.Generator.validate(); err != nil {
		return fmt.Errorf("generator: %s", err)
	}
	if c.GracefulShutdownTimeout < 0 {
		return fmt.Errorf("gracefulShutdownTimeout must not be negative")
	}
	return nil
}

// Parse parses the configuration file at the given path, returning a new
// Config struct.
func Parse(path string) (Config, error) {
	var config Config

	b, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("config: read: %s", err)
	}

	if err = yaml.Unmarshal(b, &config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %s", err)
	}
	config.setDefaults()
	return config, nil
}
