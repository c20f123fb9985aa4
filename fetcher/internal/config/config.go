package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRegistryBaseURL is the base URL of the Hugging Face Hub.
	DefaultRegistryBaseURL = "https://huggingface.co"
	// DefaultUserAgent is sent on registry lookups.
	DefaultUserAgent = "Hugging Face Python"
	// DefaultRevision is the revision files are resolved against.
	DefaultRevision = "main"

	defaultProgressInterval = 2 * time.Second
)

// RegistryConfig is the configuration of the remote model registry.
type RegistryConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	UserAgent string `yaml:"userAgent"`
	Revision  string `yaml:"revision"`
}

func (c *RegistryConfig) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("baseUrl: %s", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("baseUrl must be an http or https URL")
	}
	if c.Revision == "" {
		return fmt.Errorf("revision must be set")
	}
	return nil
}

// S3Config is the S3 configuration.
type S3Config struct {
	EndpointURL string `yaml:"endpointUrl"`
	Region      string `yaml:"region"`
	Bucket      string `yaml:"bucket"`
	// PathPrefix is prepended to the object keys of mirrored files.
	PathPrefix string `yaml:"pathPrefix"`
}

// ObjectStoreConfig is the object store configuration.
type ObjectStoreConfig struct {
	S3 S3Config `yaml:"s3"`
}

// Enabled returns true if an object store is configured.
func (c *ObjectStoreConfig) Enabled() bool {
	return c.S3.Bucket != ""
}

// Validate validates the object store configuration.
func (c *ObjectStoreConfig) Validate() error {
	if c.S3.Region == "" {
		return fmt.Errorf("s3 region must be set")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket must be set")
	}
	return nil
}

// ProgressConfig is the progress reporting configuration.
type ProgressConfig struct {
	// Interval is the minimum interval between two progress log lines of the same file.
	Interval time.Duration `yaml:"interval"`
	// Disable turns progress reporting off.
	Disable bool `yaml:"disable"`
}

// Config is the configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`

	// DestinationFolder is the root directory models are downloaded into.
	DestinationFolder string `yaml:"destinationFolder"`

	Progress ProgressConfig `yaml:"progress"`

	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.Registry.BaseURL == "" {
		c.Registry.BaseURL = DefaultRegistryBaseURL
	}
	if c.Registry.UserAgent == "" {
		c.Registry.UserAgent = DefaultUserAgent
	}
	if c.Registry.Revision == "" {
		c.Registry.Revision = DefaultRevision
	}
	if c.DestinationFolder == "" {
		c.DestinationFolder = "models"
	}
	if c.Progress.Interval == 0 {
		c.Progress.Interval = defaultProgressInterval
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Registry.validate(); err != nil {
		return fmt.Errorf("registry: %s", err)
	}
	if c.DestinationFolder == "" {
		return fmt.Errorf("destinationFolder must be set")
	}
	if c.Progress.Interval < 0 {
		return fmt.Errorf("progress interval must not be negative")
	}
	if c.ObjectStore.Enabled() {
		if err := c.ObjectStore.Validate(); err != nil {
			return fmt.Errorf("object store: %s", err)
		}
	}
	return nil
}

// Parse parses the configuration file at the given path, returning a new
// Config struct. Unset fields get their default values.
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
