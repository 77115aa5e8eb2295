package loader

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/openziti/resourcestore/kernel/adapter"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/registry"
	"github.com/openziti/resourcestore/kernel/resource"
	"github.com/openziti/resourcestore/kernel/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"
)

var resourceTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

type Config struct {
	BaseURL   string                    `yaml:"baseUrl"`
	Timeout   string                    `yaml:"timeout"`
	Headers   map[string]string         `yaml:"headers"`
	Dedupe    bool                      `yaml:"dedupe"`
	Resources map[string]ResourceConfig `yaml:"resources"`
}

type ResourceConfig struct {
	URL           string           `yaml:"url"`
	CollectionURL string           `yaml:"collectionUrl"`
	DataPath      string           `yaml:"dataPath"`
	Retry         *RetryConfig     `yaml:"retry"`
	RateLimit     *RateLimitConfig `yaml:"rateLimit"`
}

type RetryConfig struct {
	MaxTries        uint   `yaml:"maxTries"`
	InitialInterval string `yaml:"initialInterval"`
	MaxElapsed      string `yaml:"maxElapsed"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(path, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// LoadConfig reads, parses and validates the configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config [%s]", path)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse config [%s]", path)
	}

	result := config.Validate()
	for _, w := range result.Warnings {
		logrus.Warnf("%s: %s", path, w)
	}
	if !result.IsValid() {
		return nil, errors.Errorf("invalid config [%s]: %v", path, result.Errors[0])
	}
	return config, nil
}

func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// ValidateConfigBytes validates a configuration document. The error is only
// set when data is not a well-formed configuration.
func ValidateConfigBytes(data []byte) (*ValidationResult, error) {
	config, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return config.Validate(), nil
}

func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || !u.IsAbs() {
			result.addError("baseUrl", "must be an absolute url, got '%s'", c.BaseURL)
		}
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
			result.addError("timeout", "must be a positive duration, got '%s'", c.Timeout)
		}
	}

	if len(c.Resources) == 0 {
		result.Warnings = append(result.Warnings, "no resources configured")
	}

	for _, name := range c.resourceNames() {
		rc := c.Resources[name]
		path := "resources." + name

		if !resourceTypePattern.MatchString(name) {
			result.addError(path, "resource type must match %s", resourceTypePattern.String())
		}
		if strings.TrimSpace(rc.URL) == "" {
			result.addError(path+".url", "url is required")
		}
		if rc.DataPath != "" && !strings.HasPrefix(rc.DataPath, "$") {
			result.addError(path+".dataPath", "must start with '$', got '%s'", rc.DataPath)
		}
		if rc.Retry != nil {
			for field, value := range map[string]string{
				"initialInterval": rc.Retry.InitialInterval,
				"maxElapsed":      rc.Retry.MaxElapsed,
			} {
				if value == "" {
					continue
				}
				if _, err := time.ParseDuration(value); err != nil {
					result.addError(path+".retry."+field, "invalid duration '%s'", value)
				}
			}
		}
		if rc.RateLimit != nil && rc.RateLimit.RPS <= 0 {
			result.addError(path+".rateLimit.rps", "must be greater than 0")
		}
	}

	return result
}

// Build turns the configuration into registry configurations sharing one
// transport client.
func (c *Config) Build() (map[model.ResourceType]registry.ResourceConfig, error) {
	if result := c.Validate(); !result.IsValid() {
		return nil, errors.Errorf("invalid config: %v", result.Errors[0])
	}

	client, err := c.client()
	if err != nil {
		return nil, err
	}

	configs := make(map[model.ResourceType]registry.ResourceConfig, len(c.Resources))
	for name, rc := range c.Resources {
		var serializer adapter.Serializer = adapter.DefaultSerializer()
		if rc.DataPath != "" && rc.DataPath != adapter.DefaultDataPath {
			serializer = adapter.JSONPathSerializer{Path: rc.DataPath}
		}

		var a adapter.Adapter = adapter.NewHTTPAdapter(client, serializer)
		if rc.RateLimit != nil {
			burst := rc.RateLimit.Burst
			if burst < 1 {
				burst = 1
			}
			a = adapter.RateLimited(a, rate.NewLimiter(rate.Limit(rc.RateLimit.RPS), burst))
		}
		if rc.Retry != nil {
			a = adapter.Retrying(a, rc.Retry.policy())
		}

		configs[model.ResourceType(name)] = registry.ResourceConfig{
			BuildURL:   adapter.TemplateURL(rc.URL, rc.CollectionURL),
			Adapter:    a,
			Serializer: serializer,
		}
	}
	return configs, nil
}

// Module builds a resource module from the configuration.
func (c *Config) Module() (*resource.Module, error) {
	configs, err := c.Build()
	if err != nil {
		return nil, err
	}
	var opts []resource.Option
	if c.Dedupe {
		opts = append(opts, resource.WithDedupe())
	}
	return resource.New(configs, opts...), nil
}

func (c *Config) client() (transport.Client, error) {
	var opts []transport.Option
	if c.BaseURL != "" {
		base, err := url.Parse(c.BaseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid baseUrl [%s]", c.BaseURL)
		}
		opts = append(opts, transport.WithBaseURL(base))
	}
	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid timeout [%s]", c.Timeout)
		}
		opts = append(opts, transport.WithTimeout(timeout))
	}
	for k, v := range c.Headers {
		opts = append(opts, transport.WithHeader(k, v))
	}
	return transport.New(opts...), nil
}

func (c *Config) resourceNames() []string {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *RetryConfig) policy() adapter.RetryPolicy {
	p := adapter.RetryPolicy{MaxTries: r.MaxTries}
	p.InitialInterval, _ = time.ParseDuration(r.InitialInterval)
	p.MaxElapsed, _ = time.ParseDuration(r.MaxElapsed)
	return p
}
