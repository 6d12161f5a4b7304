package config

import (
	"fmt"
	"os"
)

// ImageProviderConfig defines one image-generation provider. Providers are
// tried in the order they are listed.
type ImageProviderConfig struct {
	Name       string `mapstructure:"name"`         // Unique identifier used in logs
	Provider   string `mapstructure:"provider"`     // "openai" or "openai-compatible"
	Model      string `mapstructure:"model"`        // Model name/ID
	Size       string `mapstructure:"size"`         // e.g. "1024x1024"
	APIKey     string `mapstructure:"api_key"`      // API key (can be set directly or via env var)
	APIKeyEnv  string `mapstructure:"api_key_env"`  // Environment variable name for API key
	BaseURL    string `mapstructure:"base_url"`     // Base URL for OpenAI-compatible APIs
	BaseURLEnv string `mapstructure:"base_url_env"` // Environment variable name for base URL
}

// ResolveEnvVars loads APIKey and BaseURL from the named environment
// variables when they are not set directly.
func (c *ImageProviderConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		if val := os.Getenv(c.BaseURLEnv); val != "" {
			c.BaseURL = val
		}
	}
}

// Validate checks that the provider has all required fields.
func (c *ImageProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("image provider: name is required")
	}
	if c.Model == "" {
		return fmt.Errorf("image provider %q: model is required", c.Name)
	}
	switch c.Provider {
	case "openai", "openai-compatible":
	default:
		return fmt.Errorf("image provider %q: unknown provider %q", c.Name, c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("image provider %q: api_key is required (set directly or via %s)", c.Name, c.APIKeyEnv)
	}
	return nil
}
