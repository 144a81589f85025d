package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/modeldb/config"
	ConfigFileName    = "modeldb.yml"
)

// CatalogConfig holds all catalog configuration settings
type CatalogConfig struct {
	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// PageLimitMax caps the page size of listing requests
	PageLimitMax int `yaml:"page_limit_max" json:"page_limit_max"`

	// AuthTokenTTL is the TTL for issued auth tokens in seconds
	AuthTokenTTL int `yaml:"auth_token_ttl" json:"auth_token_ttl"`

	// AuthzURL is the base URL of the authorization collaborator service
	AuthzURL string `yaml:"authz_url" json:"authz_url"`

	// AuthzTimeout bounds authorization collaborator calls, in seconds
	AuthzTimeout int `yaml:"authz_timeout" json:"authz_timeout"`

	// PublicReadEnabled allows anonymous reads of public entities
	PublicReadEnabled bool `yaml:"public_read_enabled" json:"public_read_enabled"`

	// DeepCopyChunkSize bounds per-transaction batches in project copies
	DeepCopyChunkSize int `yaml:"deep_copy_chunk_size" json:"deep_copy_chunk_size"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *CatalogConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *CatalogConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *CatalogConfig {
	return &CatalogConfig{
		TrustedProxies:    []string{},
		PageLimitMax:      1000,
		AuthTokenTTL:      480,
		AuthzURL:          "",
		AuthzTimeout:      5,
		PublicReadEnabled: true,
		DeepCopyChunkSize: 100,
		sources:           make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*CatalogConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("MODELDB_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&file)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"trusted_proxies", "page_limit_max", "auth_token_ttl",
		"authz_url", "authz_timeout", "public_read_enabled",
		"deep_copy_chunk_size",
	}
}

// fileConfig mirrors CatalogConfig for YAML decoding. The boolean is a
// pointer so "false in the file" is distinguishable from "absent".
type fileConfig struct {
	TrustedProxies    []string `yaml:"trusted_proxies"`
	PageLimitMax      int      `yaml:"page_limit_max"`
	AuthTokenTTL      int      `yaml:"auth_token_ttl"`
	AuthzURL          string   `yaml:"authz_url"`
	AuthzTimeout      int      `yaml:"authz_timeout"`
	PublicReadEnabled *bool    `yaml:"public_read_enabled"`
	DeepCopyChunkSize int      `yaml:"deep_copy_chunk_size"`
}

func (c *CatalogConfig) applyFileConfig(file *fileConfig) {
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
	if file.PageLimitMax != 0 {
		c.PageLimitMax = file.PageLimitMax
		c.sources["page_limit_max"] = "file"
	}
	if file.AuthTokenTTL != 0 {
		c.AuthTokenTTL = file.AuthTokenTTL
		c.sources["auth_token_ttl"] = "file"
	}
	if file.AuthzURL != "" {
		c.AuthzURL = file.AuthzURL
		c.sources["authz_url"] = "file"
	}
	if file.AuthzTimeout != 0 {
		c.AuthzTimeout = file.AuthzTimeout
		c.sources["authz_timeout"] = "file"
	}
	if file.PublicReadEnabled != nil {
		c.PublicReadEnabled = *file.PublicReadEnabled
		c.sources["public_read_enabled"] = "file"
	}
	if file.DeepCopyChunkSize != 0 {
		c.DeepCopyChunkSize = file.DeepCopyChunkSize
		c.sources["deep_copy_chunk_size"] = "file"
	}
}

func (c *CatalogConfig) applyEnvConfig() {
	if val := os.Getenv("MODELDB_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	if val := os.Getenv("MODELDB_PAGE_LIMIT_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.PageLimitMax = i
			c.sources["page_limit_max"] = "environment"
		}
	}
	if val := os.Getenv("MODELDB_AUTH_TOKEN_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.AuthTokenTTL = i
			c.sources["auth_token_ttl"] = "environment"
		}
	}
	if val := os.Getenv("MODELDB_AUTHZ_URL"); val != "" {
		c.AuthzURL = val
		c.sources["authz_url"] = "environment"
	}
	if val := os.Getenv("MODELDB_AUTHZ_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.AuthzTimeout = i
			c.sources["authz_timeout"] = "environment"
		}
	}
	if val := os.Getenv("MODELDB_PUBLIC_READ_ENABLED"); val != "" {
		c.PublicReadEnabled = val == "true" || val == "1"
		c.sources["public_read_enabled"] = "environment"
	}
	if val := os.Getenv("MODELDB_DEEP_COPY_CHUNK_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.DeepCopyChunkSize = i
			c.sources["deep_copy_chunk_size"] = "environment"
		}
	}
}

// ConfigFilePath returns the path to the config file
func (c *CatalogConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *CatalogConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// TokenTTL returns the auth token TTL as a duration
func (c *CatalogConfig) TokenTTL() time.Duration {
	return time.Duration(c.AuthTokenTTL) * time.Second
}

// AuthzCallTimeout returns the authorization call timeout as a duration
func (c *CatalogConfig) AuthzCallTimeout() time.Duration {
	return time.Duration(c.AuthzTimeout) * time.Second
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *CatalogConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *CatalogConfig) Validate() error {
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}
	if c.PageLimitMax < 1 {
		return fmt.Errorf("page_limit_max must be positive, got %d", c.PageLimitMax)
	}
	if c.AuthzTimeout < 1 {
		return fmt.Errorf("authz_timeout must be positive, got %d", c.AuthzTimeout)
	}
	if c.DeepCopyChunkSize < 1 {
		return fmt.Errorf("deep_copy_chunk_size must be positive, got %d", c.DeepCopyChunkSize)
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *CatalogConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
		{Name: "page_limit_max", Value: strconv.Itoa(c.PageLimitMax), Source: c.Source("page_limit_max")},
		{Name: "auth_token_ttl", Value: strconv.Itoa(c.AuthTokenTTL), Source: c.Source("auth_token_ttl")},
		{Name: "authz_url", Value: c.AuthzURL, Source: c.Source("authz_url")},
		{Name: "authz_timeout", Value: strconv.Itoa(c.AuthzTimeout), Source: c.Source("authz_timeout")},
		{Name: "public_read_enabled", Value: strconv.FormatBool(c.PublicReadEnabled), Source: c.Source("public_read_enabled")},
		{Name: "deep_copy_chunk_size", Value: strconv.Itoa(c.DeepCopyChunkSize), Source: c.Source("deep_copy_chunk_size")},
	}
}

// FormatText returns a text representation of the configuration
func (c *CatalogConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *CatalogConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
