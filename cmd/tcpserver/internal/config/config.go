package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/codec"
)

// RuntimeEnvironment represents the execution environment
type RuntimeEnvironment string

const (
	RuntimeKubernetes RuntimeEnvironment = "kubernetes"
	RuntimeContainer  RuntimeEnvironment = "container"
	RuntimeVM         RuntimeEnvironment = "vm"
)

// ResponseMode represents where the fixed response is read from
type ResponseMode string

const (
	ResponseStatic     ResponseMode = "static"
	ResponseFile       ResponseMode = "file"
	ResponseKubernetes ResponseMode = "kubernetes"
)

// HandlerMode selects the connection handler variant
type HandlerMode string

const (
	HandlerAnswer HandlerMode = "answer"
	HandlerSink   HandlerMode = "sink"
)

// IniSection is the INI section holding server settings.
const IniSection = "server"

// Config holds all application configuration
type Config struct {
	// Core
	Debug     bool   `ini:"debug"`
	LogLevel  string `ini:"log_level"`
	LogFormat string `ini:"log_format"` // text, json

	// Runtime
	Runtime   RuntimeEnvironment `ini:"-"`
	Namespace string             `ini:"namespace"` // Only for Kubernetes runtime

	// Server
	Host             string        `ini:"host"`
	Port             int           `ini:"port"`
	HandlerMode      HandlerMode   `ini:"handler_mode"`
	Charset          string        `ini:"charset"`
	WriteTimeout     time.Duration `ini:"write_timeout"`
	ReadBufferSize   int           `ini:"read_buffer_size"`
	WriteQueueSize   int           `ini:"write_queue_size"`
	Verbose          bool          `ini:"verbose"`
	HealthServerPort string        `ini:"health_server_port"`

	// Response
	Response             string       `ini:"response"`
	ResponseMode         ResponseMode `ini:"response_mode"`
	ResponseFile         string       `ini:"response_file"`
	ResponseConfigMap    string       `ini:"response_configmap"`
	ResponseConfigMapKey string       `ini:"response_configmap_key"`
	KubeConfigPath       string       `ini:"kubeconfig"`
	KubeContext          string       `ini:"kube_context"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		HandlerMode: HandlerAnswer,
		Charset:     codec.DefaultCharset,
		Verbose:     true,
	}
}

// Load layers defaults, the optional INI file and the environment, in that
// order. It does not validate so callers can apply flags first.
func Load(iniPath string) (*Config, error) {
	cfg := Default()

	if iniPath != "" {
		if err := LoadIni(cfg, iniPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadIni maps the [server] section of an INI file onto cfg. Keys missing
// from the file keep their current values.
func LoadIni(cfg *Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", fileName, err)
	}
	if err := iniFile.Section(IniSection).MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map config file %s: %w", fileName, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Core
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	if c.Debug {
		c.LogLevel = "debug"
	}

	// Runtime - Auto-detect or explicit
	c.Runtime = determineRuntime()
	c.Namespace = determineNamespace(c.Namespace)

	// Server
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvInt("PORT", c.Port)
	c.HandlerMode = HandlerMode(strings.ToLower(getEnv("HANDLER_MODE", string(c.HandlerMode))))
	c.Charset = getEnv("CHARSET", c.Charset)
	c.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.ReadBufferSize = getEnvInt("READ_BUFFER_SIZE", c.ReadBufferSize)
	c.WriteQueueSize = getEnvInt("WRITE_QUEUE_SIZE", c.WriteQueueSize)
	c.Verbose = getEnvBool("VERBOSE", c.Verbose)
	c.HealthServerPort = getEnv("HEALTH_SERVER_PORT", c.HealthServerPort)

	// Response
	c.Response = getEnv("RESPONSE", c.Response)
	c.ResponseFile = getEnv("RESPONSE_FILE", c.ResponseFile)
	c.ResponseConfigMap = getEnv("RESPONSE_CONFIGMAP", c.ResponseConfigMap)
	c.ResponseConfigMapKey = getEnv("RESPONSE_CONFIGMAP_KEY", c.ResponseConfigMapKey)
	c.KubeConfigPath = getEnv("KUBECONFIG", c.KubeConfigPath)
	c.KubeContext = getEnv("KUBE_CONTEXT", c.KubeContext)
	c.ResponseMode = c.determineResponseMode(getEnv("RESPONSE_MODE", string(c.ResponseMode)))
}

// Validate ensures configuration is coherent
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d (must be between 1 and 65535)", c.Port)
	}

	validHandlers := []string{string(HandlerAnswer), string(HandlerSink)}
	if !contains(validHandlers, string(c.HandlerMode)) {
		return fmt.Errorf("unsupported HANDLER_MODE: %s (supported: %s)",
			c.HandlerMode, strings.Join(validHandlers, ", "))
	}

	if _, err := codec.New(c.Charset); err != nil {
		return fmt.Errorf("invalid CHARSET: %w", err)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT: %s (supported: text, json)", c.LogFormat)
	}

	if c.ReadBufferSize < 0 {
		return fmt.Errorf("READ_BUFFER_SIZE must not be negative")
	}

	if c.WriteQueueSize < 0 {
		return fmt.Errorf("WRITE_QUEUE_SIZE must not be negative")
	}

	switch c.ResponseMode {
	case ResponseStatic:
	case ResponseFile:
		if c.ResponseFile == "" {
			return fmt.Errorf("RESPONSE_FILE must be set when using file response mode")
		}
	case ResponseKubernetes:
		if c.ResponseConfigMap == "" {
			return fmt.Errorf("RESPONSE_CONFIGMAP must be set when using kubernetes response mode")
		}
		if c.Runtime == RuntimeContainer && c.KubeConfigPath == "" {
			return fmt.Errorf("kubernetes response mode in container runtime requires KUBECONFIG path")
		}
	default:
		return fmt.Errorf("unsupported RESPONSE_MODE: %s (supported: static, file, kubernetes)", c.ResponseMode)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func determineRuntime() RuntimeEnvironment {
	// Explicit runtime setting
	if runtime := os.Getenv("RUNTIME"); runtime != "" {
		switch strings.ToLower(runtime) {
		case "kubernetes", "k8s":
			return RuntimeKubernetes
		case "container", "docker":
			return RuntimeContainer
		case "vm", "virtual-machine", "bare-metal":
			return RuntimeVM
		}
	}

	// Auto-detect: Check if running in Kubernetes
	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount"); err == nil {
		return RuntimeKubernetes
	}

	// Auto-detect: Check if running in container
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return RuntimeContainer
	}

	return RuntimeVM
}

func determineNamespace(current string) string {
	// Explicit namespace
	if ns := os.Getenv("NAMESPACE"); ns != "" {
		return ns
	}
	if current != "" {
		return current
	}

	// Kubernetes downward API
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns
	}

	// Read from service account (in-cluster)
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		return strings.TrimSpace(string(data))
	}

	return "default"
}

func (c *Config) determineResponseMode(explicit string) ResponseMode {
	// Explicit mode
	if explicit != "" {
		switch strings.ToLower(explicit) {
		case "static", "memory", "inline":
			return ResponseStatic
		case "file", "filesystem":
			return ResponseFile
		case "kubernetes", "k8s", "configmap":
			return ResponseKubernetes
		}
		return ResponseMode(explicit)
	}

	// Auto-detect based on configuration
	if c.ResponseFile != "" {
		return ResponseFile
	}
	if c.ResponseConfigMap != "" {
		return ResponseKubernetes
	}
	return ResponseStatic
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
