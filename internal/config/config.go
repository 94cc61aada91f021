// Package config handles configuration loading and validation for funcgraph.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".funcgraph"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment variable overrides, e.g. FUNCGRAPH_SINK_TYPE.
	EnvPrefix = "FUNCGRAPH"
)

// Config holds all configuration for funcgraph.
type Config struct {
	// Analysis controls the traversal.
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	// Output controls how the graph is exported.
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	// Sink selects where analyzed functions are persisted.
	Sink SinkConfig `mapstructure:"sink" yaml:"sink"`
	// Log configures the structured logger.
	Log LogConfig `mapstructure:"log" yaml:"log"`
	// DataFiles configures data file discovery.
	DataFiles DataFilesConfig `mapstructure:"datafiles" yaml:"datafiles"`
	// Telemetry configures trace and metrics dumps.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// AnalysisConfig holds traversal settings.
type AnalysisConfig struct {
	// Language is python, typescript or javascript. Empty infers it from the entrypoint.
	Language string `mapstructure:"language" yaml:"language"`
	// Recursive follows imports into other files.
	Recursive bool `mapstructure:"recursive" yaml:"recursive"`
	// MaxDepth bounds the import depth.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	// Format is json, rich-json, dot or markdown.
	Format string `mapstructure:"format" yaml:"format"`
	// Path is the output file. Empty writes to stdout.
	Path string `mapstructure:"path" yaml:"path"`
}

// SinkConfig holds persistence settings.
type SinkConfig struct {
	// Type is none, badger, sqlite or neo4j.
	Type string `mapstructure:"type" yaml:"type"`
	// Path is the database directory (badger) or file (sqlite).
	Path string `mapstructure:"path" yaml:"path"`
	// Neo4jURI is the Neo4j connection URI (used when Type is "neo4j").
	Neo4jURI      string `mapstructure:"neo4j_uri" yaml:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user" yaml:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password" yaml:"neo4j_password,omitempty"`
	Neo4jDatabase string `mapstructure:"neo4j_database" yaml:"neo4j_database"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format"`
}

// DataFilesConfig holds data file discovery settings.
type DataFilesConfig struct {
	Extensions  []string `mapstructure:"extensions" yaml:"extensions"`
	ExcludeDirs []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	SkipFiles   []string `mapstructure:"skip_files" yaml:"skip_files"`
}

// TelemetryConfig holds observability dump settings.
type TelemetryConfig struct {
	// TraceFile receives OpenTelemetry spans as JSON when set.
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file"`
	// MetricsFile receives the Prometheus text exposition when set.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// Enumerations accepted by Validate.
var (
	Languages   = []string{"", "python", "typescript", "javascript"}
	Formats     = []string{"json", "rich-json", "dot", "markdown"}
	SinkTypes   = []string{"none", "badger", "sqlite", "neo4j"}
	LogLevels   = []string{"debug", "info", "warn", "error"}
	LogFormats  = []string{"text", "json"}
	defaultSink = "none"
)

// Load loads configuration from file, environment variables, and defaults.
// An empty configFile looks for .funcgraph.yaml in the current directory.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)

		// Look for config in current directory
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !oneOf(c.Analysis.Language, Languages) {
		return fmt.Errorf("analysis language must be python, typescript or javascript, got %q", c.Analysis.Language)
	}
	if c.Analysis.MaxDepth < 0 {
		return fmt.Errorf("analysis max_depth must not be negative, got %d", c.Analysis.MaxDepth)
	}
	if !oneOf(c.Output.Format, Formats) {
		return fmt.Errorf("output format must be one of %s, got %q", strings.Join(Formats, ", "), c.Output.Format)
	}
	if !oneOf(c.Sink.Type, SinkTypes) {
		return fmt.Errorf("sink type must be one of %s, got %q", strings.Join(SinkTypes, ", "), c.Sink.Type)
	}
	if (c.Sink.Type == "badger" || c.Sink.Type == "sqlite") && c.Sink.Path == "" {
		return fmt.Errorf("sink path is required when sink type is %q", c.Sink.Type)
	}
	if c.Sink.Type == "neo4j" && c.Sink.Neo4jURI == "" {
		return fmt.Errorf("neo4j_uri is required when sink type is 'neo4j'")
	}
	if !oneOf(c.Log.Level, LogLevels) {
		return fmt.Errorf("log level must be one of %s, got %q", strings.Join(LogLevels, ", "), c.Log.Level)
	}
	if !oneOf(c.Log.Format, LogFormats) {
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.language", "")
	v.SetDefault("analysis.recursive", true)
	v.SetDefault("analysis.max_depth", 10)

	v.SetDefault("output.format", "json")
	v.SetDefault("output.path", "")

	v.SetDefault("sink.type", defaultSink)
	v.SetDefault("sink.path", "")
	v.SetDefault("sink.neo4j_uri", "")
	v.SetDefault("sink.neo4j_user", "neo4j")
	v.SetDefault("sink.neo4j_password", "")
	v.SetDefault("sink.neo4j_database", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("datafiles.extensions", []string{".json", ".yaml", ".yml"})
	v.SetDefault("datafiles.exclude_dirs", []string{
		".git", ".github", ".vscode", "__pycache__", "venv", "env",
		"node_modules", "migrations", ".venv", ".env",
	})
	v.SetDefault("datafiles.skip_files", []string{
		"package.json", "package-lock.json", "poetry.lock", "requirements.lock", "pyproject.toml",
	})

	v.SetDefault("telemetry.trace_file", "")
	v.SetDefault("telemetry.metrics_file", "")
}
