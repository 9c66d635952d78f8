package core

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/backend/database"
	"github.com/jo-hoe/splitpages/internal/common"
	"github.com/jo-hoe/splitpages/internal/dedupe"
	"github.com/jo-hoe/splitpages/internal/imaging"
	"github.com/jo-hoe/splitpages/internal/notify"
	"github.com/jo-hoe/splitpages/internal/storage"
)

const DefaultMinPageTime = 500 * time.Millisecond

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Encoding struct {
	Compression string `yaml:"compression" validate:"omitempty,oneof=none deflate"`
}

type ServiceConfig struct {
	Port      int    `yaml:"port" validate:"min=0,max=65535"`
	LogLevel  string `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `yaml:"logFormat" validate:"omitempty,oneof=text json"`

	Storage  storage.Config  `yaml:"storage"`
	Database database.Config `yaml:"database"`
	Dedupe   dedupe.Config   `yaml:"dedupe"`
	Notifier notify.Config   `yaml:"notifier"`

	// MinPageTime is the minimum time spent per saved page, so each put does not
	// immediately start another pipeline run. Zero disables the pause.
	MinPageTime         time.Duration `yaml:"minPageTime" validate:"min=0"`
	IgnorePatterns      []string      `yaml:"ignorePatterns"`
	OverwriteSinglePage bool          `yaml:"overwriteSinglePage"`
	Encoding            Encoding      `yaml:"encoding"`
	MaxPixels           int           `yaml:"maxPixels" validate:"min=0"`
	MaxPages            int           `yaml:"maxPages" validate:"min=0"`

	Commands []CommandConfig `yaml:"commands"`
}

// DefaultConfig mirrors the production setup: S3 storage, no ledger, and the three
// Textract checks with their default limits.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{
		MinPageTime: DefaultMinPageTime,
		Commands: []CommandConfig{
			{Name: "ColorModeCommand", Params: map[string]any{}},
			{Name: "DimensionCommand", Params: map[string]any{}},
			{Name: "ByteSizeCommand", Params: map[string]any{}},
		},
	}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to DefaultConfig when the
// file does not exist.
func LoadConfigOrDefault(configPath string) (*ServiceConfig, error) {
	config, err := LoadConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return config, err
}

func ParseConfig(data []byte) (*ServiceConfig, error) {
	// Preset so an explicit zero in the file is kept
	config := ServiceConfig{MinPageTime: DefaultMinPageTime}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()

	if err := common.ValidateStruct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate commands
	if err := validateCommands(config.Commands); err != nil {
		return nil, fmt.Errorf("invalid command configuration: %w", err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.IgnorePatterns == nil {
		c.IgnorePatterns = []string{".DS_Store"}
	}
	if c.Encoding.Compression == "" {
		c.Encoding.Compression = imaging.CompressionNone
	}
	if c.MaxPixels == 0 {
		c.MaxPixels = imaging.DefaultMaxPixels
	}
	if c.MaxPages == 0 {
		c.MaxPages = imaging.DefaultMaxPages
	}
}

// CommandConfigs converts the YAML command list for the command registry.
func (c *ServiceConfig) CommandConfigs() []commandstructure.CommandConfig {
	configs := make([]commandstructure.CommandConfig, 0, len(c.Commands))
	for _, command := range c.Commands {
		params := command.Params
		if params == nil {
			params = map[string]any{}
		}
		configs = append(configs, commandstructure.CommandConfig{Name: command.Name, Params: params})
	}
	return configs
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command %s at index %d, registered commands: %s",
				cmd.Name, i, strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
