// Package config provides CLI configuration management for the verbatim
// command-line tool. It supports loading configuration from YAML files,
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verbatim-cli/verbatim/pkg/pipeline"
)

// Default configuration values.
const (
	DefaultLanguage          = "auto"
	DefaultModel             = "precise"
	DefaultSpeakerDetection  = pipeline.SpeakersAuto
	DefaultBeamSize          = 1
	DefaultComputeType       = "default"
	DefaultVADThreshold      = 0.5
	DefaultMinSilence        = 1000 * time.Millisecond
	DefaultPauseMarker       = "."
	DefaultTimestampInterval = time.Minute
	DefaultTimestampColor    = "#78909C"
	DefaultConfigDir         = ".verbatim"
	DefaultConfigFile        = "config.yaml"
	DefaultHistoryFile       = "history.db"
	DefaultUserModelDir      = "whisper_models"
)

// EngineConfig holds speech recognition engine tuning.
type EngineConfig struct {
	// BeamSize is the whisper decoder beam width.
	BeamSize int `yaml:"beam_size,omitempty"`

	// Temperature is the whisper sampling temperature.
	Temperature float64 `yaml:"temperature,omitempty"`

	// ComputeType selects the inference precision (default, int8, float16, ...).
	ComputeType string `yaml:"compute_type,omitempty"`

	// Threads is the CPU thread count for inference. Zero lets the engine decide.
	Threads int `yaml:"threads,omitempty"`

	// VADThreshold is the voice activity detection sensitivity (0..1).
	VADThreshold float64 `yaml:"vad_threshold,omitempty"`

	// MinSilence is the minimum silence span the engine treats as a gap.
	MinSilence time.Duration `yaml:"-"`
}

// DevicesConfig selects the accelerators the engines run on.
type DevicesConfig struct {
	// Whisper is the recognition device ("cpu", "cuda", "auto").
	Whisper string `yaml:"whisper,omitempty"`

	// Diarize is the speaker identification device.
	Diarize string `yaml:"diarize,omitempty"`
}

// FormattingConfig holds transcript formatting defaults. They can all be
// overridden per run with command-line flags.
type FormattingConfig struct {
	// PauseSeconds renders silence gaps of at least this many seconds as
	// pause markers. Zero disables pause marking.
	PauseSeconds int `yaml:"pause_seconds,omitempty"`

	// PauseMarker is the character repeated once per second of pause.
	PauseMarker string `yaml:"pause_marker,omitempty"`

	// Timestamps enables inline timestamp markers.
	Timestamps bool `yaml:"timestamps,omitempty"`

	// TimestampInterval is the minimum media time between inline timestamps.
	TimestampInterval time.Duration `yaml:"-"`

	// TimestampColor is the timestamp color in rich output.
	TimestampColor string `yaml:"timestamp_color,omitempty"`

	// Overlap marks segments of overlapping speech.
	Overlap bool `yaml:"overlap,omitempty"`

	// Disfluencies keeps filler words in the transcript.
	Disfluencies bool `yaml:"disfluencies,omitempty"`
}

// PathsConfig locates the external tools and data files.
type PathsConfig struct {
	// FFmpeg is the ffmpeg binary. Defaults to "ffmpeg" on PATH.
	FFmpeg string `yaml:"ffmpeg,omitempty"`

	// Whisper is the recognition helper command.
	Whisper string `yaml:"whisper,omitempty"`

	// Diarize is the speaker identification helper command.
	Diarize string `yaml:"diarize,omitempty"`

	// Hints is the per-language vocabulary hint table.
	Hints string `yaml:"hints,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// Language is the default transcription language ("auto" or a code).
	Language string `yaml:"language"`

	// Model is the default whisper model identifier.
	Model string `yaml:"model"`

	// SpeakerDetection is the default speaker mode ("none", "auto", or a count).
	SpeakerDetection string `yaml:"speaker_detection"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Engine contains the recognition engine tuning.
	Engine EngineConfig `yaml:"engine"`

	// Devices contains the accelerator selection.
	Devices DevicesConfig `yaml:"devices,omitempty"`

	// Formatting contains the transcript formatting defaults.
	Formatting FormattingConfig `yaml:"formatting,omitempty"`

	// Paths contains the external tool locations.
	Paths PathsConfig `yaml:"paths,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Language:         DefaultLanguage,
		Model:            DefaultModel,
		SpeakerDetection: DefaultSpeakerDetection,
		Engine: EngineConfig{
			BeamSize:     DefaultBeamSize,
			ComputeType:  DefaultComputeType,
			VADThreshold: DefaultVADThreshold,
			MinSilence:   DefaultMinSilence,
		},
		Formatting: FormattingConfig{
			PauseSeconds:      1,
			PauseMarker:       DefaultPauseMarker,
			TimestampInterval: DefaultTimestampInterval,
			TimestampColor:    DefaultTimestampColor,
		},
		Paths: PathsConfig{
			FFmpeg: "ffmpeg",
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $VERBATIM_CONFIG_DIR if set, otherwise ~/.verbatim
func ConfigDir() (string, error) {
	if dir := os.Getenv("VERBATIM_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// HistoryPath returns the full path to the run history database.
func HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultHistoryFile), nil
}

// UserModelDir returns the user-managed whisper model directory.
func UserModelDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultUserModelDir), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.verbatim/config.yaml or $VERBATIM_CONFIG_DIR/config.yaml)
// 3. Environment variables (VERBATIM_LANGUAGE, VERBATIM_MODEL, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadConfigFile loads the configuration from an explicit file path,
// bypassing the config directory lookup. Environment overrides and
// validation still apply.
func LoadConfigFile(path string) (*CLIConfig, error) {
	cfg := DefaultConfig()

	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Durations are written as strings; unmarshal through a mirror struct.
	type engineFile struct {
		BeamSize     int     `yaml:"beam_size"`
		Temperature  float64 `yaml:"temperature"`
		ComputeType  string  `yaml:"compute_type"`
		Threads      int     `yaml:"threads"`
		VADThreshold float64 `yaml:"vad_threshold"`
		MinSilence   string  `yaml:"min_silence"`
	}
	type formattingFile struct {
		PauseSeconds      int    `yaml:"pause_seconds"`
		PauseMarker       string `yaml:"pause_marker"`
		Timestamps        bool   `yaml:"timestamps"`
		TimestampInterval string `yaml:"timestamp_interval"`
		TimestampColor    string `yaml:"timestamp_color"`
		Overlap           bool   `yaml:"overlap"`
		Disfluencies      bool   `yaml:"disfluencies"`
	}
	type configFile struct {
		Language         string         `yaml:"language"`
		Model            string         `yaml:"model"`
		SpeakerDetection string         `yaml:"speaker_detection"`
		Debug            bool           `yaml:"debug"`
		Engine           engineFile     `yaml:"engine"`
		Devices          DevicesConfig  `yaml:"devices"`
		Formatting       formattingFile `yaml:"formatting"`
		Paths            PathsConfig    `yaml:"paths"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.Language != "" {
		cfg.Language = fileCfg.Language
	}
	if fileCfg.Model != "" {
		cfg.Model = fileCfg.Model
	}
	if fileCfg.SpeakerDetection != "" {
		cfg.SpeakerDetection = fileCfg.SpeakerDetection
	}
	cfg.Debug = fileCfg.Debug

	if fileCfg.Engine.BeamSize > 0 {
		cfg.Engine.BeamSize = fileCfg.Engine.BeamSize
	}
	if fileCfg.Engine.Temperature != 0 {
		cfg.Engine.Temperature = fileCfg.Engine.Temperature
	}
	if fileCfg.Engine.ComputeType != "" {
		cfg.Engine.ComputeType = fileCfg.Engine.ComputeType
	}
	if fileCfg.Engine.Threads > 0 {
		cfg.Engine.Threads = fileCfg.Engine.Threads
	}
	if fileCfg.Engine.VADThreshold > 0 {
		cfg.Engine.VADThreshold = fileCfg.Engine.VADThreshold
	}
	if fileCfg.Engine.MinSilence != "" {
		d, err := time.ParseDuration(fileCfg.Engine.MinSilence)
		if err != nil {
			return fmt.Errorf("parsing min_silence: %w", err)
		}
		cfg.Engine.MinSilence = d
	}

	if fileCfg.Devices.Whisper != "" {
		cfg.Devices.Whisper = fileCfg.Devices.Whisper
	}
	if fileCfg.Devices.Diarize != "" {
		cfg.Devices.Diarize = fileCfg.Devices.Diarize
	}

	if fileCfg.Formatting.PauseSeconds > 0 {
		cfg.Formatting.PauseSeconds = fileCfg.Formatting.PauseSeconds
	}
	if fileCfg.Formatting.PauseMarker != "" {
		cfg.Formatting.PauseMarker = fileCfg.Formatting.PauseMarker
	}
	if fileCfg.Formatting.TimestampInterval != "" {
		d, err := time.ParseDuration(fileCfg.Formatting.TimestampInterval)
		if err != nil {
			return fmt.Errorf("parsing timestamp_interval: %w", err)
		}
		cfg.Formatting.TimestampInterval = d
	}
	if fileCfg.Formatting.TimestampColor != "" {
		cfg.Formatting.TimestampColor = fileCfg.Formatting.TimestampColor
	}
	cfg.Formatting.Timestamps = fileCfg.Formatting.Timestamps
	cfg.Formatting.Overlap = fileCfg.Formatting.Overlap
	cfg.Formatting.Disfluencies = fileCfg.Formatting.Disfluencies

	if fileCfg.Paths.FFmpeg != "" {
		cfg.Paths.FFmpeg = fileCfg.Paths.FFmpeg
	}
	if fileCfg.Paths.Whisper != "" {
		cfg.Paths.Whisper = fileCfg.Paths.Whisper
	}
	if fileCfg.Paths.Diarize != "" {
		cfg.Paths.Diarize = fileCfg.Paths.Diarize
	}
	if fileCfg.Paths.Hints != "" {
		cfg.Paths.Hints = fileCfg.Paths.Hints
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("VERBATIM_LANGUAGE"); v != "" {
		cfg.Language = v
	}

	if v := os.Getenv("VERBATIM_MODEL"); v != "" {
		cfg.Model = v
	}

	if v := os.Getenv("VERBATIM_SPEAKER_DETECTION"); v != "" {
		cfg.SpeakerDetection = v
	}

	if v := os.Getenv("VERBATIM_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("VERBATIM_BEAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.BeamSize = n
		}
	}

	if v := os.Getenv("VERBATIM_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.Threads = n
		}
	}

	if v := os.Getenv("VERBATIM_COMPUTE_TYPE"); v != "" {
		cfg.Engine.ComputeType = v
	}

	if v := os.Getenv("VERBATIM_WHISPER_DEVICE"); v != "" {
		cfg.Devices.Whisper = v
	}

	if v := os.Getenv("VERBATIM_DIARIZE_DEVICE"); v != "" {
		cfg.Devices.Diarize = v
	}

	if v := os.Getenv("VERBATIM_FFMPEG"); v != "" {
		cfg.Paths.FFmpeg = v
	}

	if v := os.Getenv("VERBATIM_WHISPER_CMD"); v != "" {
		cfg.Paths.Whisper = v
	}

	if v := os.Getenv("VERBATIM_DIARIZE_CMD"); v != "" {
		cfg.Paths.Diarize = v
	}
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("language is required")
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Engine.BeamSize < 1 {
		return fmt.Errorf("beam_size must be at least 1")
	}

	if c.Engine.VADThreshold < 0 || c.Engine.VADThreshold > 1 {
		return fmt.Errorf("vad_threshold must be between 0 and 1")
	}

	if c.Engine.MinSilence < 0 {
		return fmt.Errorf("min_silence must not be negative")
	}

	return nil
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	// Convert to YAML-friendly format with durations as strings.
	type engineFile struct {
		BeamSize     int     `yaml:"beam_size"`
		Temperature  float64 `yaml:"temperature,omitempty"`
		ComputeType  string  `yaml:"compute_type"`
		Threads      int     `yaml:"threads,omitempty"`
		VADThreshold float64 `yaml:"vad_threshold"`
		MinSilence   string  `yaml:"min_silence"`
	}
	type formattingFile struct {
		PauseSeconds      int    `yaml:"pause_seconds"`
		PauseMarker       string `yaml:"pause_marker"`
		Timestamps        bool   `yaml:"timestamps,omitempty"`
		TimestampInterval string `yaml:"timestamp_interval"`
		TimestampColor    string `yaml:"timestamp_color"`
		Overlap           bool   `yaml:"overlap,omitempty"`
		Disfluencies      bool   `yaml:"disfluencies,omitempty"`
	}
	type configFile struct {
		Language         string         `yaml:"language"`
		Model            string         `yaml:"model"`
		SpeakerDetection string         `yaml:"speaker_detection"`
		Debug            bool           `yaml:"debug,omitempty"`
		Engine           engineFile     `yaml:"engine"`
		Devices          DevicesConfig  `yaml:"devices,omitempty"`
		Formatting       formattingFile `yaml:"formatting"`
		Paths            PathsConfig    `yaml:"paths,omitempty"`
	}

	fileCfg := configFile{
		Language:         cfg.Language,
		Model:            cfg.Model,
		SpeakerDetection: cfg.SpeakerDetection,
		Debug:            cfg.Debug,
		Engine: engineFile{
			BeamSize:     cfg.Engine.BeamSize,
			Temperature:  cfg.Engine.Temperature,
			ComputeType:  cfg.Engine.ComputeType,
			Threads:      cfg.Engine.Threads,
			VADThreshold: cfg.Engine.VADThreshold,
			MinSilence:   cfg.Engine.MinSilence.String(),
		},
		Devices: cfg.Devices,
		Formatting: formattingFile{
			PauseSeconds:      cfg.Formatting.PauseSeconds,
			PauseMarker:       cfg.Formatting.PauseMarker,
			Timestamps:        cfg.Formatting.Timestamps,
			TimestampInterval: cfg.Formatting.TimestampInterval.String(),
			TimestampColor:    cfg.Formatting.TimestampColor,
			Overlap:           cfg.Formatting.Overlap,
			Disfluencies:      cfg.Formatting.Disfluencies,
		},
		Paths: cfg.Paths,
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
