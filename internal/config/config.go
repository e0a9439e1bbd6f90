package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Inject     InjectConfig     `yaml:"inject"`
	LogLevel   string           `yaml:"log_level"`
}

// RecognizerConfig selects and configures the speech recognizer backend.
type RecognizerConfig struct {
	Backend   string `yaml:"backend"`    // "vosk" or "whisper"
	ModelPath string `yaml:"model_path"` // vosk model directory or whisper ggml file
	ModelURL  string `yaml:"model_url"`  // used by -download-model
	Language  string `yaml:"language"`   // whisper only

	// Whisper is batch-only; these drive its silence-based flushing.
	SilenceMs   int `yaml:"silence_ms"`
	MaxBufferMs int `yaml:"max_buffer_ms"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
	BlockSize  uint32 `yaml:"block_size"` // frames per captured chunk
}

// TranscriptConfig controls where saved transcripts go.
type TranscriptConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// HotkeyConfig holds global hotkey settings.
type HotkeyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Toggle  []string `yaml:"toggle"`
	Save    []string `yaml:"save"`
}

// InjectConfig controls forwarding of finalized sentences to the focused app.
type InjectConfig struct {
	Method string `yaml:"method"` // "none", "type" or "paste"
}

const (
	defaultVoskModelURL    = "https://alphacephei.com/vosk/models/vosk-model-small-en-in-0.4.zip"
	defaultWhisperModelURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin"
)

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "easelaw")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory models are downloaded to.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".local", "share", "easelaw", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Recognizer: RecognizerConfig{
			Backend:     "vosk",
			ModelPath:   filepath.Join(DefaultModelsDir(), "vosk-model-small-en-in-0.4"),
			ModelURL:    defaultVoskModelURL,
			Language:    "en",
			SilenceMs:   500,
			MaxBufferMs: 10000,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BlockSize:  8000,
		},
		Transcript: TranscriptConfig{
			Dir:    ".",
			Prefix: "EaseLaw_Transcript",
		},
		Hotkey: HotkeyConfig{
			Enabled: true,
			Toggle:  []string{"ctrl", "shift", "l"},
			Save:    []string{"ctrl", "shift", "s"},
		},
		Inject: InjectConfig{
			Method: "none",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// A whisper config that left model_url alone should not try to fetch
	// the vosk zip.
	if cfg.Recognizer.Backend == "whisper" && cfg.Recognizer.ModelURL == defaultVoskModelURL {
		cfg.Recognizer.ModelURL = defaultWhisperModelURL
	}

	cfg.Recognizer.ModelPath = expandTilde(cfg.Recognizer.ModelPath)
	cfg.Transcript.Dir = expandTilde(cfg.Transcript.Dir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Recognizer.Backend {
	case "vosk", "whisper":
	default:
		return fmt.Errorf("recognizer.backend must be \"vosk\" or \"whisper\", got %q", c.Recognizer.Backend)
	}

	if c.Recognizer.ModelPath == "" {
		return fmt.Errorf("recognizer.model_path must not be empty")
	}

	if c.Recognizer.Backend == "whisper" {
		if c.Recognizer.SilenceMs <= 0 {
			return fmt.Errorf("recognizer.silence_ms must be > 0")
		}
		if c.Recognizer.MaxBufferMs < c.Recognizer.SilenceMs {
			return fmt.Errorf("recognizer.max_buffer_ms must be >= silence_ms")
		}
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels must be 1 (mono), got %d", c.Audio.Channels)
	}

	if c.Audio.BlockSize == 0 {
		return fmt.Errorf("audio.block_size must be > 0")
	}

	if c.Transcript.Prefix == "" {
		return fmt.Errorf("transcript.prefix must not be empty")
	}
	if strings.ContainsAny(c.Transcript.Prefix, `/\`) {
		return fmt.Errorf("transcript.prefix must not contain path separators, got %q", c.Transcript.Prefix)
	}

	if c.Hotkey.Enabled {
		if len(c.Hotkey.Toggle) == 0 {
			return fmt.Errorf("hotkey.toggle must not be empty")
		}
		if len(c.Hotkey.Save) == 0 {
			return fmt.Errorf("hotkey.save must not be empty")
		}
	}

	switch c.Inject.Method {
	case "none", "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"none\", \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a log_level string to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# easelaw configuration
#
# recognizer.backend: vosk (streaming, default) or whisper (buffered on silence)
# transcript.dir:     where EaseLaw_Transcript_<timestamp>.txt files are written
# inject.method:      none, type or paste (forward finished sentences to the focused app)

`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the written path, or "" if a config was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
