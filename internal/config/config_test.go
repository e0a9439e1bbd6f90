package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Recognizer.Backend != "vosk" {
		t.Errorf("Recognizer.Backend = %q, want %q", cfg.Recognizer.Backend, "vosk")
	}
	if cfg.Recognizer.ModelPath == "" {
		t.Error("Recognizer.ModelPath should not be empty")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Audio.BlockSize != 8000 {
		t.Errorf("Audio.BlockSize = %d, want 8000", cfg.Audio.BlockSize)
	}
	if cfg.Transcript.Prefix != "EaseLaw_Transcript" {
		t.Errorf("Transcript.Prefix = %q, want %q", cfg.Transcript.Prefix, "EaseLaw_Transcript")
	}
	if cfg.Transcript.Dir != "." {
		t.Errorf("Transcript.Dir = %q, want %q", cfg.Transcript.Dir, ".")
	}
	if cfg.Inject.Method != "none" {
		t.Errorf("Inject.Method = %q, want %q", cfg.Inject.Method, "none")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
recognizer:
  backend: whisper
  model_path: /tmp/ggml-base.en.bin
  silence_ms: 300
  max_buffer_ms: 6000
audio:
  sample_rate: 8000
  block_size: 4000
transcript:
  dir: /tmp/transcripts
  prefix: Hearing
hotkey:
  enabled: false
inject:
  method: paste
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Recognizer.Backend != "whisper" {
		t.Errorf("Recognizer.Backend = %q, want %q", cfg.Recognizer.Backend, "whisper")
	}
	if cfg.Recognizer.ModelPath != "/tmp/ggml-base.en.bin" {
		t.Errorf("Recognizer.ModelPath = %q", cfg.Recognizer.ModelPath)
	}
	if cfg.Recognizer.ModelURL != defaultWhisperModelURL {
		t.Errorf("Recognizer.ModelURL = %q, want whisper default", cfg.Recognizer.ModelURL)
	}
	if cfg.Recognizer.SilenceMs != 300 || cfg.Recognizer.MaxBufferMs != 6000 {
		t.Errorf("silence/max = %d/%d, want 300/6000", cfg.Recognizer.SilenceMs, cfg.Recognizer.MaxBufferMs)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("Audio.SampleRate = %d, want 8000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want default 1", cfg.Audio.Channels)
	}
	if cfg.Audio.BlockSize != 4000 {
		t.Errorf("Audio.BlockSize = %d, want 4000", cfg.Audio.BlockSize)
	}
	if cfg.Transcript.Dir != "/tmp/transcripts" || cfg.Transcript.Prefix != "Hearing" {
		t.Errorf("Transcript = %+v", cfg.Transcript)
	}
	if cfg.Hotkey.Enabled {
		t.Error("Hotkey.Enabled = true, want false")
	}
	if len(cfg.Hotkey.Toggle) != 3 {
		t.Errorf("Hotkey.Toggle = %v, want default binding kept", cfg.Hotkey.Toggle)
	}
	if cfg.Inject.Method != "paste" {
		t.Errorf("Inject.Method = %q, want %q", cfg.Inject.Method, "paste")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
recognizer:
  model_path: ~/models/vosk
transcript:
  dir: ~/transcripts
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "models/vosk"); cfg.Recognizer.ModelPath != want {
		t.Errorf("Recognizer.ModelPath = %q, want %q", cfg.Recognizer.ModelPath, want)
	}
	if want := filepath.Join(home, "transcripts"); cfg.Transcript.Dir != want {
		t.Errorf("Transcript.Dir = %q, want %q", cfg.Transcript.Dir, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("audio: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Recognizer.Backend = "kaldi" },
			wantErr: true,
		},
		{
			name:    "empty model path",
			modify:  func(c *Config) { c.Recognizer.ModelPath = "" },
			wantErr: true,
		},
		{
			name: "whisper without silence window",
			modify: func(c *Config) {
				c.Recognizer.Backend = "whisper"
				c.Recognizer.SilenceMs = 0
			},
			wantErr: true,
		},
		{
			name: "whisper max buffer shorter than silence",
			modify: func(c *Config) {
				c.Recognizer.Backend = "whisper"
				c.Recognizer.SilenceMs = 800
				c.Recognizer.MaxBufferMs = 400
			},
			wantErr: true,
		},
		{
			name:    "vosk ignores whisper tuning",
			modify:  func(c *Config) { c.Recognizer.SilenceMs = 0 },
			wantErr: false,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "stereo capture",
			modify:  func(c *Config) { c.Audio.Channels = 2 },
			wantErr: true,
		},
		{
			name:    "zero block size",
			modify:  func(c *Config) { c.Audio.BlockSize = 0 },
			wantErr: true,
		},
		{
			name:    "empty transcript prefix",
			modify:  func(c *Config) { c.Transcript.Prefix = "" },
			wantErr: true,
		},
		{
			name:    "prefix with separator",
			modify:  func(c *Config) { c.Transcript.Prefix = "../evil" },
			wantErr: true,
		},
		{
			name:    "enabled hotkeys without toggle binding",
			modify:  func(c *Config) { c.Hotkey.Toggle = nil },
			wantErr: true,
		},
		{
			name: "disabled hotkeys need no bindings",
			modify: func(c *Config) {
				c.Hotkey.Enabled = false
				c.Hotkey.Toggle = nil
				c.Hotkey.Save = nil
			},
			wantErr: false,
		},
		{
			name:    "invalid inject method",
			modify:  func(c *Config) { c.Inject.Method = "bluetooth" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "easelaw", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# easelaw") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Recognizer.Backend != "vosk" {
		t.Errorf("written config Recognizer.Backend = %q, want %q", cfg.Recognizer.Backend, "vosk")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("written config Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "easelaw")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("recognizer:\n  model_path: /custom/model\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
