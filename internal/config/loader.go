package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr                 string  `json:"addr" yaml:"addr" toml:"addr"`
	Model                string  `json:"model" yaml:"model" toml:"model"`
	GPUMemoryUtilization float64 `json:"gpu_memory_utilization" yaml:"gpu_memory_utilization" toml:"gpu_memory_utilization"`
	Quantization         string  `json:"quantization" yaml:"quantization" toml:"quantization"`
	APIKey               string  `json:"api_key" yaml:"api_key" toml:"api_key"`
	ContextLen           int     `json:"context_len" yaml:"context_len" toml:"context_len"`
	Threads              int     `json:"threads" yaml:"threads" toml:"threads"`
	MaxQueueDepth        int     `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds       int     `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays the process environment onto cfg. Environment values win
// over file values. Called once at startup; the result is immutable for the
// process lifetime.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GPU_MEMORY_UTILIZATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.GPUMemoryUtilization = f
		}
	}
	if v := os.Getenv("QUANTIZATION"); v != "" {
		cfg.Quantization = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	return cfg
}

// ApplyDefaults fills unspecified fields with service defaults.
func ApplyDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.Model == "" {
		cfg.Model = "meta-llama/Meta-Llama-3-8B-Instruct"
	}
	if cfg.GPUMemoryUtilization == 0 {
		cfg.GPUMemoryUtilization = 0.85
	}
	return cfg
}
