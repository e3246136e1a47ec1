package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"modelctl/pkg/types"
)

// Defaults applied when the corresponding keys are absent.
const (
	DefaultRegion      = "us-west-2"
	DefaultUser        = "ubuntu"
	DefaultBasePort    = 8080
	DefaultWorkDir     = "/home/ubuntu/llama.cpp"
	DefaultControlAddr = "127.0.0.1:7077"
	DefaultGPULayers   = 32
	DefaultThreads     = 4
	// LegacyModelID names the model synthesized from the single-model layout.
	LegacyModelID = "default"
)

// ModelConfig is one entry of the models map.
type ModelConfig struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Path      string `json:"path" yaml:"path" toml:"path"`
	GPULayers *int   `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty" toml:"gpu_layers,omitempty"`
	Threads   int    `json:"threads,omitempty" yaml:"threads,omitempty" toml:"threads,omitempty"`
	Embedding *bool  `json:"embedding,omitempty" yaml:"embedding,omitempty" toml:"embedding,omitempty"`
}

// Config is the configuration record read once at startup.
// Zero values mean "unspecified" and are replaced by defaults in Load.
type Config struct {
	AWSAccessKey  string                 `json:"aws_access_key,omitempty" yaml:"aws_access_key,omitempty" toml:"aws_access_key,omitempty"`
	AWSSecretKey  string                 `json:"aws_secret_key,omitempty" yaml:"aws_secret_key,omitempty" toml:"aws_secret_key,omitempty"`
	AWSRegion     string                 `json:"aws_region" yaml:"aws_region" toml:"aws_region"`
	InstanceID    string                 `json:"instance_id" yaml:"instance_id" toml:"instance_id"`
	SSHKeyPath    string                 `json:"ssh_key_path" yaml:"ssh_key_path" toml:"ssh_key_path"`
	EC2User       string                 `json:"ec2_user" yaml:"ec2_user" toml:"ec2_user"`
	BasePort      int                    `json:"base_port" yaml:"base_port" toml:"base_port"`
	ServerWorkDir string                 `json:"server_work_dir" yaml:"server_work_dir" toml:"server_work_dir"`
	ControlAddr   string                 `json:"control_addr,omitempty" yaml:"control_addr,omitempty" toml:"control_addr,omitempty"`
	LogLevel      string                 `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	CORSOrigins   []string               `json:"control_cors_origins,omitempty" yaml:"control_cors_origins,omitempty" toml:"control_cors_origins,omitempty"`
	Models        map[string]ModelConfig `json:"models" yaml:"models" toml:"models"`

	// Single-model layout kept for older files; converted into Models on load.
	ServerPort int    `json:"server_port,omitempty" yaml:"server_port,omitempty" toml:"server_port,omitempty"`
	ModelPath  string `json:"model_path,omitempty" yaml:"model_path,omitempty" toml:"model_path,omitempty"`
	GPULayers  *int   `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty" toml:"gpu_layers,omitempty"`
	Threads    int    `json:"threads,omitempty" yaml:"threads,omitempty" toml:"threads,omitempty"`

	path string
}

// Load reads a configuration file based on its extension, applies defaults
// and validates required keys. Supports: .yaml/.yml, .json, .toml
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, configErr(path, "", "empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, configErr(path, "", "file not found; run `modelctl template` and ask the administrator for credentials")
		}
		return nil, configErr(path, "", err.Error())
	}
	cfg := &Config{}
	if err := decode(path, b, cfg); err != nil {
		return nil, err
	}
	cfg.path = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return configErr(path, "", "invalid yaml: "+err.Error())
		}
	case ".json":
		if err := json.Unmarshal(b, cfg); err != nil {
			return configErr(path, "", "invalid json: "+err.Error())
		}
	case ".toml":
		if err := toml.Unmarshal(b, cfg); err != nil {
			return configErr(path, "", "invalid toml: "+err.Error())
		}
	default:
		return configErr(path, "", "unsupported config extension: "+ext)
	}
	return nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	case ".json":
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case ".toml":
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
}

func (c *Config) applyDefaults() {
	if c.AWSRegion == "" {
		c.AWSRegion = DefaultRegion
	}
	if c.EC2User == "" {
		c.EC2User = DefaultUser
	}
	if c.ServerWorkDir == "" {
		c.ServerWorkDir = DefaultWorkDir
	}
	if c.ControlAddr == "" {
		c.ControlAddr = DefaultControlAddr
	}
	if c.BasePort == 0 {
		c.BasePort = c.ServerPort
		if c.BasePort == 0 {
			c.BasePort = DefaultBasePort
		}
	}
	if c.Models == nil {
		gl := DefaultGPULayers
		if c.GPULayers != nil {
			gl = *c.GPULayers
		}
		embedding := true
		c.Models = map[string]ModelConfig{
			LegacyModelID: {Name: "Default Model", Path: c.ModelPath, GPULayers: &gl, Threads: c.Threads, Embedding: &embedding},
		}
	}
}

// Validate reports the first missing or malformed required key as a ConfigError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InstanceID) == "" {
		return configErr(c.path, "instance_id", "missing")
	}
	if strings.TrimSpace(c.SSHKeyPath) == "" {
		return configErr(c.path, "ssh_key_path", "missing")
	}
	if (c.AWSAccessKey == "") != (c.AWSSecretKey == "") {
		return configErr(c.path, "aws_secret_key", "aws_access_key and aws_secret_key must be set together")
	}
	if c.BasePort < 1 || c.BasePort > 65535 {
		return configErr(c.path, "base_port", fmt.Sprintf("out of range: %d", c.BasePort))
	}
	for id, m := range c.Models {
		if strings.TrimSpace(id) == "" {
			return configErr(c.path, "models", "empty model id")
		}
		if strings.TrimSpace(m.Path) == "" {
			return configErr(c.path, "models."+id+".path", "missing")
		}
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// ControlEnabled reports whether the local control API should be served/contacted.
func (c *Config) ControlEnabled() bool {
	a := strings.TrimSpace(c.ControlAddr)
	return a != "" && a != "-" && a != "off"
}

// Descriptor resolves model id into a descriptor with defaults applied.
func (c *Config) Descriptor(id string) (types.ModelDescriptor, bool) {
	m, ok := c.Models[id]
	if !ok {
		return types.ModelDescriptor{}, false
	}
	d := types.ModelDescriptor{ID: id, Name: m.Name, Path: m.Path, GPULayers: DefaultGPULayers, Threads: m.Threads, Embedding: true}
	if d.Name == "" {
		d.Name = id
	}
	if m.GPULayers != nil {
		d.GPULayers = *m.GPULayers
	}
	if d.Threads <= 0 {
		d.Threads = DefaultThreads
	}
	if m.Embedding != nil {
		d.Embedding = *m.Embedding
	}
	return d, true
}

// Descriptors returns every configured model sorted by id.
func (c *Config) Descriptors() []types.ModelDescriptor {
	ids := make([]string, 0, len(c.Models))
	for id := range c.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]types.ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		d, _ := c.Descriptor(id)
		out = append(out, d)
	}
	return out
}
