package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AddModel registers a new model entry. Existing ids are rejected with ErrModelExists.
func (c *Config) AddModel(id string, m ModelConfig) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return configErr(c.path, "models", "empty model id")
	}
	if strings.TrimSpace(m.Path) == "" {
		return configErr(c.path, "models."+id+".path", "missing")
	}
	if _, ok := c.Models[id]; ok {
		return fmt.Errorf("%w: %s", ErrModelExists, id)
	}
	if c.Models == nil {
		c.Models = map[string]ModelConfig{}
	}
	c.Models[id] = m
	return nil
}

// Save writes the configuration back to the file it was loaded from, in the same format.
// The single-model keys are dropped since Models already carries them.
func (c *Config) Save() error {
	if c.path == "" {
		return configErr("", "", "config has no backing file")
	}
	return c.SaveAs(c.path)
}

// SaveAs writes the configuration to path with mode 0600 since it may carry credentials.
func (c *Config) SaveAs(path string) error {
	out := *c
	out.ServerPort, out.ModelPath, out.GPULayers, out.Threads = 0, "", nil, 0
	b, err := encode(path, &out)
	if err != nil {
		return configErr(path, "", err.Error())
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return configErr(path, "", err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return configErr(path, "", err.Error())
	}
	c.path = path
	return nil
}

// Template returns an example configuration with placeholder credentials.
func Template() *Config {
	gl := 99
	yes, no := true, false
	return &Config{
		AWSAccessKey:  "YOUR_AWS_ACCESS_KEY",
		AWSSecretKey:  "YOUR_AWS_SECRET_KEY",
		AWSRegion:     DefaultRegion,
		InstanceID:    "i-0123456789abcdef0",
		SSHKeyPath:    "~/.ssh/your-key.pem",
		EC2User:       DefaultUser,
		BasePort:      DefaultBasePort,
		ServerWorkDir: DefaultWorkDir,
		ControlAddr:   DefaultControlAddr,
		Models: map[string]ModelConfig{
			"qwen3-embedding": {
				Name:      "Qwen3 Embedding 8B",
				Path:      "/home/ubuntu/models/Qwen3-Embedding-8B-Q4_K_M.gguf",
				GPULayers: &gl,
				Threads:   8,
				Embedding: &yes,
			},
			"gpt-oss-20b": {
				Name:      "GPT-OSS 20B",
				Path:      "/home/ubuntu/models/gpt-oss-20b-Q4_K_M.gguf",
				GPULayers: &gl,
				Threads:   8,
				Embedding: &no,
			},
		},
	}
}

// WriteTemplate writes config.<format>.template into dir and returns its path.
// format is one of json, yaml or toml.
func WriteTemplate(dir, format string) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "json", "yaml", "toml":
	case "yml":
		format = "yaml"
	default:
		return "", fmt.Errorf("unsupported template format: %s", format)
	}
	b, err := encode("config."+format, Template())
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "config."+format+".template")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", err
	}
	return p, nil
}
