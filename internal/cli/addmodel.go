package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"modelctl/internal/config"
	"modelctl/internal/prompt"
)

// addModel asks for a model entry, adds it to cfg and saves cfg in place.
func addModel(ctx context.Context, p *prompt.Prompter, cfg *config.Config) (string, error) {
	if !p.Interactive() {
		return "", errors.New("add-model needs an interactive terminal")
	}
	id, err := p.Line(ctx, "Model ID (e.g. gpt-oss-20b)", "")
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("a model ID is required")
	}
	name, err := p.Line(ctx, "Model name", id)
	if err != nil {
		return "", err
	}
	path, err := p.Line(ctx, "Model file path on the instance", "")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("a model file path is required")
	}
	layers, err := askInt(ctx, p, "GPU layers", config.DefaultGPULayers)
	if err != nil {
		return "", err
	}
	threads, err := askInt(ctx, p, "Threads", config.DefaultThreads)
	if err != nil {
		return "", err
	}
	embedding := p.Confirm(ctx, "Embedding model?", false, 0)

	m := config.ModelConfig{Name: name, Path: path, GPULayers: &layers, Threads: threads, Embedding: &embedding}
	if err := cfg.AddModel(id, m); err != nil {
		return "", err
	}
	if err := cfg.Save(); err != nil {
		return "", err
	}
	return id, nil
}

func askInt(ctx context.Context, p *prompt.Prompter, question string, def int) (int, error) {
	a, err := p.Line(ctx, question, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(a)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: not a non-negative number: %q", question, a)
	}
	return n, nil
}
