package types

// ModelDescriptor describes how to launch a model server for one configured model.
type ModelDescriptor struct {
	// Stable identifier for the model (the key in the configuration's model map).
	// example: qwen3-embedding
	ID string `json:"id" example:"qwen3-embedding"`
	// Human-friendly name.
	// example: Qwen3 Embedding 0.6B
	Name string `json:"name" example:"Qwen3 Embedding 0.6B"`
	// Path to the model artifact on the remote instance.
	// example: /home/ubuntu/llama.cpp/models/qwen3-embedding-0.6b/Qwen3-Embedding-0.6B-Q8_0.gguf
	Path string `json:"path" example:"/home/ubuntu/llama.cpp/models/qwen3-embedding-0.6b/Qwen3-Embedding-0.6B-Q8_0.gguf"`
	// Number of layers offloaded to the GPU.
	// example: 32
	GPULayers int `json:"gpu_layers" example:"32"`
	// CPU threads used by the server.
	// example: 4
	Threads int `json:"threads" example:"4"`
	// Whether the server runs in embedding mode.
	// example: true
	Embedding bool `json:"embedding" example:"true"`
}

// Kind returns a short label for the serving mode.
func (m ModelDescriptor) Kind() string {
	if m.Embedding {
		return "embedding"
	}
	return "generation"
}
