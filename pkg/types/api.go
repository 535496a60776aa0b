package types

// ChatMessage is one message in an OpenAI-compatible chat request.
type ChatMessage struct {
	// Message role: system, user, or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatRequest is the OpenAI-compatible payload accepted by
// POST /v1/chat/completions. The prompt is the content of the last user
// message; multi-turn state is not supported.
type ChatRequest struct {
	// Optional model id (the configured alias). If empty, the server
	// default is used.
	// example: tinyllama
	Model string `json:"model,omitempty" example:"tinyllama"`
	// Number of completions to return. Defaults to 1.
	// example: 3
	N int `json:"n,omitempty" example:"3"`
	// Chat messages; the last user message is the prompt.
	Messages []ChatMessage `json:"messages"`
}

// ChatChoice is one completion in a ChatResponse.
type ChatChoice struct {
	Index   int         `json:"index"`
	Message ChatMessage `json:"message"`
	// example: stop
	FinishReason string `json:"finish_reason,omitempty" example:"stop"`
}

// ChatResponse is returned by POST /v1/chat/completions.
type ChatResponse struct {
	// example: chat.completion
	Object  string       `json:"object" example:"chat.completion"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// Model describes one configured model for GET /models.
type Model struct {
	// Externally visible id (the cache alias).
	// example: tinyllama
	ID string `json:"id" example:"tinyllama"`
	// Upstream model name.
	// example: accounts/fireworks/models/llama-v3-8b
	Name string `json:"name"`
	// Sampling temperature.
	// example: 0.7
	Temperature float64 `json:"temperature" example:"0.7"`
	// Cache partition directory name.
	// example: tinyllama_0.7
	Partition string `json:"partition"`
	// Maximum completions per upstream round trip.
	// example: 4
	MaxBatch int `json:"max_batch" example:"4"`
	// Whether the model serves only recorded samples.
	// example: false
	Replication bool `json:"replication" example:"false"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// example: 400
	Code int `json:"code" example:"400"`
}

// CacheStats carries replay/fresh counters for one model's cache.
type CacheStats struct {
	// Pulls served from the recorded sequence.
	// example: 40
	Hits int64 `json:"hits" example:"40"`
	// Pulls past the recorded sequence (fresh fetch, or a miss in
	// replication mode).
	// example: 2
	Misses int64 `json:"misses" example:"2"`
}

// ModelStatus summarizes one model's cache for GET /status.
type ModelStatus struct {
	ID        string     `json:"id"`
	Partition string     `json:"partition"`
	// Number of recorded prompt fingerprints.
	// example: 12
	Fingerprints int `json:"fingerprints" example:"12"`
	// Total recorded samples across fingerprints.
	// example: 96
	Samples int        `json:"samples" example:"96"`
	Stats   CacheStats `json:"stats"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	// example: /var/lib/sampled/cache
	CacheRoot string `json:"cache_root"`
	// example: false
	Replication bool `json:"replication"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Optional top-level error message.
	Error string `json:"error,omitempty"`
}
