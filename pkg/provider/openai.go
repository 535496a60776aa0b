// Package provider implements upstream transports satisfying
// sample.Querier. Transports are thin I/O wrappers: one Query call is one
// round trip, failures are reported as sample.TransportError and never
// retried here.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"sampled/pkg/sample"
)

const userAgent = "sampled"

// Client queries an OpenAI-compatible chat completions endpoint:
// POST {base}/chat/completions with Bearer auth and a non-streaming body
// {model, temperature, n, messages}.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpc       *http.Client
}

// NewClient builds a transport for the endpoint at baseURL (no trailing
// slash). The model name and temperature are sent with every request.
func NewClient(baseURL, apiKey, model string, temperature float64) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpc:       &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	N           int           `json:"n"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Query performs one round trip requesting exactly n fresh completions.
func (c *Client) Query(ctx context.Context, prompt string, n int) ([]string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		N:           n,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &sample.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sample.TransportError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// include the body for diagnosis
		return nil, &sample.TransportError{Status: resp.StatusCode, Message: string(raw)}
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &sample.TransportError{Status: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	out := make([]string, 0, len(parsed.Choices))
	for _, ch := range parsed.Choices {
		out = append(out, ch.Message.Content)
	}
	return out, nil
}

// New returns a batched sampler over an OpenAI-compatible endpoint.
func New(baseURL, apiKey string, spec sample.Spec) *sample.Buffered {
	spec = spec.Normalize()
	return sample.NewBuffered(spec, NewClient(baseURL, apiKey, spec.Name, spec.Temperature))
}

// fromEnv builds a preset sampler, reading the API key from the named
// environment variable.
func fromEnv(baseURL, keyEnv string, spec sample.Spec) (*sample.Buffered, error) {
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("provider: %s is not set", keyEnv)
	}
	return New(baseURL, key, spec), nil
}

// Fireworks samples from the Fireworks AI inference endpoint
// (FIREWORKS_API_KEY).
func Fireworks(spec sample.Spec) (*sample.Buffered, error) {
	return fromEnv("https://api.fireworks.ai/inference/v1", "FIREWORKS_API_KEY", spec)
}

// AI302 samples from the 302.ai endpoint (AI302_API_KEY).
func AI302(spec sample.Spec) (*sample.Buffered, error) {
	return fromEnv("https://api.302.ai/v1", "AI302_API_KEY", spec)
}

// CloseAI samples from the CloseAI proxy endpoint (CLOSEAI_API_KEY).
func CloseAI(spec sample.Spec) (*sample.Buffered, error) {
	return fromEnv("https://api.openai-proxy.org/v1", "CLOSEAI_API_KEY", spec)
}

// XMCP samples from the XMCP endpoint (XMCP_API_KEY).
func XMCP(spec sample.Spec) (*sample.Buffered, error) {
	return fromEnv("https://llm.xmcp.ltd", "XMCP_API_KEY", spec)
}

// Presets maps config preset names to constructors.
var Presets = map[string]func(sample.Spec) (*sample.Buffered, error){
	"fireworks": Fireworks,
	"302ai":     AI302,
	"closeai":   CloseAI,
	"xmcp":      XMCP,
}
