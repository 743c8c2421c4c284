package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// Provider is the interface for text completion backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProvider creates a Provider from configuration.
// timeoutSec overrides the default HTTP timeout; 0 uses per-provider defaults.
// command is only used by the "command" provider.
func NewProvider(provider, apiKey, model, endpoint string, command []string, timeoutSec int) (Provider, error) {
	timeoutOr := func(def time.Duration) time.Duration {
		if timeoutSec > 0 {
			return time.Duration(timeoutSec) * time.Second
		}
		return def
	}

	switch provider {
	case "anthropic":
		ep := "https://api.anthropic.com/v1"
		if endpoint != "" {
			ep = endpoint
		}
		return &AnthropicProvider{
			apiKey:   apiKey,
			model:    model,
			endpoint: strings.TrimRight(ep, "/"),
			client:   &http.Client{Timeout: timeoutOr(120 * time.Second)},
		}, nil
	case "openai":
		ep := "https://api.openai.com/v1"
		if endpoint != "" {
			ep = endpoint
		}
		return &OpenAIProvider{
			apiKey:   apiKey,
			model:    model,
			endpoint: strings.TrimRight(ep, "/"),
			client:   &http.Client{Timeout: timeoutOr(120 * time.Second)},
		}, nil
	case "ollama":
		ep := "http://localhost:11434"
		if endpoint != "" {
			ep = endpoint
		}
		return &OllamaProvider{
			model:    model,
			endpoint: strings.TrimRight(ep, "/"),
			client:   &http.Client{Timeout: timeoutOr(300 * time.Second)},
		}, nil
	case "command":
		if len(command) == 0 {
			return nil, fmt.Errorf("command provider requires an argv")
		}
		return &CommandProvider{argv: append([]string(nil), command...)}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q", provider)
	}
}

// --- Anthropic Provider ---

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := map[string]interface{}{
		"model":      p.model,
		"max_tokens": 2048,
		"system":     systemPrompt,
		"messages": []map[string]interface{}{
			{"role": "user", "content": userPrompt},
		},
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}

	respBody, err := postJSON(ctx, p.client, p.endpoint+"/messages", headers, body, "anthropic")
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in anthropic response")
}

// --- OpenAI Provider ---

// OpenAIProvider implements Provider for OpenAI and compatible chat APIs.
type OpenAIProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens": 2048,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	respBody, err := postJSON(ctx, p.client, p.endpoint+"/chat/completions", headers, body, "openai")
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	return result.Choices[0].Message.Content, nil
}

// --- Ollama Provider ---

// OllamaProvider implements Provider for a local Ollama server.
type OllamaProvider struct {
	model    string
	endpoint string
	client   *http.Client
}

func (p *OllamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream": false,
	}

	respBody, err := postJSON(ctx, p.client, p.endpoint+"/api/chat", nil, body, "ollama")
	if err != nil {
		return "", err
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return result.Message.Content, nil
}

// --- Command Provider ---

// CommandProvider runs a local program (for example `ollama run mistral`),
// writes the prompt to its stdin and returns its stdout.
type CommandProvider struct {
	argv []string
}

func (p *CommandProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Stdin = strings.NewReader(systemPrompt + "\n\n" + userPrompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", p.argv[0], ctx.Err())
		}
		return "", fmt.Errorf("%s: %w: %s", p.argv[0], err, truncateAPIError(stderr.Bytes()))
	}
	return stdout.String(), nil
}

// postJSON sends body as JSON and returns the response body of a 200 reply.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body interface{}, name string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error %d: %s", name, resp.StatusCode, truncateAPIError(respBody))
	}
	return respBody, nil
}

// truncateAPIError limits error bodies to 512 bytes.
func truncateAPIError(body []byte) string {
	const maxLen = 512
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "... (truncated)"
}
