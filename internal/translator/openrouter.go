package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultOpenRouterModel is used when no model is configured.
const DefaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"

// OpenRouterProvider translates through the OpenRouter chat-completions API.
type OpenRouterProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenRouterProvider(apiKey, baseURL, model string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouterProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

func (p *OpenRouterProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": buildPrompt(req)},
			{"role": "user", "content": req.Text},
		},
		"max_tokens": 4096,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("openrouter returned status %d", resp.StatusCode)
		classified := classifyStatus(resp.StatusCode, apiErr)
		if qe, ok := classified.(*QuotaError); ok {
			qe.RetryAfter = retryAfter(resp)
		}
		return nil, classified
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return nil, &TransientError{Err: fmt.Errorf("empty response from API")}
	}

	return &Result{
		ProviderName:   p.Name(),
		TranslatedText: out.Choices[0].Message.Content,
		Latency:        time.Since(start),
	}, nil
}

func (p *OpenRouterProvider) IsAvailable(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}

// retryAfter parses the Retry-After response header (seconds form only).
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// buildPrompt constructs the system prompt for LLM providers, injecting
// glossary terms when configured.
func buildPrompt(req Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an expert translator of %s Buddhist canonical texts. Translate the following text from %s to %s.\n",
		languageName(req.SourceLang), languageName(req.SourceLang), languageName(req.TargetLang))
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no numbering, no quotes, just the translation.")

	if len(req.Glossary) > 0 {
		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for src, tgt := range req.Glossary {
			fmt.Fprintf(&sb, "  %s → %s\n", src, tgt)
		}
	}

	return sb.String()
}
