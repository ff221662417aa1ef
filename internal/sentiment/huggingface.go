package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HFClient calls the Hugging Face inference API for text classification.
type HFClient struct {
	baseURL  string
	model    string
	token    string
	maxChars int
	client   *http.Client
}

type HFOptions struct {
	BaseURL  string
	Model    string
	Token    string
	MaxChars int
	Timeout  time.Duration
}

func NewHFClient(opts HFOptions) *HFClient {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 512
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &HFClient{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		model:    opts.Model,
		token:    opts.Token,
		maxChars: opts.MaxChars,
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

// emotionLabels is the label count of the emotion model.
const emotionLabels = 7

var errNoResult = errors.New("no valid classification result")

func (c *HFClient) Classify(ctx context.Context, text string) (*Result, error) {
	scores, err := c.scores(ctx, truncate(text, c.maxChars))
	if err != nil {
		return nil, err
	}
	top := scores[0]
	for _, e := range scores[1:] {
		if e.Score > top.Score {
			top = e
		}
	}
	compound := Compound(scores)
	return &Result{Emotion: top, Compound: compound, Polarity: PolarityLabel(compound)}, nil
}

func (c *HFClient) scores(ctx context.Context, input string) ([]Emotion, error) {
	payload := map[string]any{
		"inputs": input,
		"parameters": map[string]any{
			"top_k": emotionLabels, // all of them; polarity needs the full distribution
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return parseScores(respBody)
}

// parseScores accepts both [[{label,score}]] (batched) and [{label,score}].
func parseScores(raw []byte) ([]Emotion, error) {
	var nested [][]Emotion
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, errNoResult
		}
		return nested[0], nil
	}
	var flat []Emotion
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(flat) == 0 {
		return nil, errNoResult
	}
	return flat, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
