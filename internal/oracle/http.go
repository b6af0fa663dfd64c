package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultResultPath = "scores"
	defaultBatchSize  = 256
	maxResponseBytes  = 64 << 20
)

var ErrRemoteResponse = errors.New("malformed remote oracle response")

// HTTP scores sequences with a remote model server. Each request is a JSON
// body {"sequences": [...]}; scores are read from the response with a gjson
// path.
type HTTP struct {
	URL        string
	Client     *http.Client
	ResultPath string
	BatchSize  int
	Headers    map[string]string
	Limiter    *rate.Limiter
}

func (h *HTTP) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	if h.URL == "" {
		return nil, errors.New("remote oracle url is required")
	}
	batchSize := h.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	out := make([]float64, 0, len(sequences))
	for start := 0; start < len(sequences); start += batchSize {
		end := start + batchSize
		if end > len(sequences) {
			end = len(sequences)
		}
		scores, err := h.post(ctx, sequences[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, scores...)
	}
	return out, nil
}

func (h *HTTP) post(ctx context.Context, chunk []string) ([]float64, error) {
	if h.Limiter != nil {
		if err := h.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(map[string]any{"sequences": chunk})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote oracle request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read remote oracle response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote oracle status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrRemoteResponse)
	}

	path := h.ResultPath
	if path == "" {
		path = defaultResultPath
	}
	result := gjson.GetBytes(data, path)
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: %q is not an array", ErrRemoteResponse, path)
	}
	values := result.Array()
	if len(values) != len(chunk) {
		return nil, fmt.Errorf("%w: got %d scores want %d", ErrScoreCount, len(values), len(chunk))
	}
	scores := make([]float64, len(values))
	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, fmt.Errorf("%w: score %d is %s", ErrRemoteResponse, i, v.Type)
		}
		scores[i] = v.Float()
	}
	return scores, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
