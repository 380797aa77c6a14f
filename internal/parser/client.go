package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/aiglow/satbank/internal/domain"
)

// parseTimeout bounds a single parsing call. PDF extraction is slow
// upstream, so this is deliberately generous.
const parseTimeout = 2 * time.Minute

// Config holds the parsing service configuration
type Config struct {
	BaseURL string
}

// NewConfig creates a parsing service configuration from environment variables
func NewConfig() *Config {
	baseURL := os.Getenv("PARSER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Config{BaseURL: baseURL}
}

// Client calls the external AI question parsing service. It implements
// domain.ParsingClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new parsing service client
func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: parseTimeout},
	}
}

// ParsePDF uploads a document and returns the extracted question drafts
func (c *Client) ParsePDF(ctx context.Context, fileName string, file io.Reader) (*domain.ParseResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse-pdf", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parsing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("parsing service returned status %d: %s", resp.StatusCode, errorDetail(resp.Body))
	}

	var result domain.ParseResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode parsing response: %w", err)
	}

	return &result, nil
}

// errorDetail extracts the FastAPI-style {"detail": "..."} message from an
// error response, falling back to the raw body.
func errorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}

	return string(data)
}
