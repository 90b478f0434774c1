package openai

import (
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Models used for the two provider calls, matching the original service.
const (
	whisperModel = "whisper-1"
	chatModel    = "gpt-4o"
)

// Client talks to the OpenAI HTTP API for speech-to-text and text
// generation. It performs exactly one call per invocation, no retries;
// retry policy, if ever needed, belongs to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a provider client. The HTTP timeout bounds every
// provider call so a hung request cannot block a worker forever.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// NewClientForTests points the client at a custom base URL.
func NewClientForTests(apiKey, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// ProviderError reports a non-success response from the provider API.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// TransportError reports a network-level failure before any provider
// response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
