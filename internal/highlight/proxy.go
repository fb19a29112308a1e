package highlight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultProxyURL     = "http://localhost:5000/query"
	defaultProxyTimeout = 5 * time.Minute
)

type proxyRequest struct {
	Prompt      string `json:"prompt"`
	AccessToken string `json:"accessToken"`
}

type proxyResponse struct {
	Message *string `json:"message"`
}

// proxyBackend forwards prompts to a chat backend which answers with
// {"message": "..."}.
type proxyBackend struct {
	client *resty.Client
	url    string
	token  string
}

func newProxyBackend(token, endpoint string, timeout time.Duration) (*proxyBackend, error) {
	if endpoint == "" {
		endpoint = DefaultProxyURL
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", endpoint)
	}
	if timeout <= 0 {
		timeout = defaultProxyTimeout
	}

	return &proxyBackend{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		url:   endpoint,
		token: token,
	}, nil
}

func (b *proxyBackend) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(proxyRequest{Prompt: prompt, AccessToken: b.token}).
		Post(b.url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("proxy returned %s", resp.Status())
	}

	var out proxyResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode proxy response: %w", err)
	}
	if out.Message == nil {
		return "", fmt.Errorf("proxy response has no message")
	}
	return *out.Message, nil
}
