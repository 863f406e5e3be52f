package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spec-kit/dossier-service/internal/config"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// SmsGateway accepts (destination, body) and returns a provider delivery
// identifier or a typed failure.
type SmsGateway interface {
	Send(ctx context.Context, destination, body string) (string, error)
}

type httpSmsGateway struct {
	url    string
	apiKey string
	sender string
	client *http.Client
}

// NewHTTPSmsGateway builds a gateway posting JSON to the configured provider.
func NewHTTPSmsGateway(cfg config.SmsConfig) SmsGateway {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpSmsGateway{
		url:    cfg.GatewayURL,
		apiKey: cfg.APIKey,
		sender: cfg.Sender,
		client: &http.Client{Timeout: timeout},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

type smsResponse struct {
	ID string `json:"id"`
}

func (g *httpSmsGateway) Send(ctx context.Context, destination, body string) (string, error) {
	if g.url == "" {
		return "", errorutil.NewGatewayFailure("sms gateway not configured", nil)
	}

	payload, err := json.Marshal(smsPayload{To: destination, From: g.sender, Message: body})
	if err != nil {
		return "", errorutil.NewGatewayFailure("encode sms payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", errorutil.NewGatewayFailure("build sms request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errorutil.NewGatewayFailure("sms provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", errorutil.NewGatewayFailure(fmt.Sprintf("sms provider returned %d", resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", errorutil.NewGatewayFailure("read sms response", err)
	}
	var parsed smsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.ID == "" {
		// Provider accepted the message but returned no id.
		return "accepted", nil
	}
	return parsed.ID, nil
}
