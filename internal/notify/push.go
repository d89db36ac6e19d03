package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/BruksfildServices01/service-marketplace/internal/config"
)

type Pusher interface {
	Push(ctx context.Context, token string, n Notification) error
}

type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// ExpoPusher envia para a API de push da Expo respeitando um limite de
// requisições por segundo.
type ExpoPusher struct {
	url     string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

func NewExpoPusher(cfg config.PushConfig) *ExpoPusher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	return &ExpoPusher{
		url:     cfg.URL,
		token:   cfg.AccessToken,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

type expoMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
}

// IsExpoToken aceita só tokens no formato ExponentPushToken[...] / ExpoPushToken[...].
func IsExpoToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

func (p *ExpoPusher) Push(ctx context.Context, token string, n Notification) error {
	if !IsExpoToken(token) {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(expoMessage{
		To:    token,
		Title: n.Title,
		Body:  n.Body,
		Data:  n.Data,
		Sound: "default",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("expo push: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("expo push: status %d: %s", resp.StatusCode, raw)
	}

	var out expoResponse
	if err := json.Unmarshal(raw, &out); err == nil && out.Data.Status == "error" {
		// token inválido não deve reagendar o evento
		if out.Data.Details.Error == "DeviceNotRegistered" {
			return nil
		}
		return fmt.Errorf("expo push: %s", out.Data.Message)
	}
	return nil
}

type NoopPusher struct{}

func (NoopPusher) Push(context.Context, string, Notification) error { return nil }
