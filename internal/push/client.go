// Package push はプッシュ通知ゲートウェイのクライアントを提供する。
// デバイストークン宛のsend-by-token契約のみを扱う。
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Message は1件のプッシュ通知を表す。
type Message struct {
	Token string
	Title string
	Body  string
}

// Sender はプッシュ送信のインターフェース。
// テスト時にモックに差し替え可能。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client はプッシュゲートウェイのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// sendRequest はゲートウェイのsendエンドポイントのリクエストボディ。
type sendRequest struct {
	To           string           `json:"to"`
	Notification sendNotification `json:"notification"`
}

type sendNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send は1件のプッシュ通知をデバイストークン宛に送信する。
// 失効トークン等による失敗はエラーとして返し、リトライは呼び出し元に委ねる。
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("device token is required")
	}

	payload, err := json.Marshal(sendRequest{
		To: msg.Token,
		Notification: sendNotification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "key="+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("プッシュゲートウェイがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	return nil
}

// compile-time interface check
var _ Sender = (*Client)(nil)
