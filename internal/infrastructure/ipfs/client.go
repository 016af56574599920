package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client пишет JSON-документы в IPFS через HTTP API (/api/v0/add) и пинит их.
type Client struct {
	apiURL  string
	gateway string
	token   string
	http    *http.Client
}

func NewClient(apiURL, gateway, token string) *Client {
	return &Client{
		apiURL:  strings.TrimRight(apiURL, "/"),
		gateway: strings.TrimRight(gateway, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Формат ответа /api/v0/add
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Upload сериализует payload в JSON и возвращает CID.
func (c *Client) Upload(ctx context.Context, name string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add?pin=true&cid-version=1", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ipfs add error: status=%d body=%s", resp.StatusCode, msg)
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ipfs response: %w", err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("ipfs add returned empty hash")
	}
	return out.Hash, nil
}

// URL - ссылка на контент через публичный шлюз.
func (c *Client) URL(cid string) string {
	return c.gateway + "/" + cid
}

// Ping дергает /api/v0/version, используется в health-check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/version", nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ipfs version: status=%d", resp.StatusCode)
	}
	return nil
}
