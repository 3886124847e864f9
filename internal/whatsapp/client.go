package whatsapp

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

// Messenger is the slice of the WhatsApp Cloud API the bot needs.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	// DownloadMedia resolves a media id and returns the file bytes and mime type.
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

type graphClient struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	maxMediaSize  int64
	http          *http.Client
}

func NewGraphClient(baseURL, accessToken, phoneNumberID string, maxMediaSize int64) Messenger {
	return &graphClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		maxMediaSize:  maxMediaSize,
		http:          &http.Client{Timeout: 60 * time.Second},
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (g *graphClient) SendText(ctx context.Context, to, body string) error {
	msg := textMessage{MessagingProduct: "whatsapp", To: to, Type: "text"}
	msg.Text.Body = body

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s/messages", g.baseURL, g.phoneNumberID), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	resp.Body.Close()
	return nil
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

func (g *graphClient) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+mediaID, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := g.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve media %s: %w", mediaID, err)
	}
	var info mediaInfo
	err = json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if err != nil {
		return nil, "", fmt.Errorf("malformed media info: %w", err)
	}
	if info.URL == "" {
		return nil, "", errors.New("media info has no url")
	}
	if g.maxMediaSize > 0 && info.FileSize > g.maxMediaSize {
		return nil, "", fmt.Errorf("media is %d bytes, limit is %d", info.FileSize, g.maxMediaSize)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err = g.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	limit := g.maxMediaSize
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("media exceeds %d bytes", limit)
	}

	mime := info.MimeType
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}
	return data, mime, nil
}

// do adds the bearer token and turns non-2xx answers into errors.
func (g *graphClient) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("graph api %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}
