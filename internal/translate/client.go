// Package translate 封装对 DeepL 风格翻译接口的调用。
// 对中继来说它是黑盒文本变换，只被 REST 层使用。
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrNoAPIKey = errors.New("translate: api key not configured")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type request struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type response struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate 把 text 翻译到 targetLang，源语言交给服务端自动检测。
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	body, err := json.Marshal(request{Text: []string{text}, TargetLang: targetLang})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: unexpected status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Translations) == 0 {
		return "", errors.New("translate: empty response")
	}
	return out.Translations[0].Text, nil
}
