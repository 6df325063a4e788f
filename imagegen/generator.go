package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	promptKeyPrefix = "marketing:prompts:"
	maxPrompts      = 5
)

// Generator relays marketing-image prompts to the hosted image API and
// keeps a short per-business history of recent prompts in Redis.
type Generator struct {
	apiURL string
	apiKey string
	size   string
	http   *http.Client
	rdb    *redis.Client
}

func NewGenerator(apiURL, apiKey, size string, rdb *redis.Client) *Generator {
	return &Generator{
		apiURL: apiURL,
		apiKey: apiKey,
		size:   size,
		http:   &http.Client{Timeout: 60 * time.Second},
		rdb:    rdb,
	}
}

type generateRequest struct {
	Prompt    string `json:"prompt"`
	NumImages int    `json:"num_images"`
	Size      string `json:"size"`
}

type generateResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Detail string `json:"detail"`
}

// Generate produces one image for the prompt and returns its URL. The
// prompt is recorded in the business's recent-prompt history on success.
func (g *Generator) Generate(ctx context.Context, businessID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt, NumImages: 1, Size: g.size})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("image API request failed: %w", err)
	}
	defer resp.Body.Close()

	var result generateResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(data, &result)

	if resp.StatusCode != http.StatusOK {
		detail := result.Detail
		if detail == "" {
			detail = "unknown error"
		}
		return "", fmt.Errorf("image API returned %d: %s", resp.StatusCode, detail)
	}
	if len(result.Images) == 0 {
		return "", fmt.Errorf("no image was generated, try a different prompt")
	}

	g.rememberPrompt(ctx, businessID, prompt)
	return result.Images[0].URL, nil
}

// RecentPrompts returns the newest-first distinct prompts for a business.
func (g *Generator) RecentPrompts(ctx context.Context, businessID string) ([]string, error) {
	if g.rdb == nil {
		return nil, nil
	}
	prompts, err := g.rdb.LRange(ctx, promptKeyPrefix+businessID, 0, maxPrompts-1).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent prompts: %w", err)
	}
	return prompts, nil
}

func (g *Generator) rememberPrompt(ctx context.Context, businessID, prompt string) {
	if g.rdb == nil {
		return
	}
	key := promptKeyPrefix + businessID
	pipe := g.rdb.TxPipeline()
	pipe.LRem(ctx, key, 0, prompt)
	pipe.LPush(ctx, key, prompt)
	pipe.LTrim(ctx, key, 0, maxPrompts-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("imagegen: failed to record prompt: %v", err)
	}
}
