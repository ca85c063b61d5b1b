// Package ghost publishes the weekly digest as a draft post through the
// Ghost Admin API.
package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"performance-meal-planner/internal/config"
)

// Post represents a single post returned by the Ghost API.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	UpdatedAt string `json:"updated_at"`
}

// PostsResponse is the top-level structure of the Ghost API response for posts.
type PostsResponse struct {
	Posts []Post `json:"posts"`
}

// Client creates posts through the Admin API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	adminKey   string
	log        logrus.FieldLogger
}

// NewClient creates a new Ghost Admin API client.
func NewClient(cfg config.GhostConfig, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		adminKey:   cfg.AdminKey,
		log:        log,
	}
}

// mobiledoc wraps markdown in a single markdown card, the form the Admin
// API accepts for markdown content.
func mobiledoc(markdown string) (string, error) {
	doc := map[string]any{
		"version":  "0.3.1",
		"atoms":    []any{},
		"markups":  []any{},
		"cards":    []any{[]any{"markdown", map[string]string{"markdown": markdown}}},
		"sections": []any{[]any{10, 0}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateDraft creates a draft post holding the markdown body.
func (c *Client) CreateDraft(ctx context.Context, title, markdown string) (*Post, error) {
	token, err := c.createAdminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}
	md, err := mobiledoc(markdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mobiledoc: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"posts": []map[string]any{{
			"title":     title,
			"mobiledoc": md,
			"status":    "draft",
			"tags":      []string{"meal-plan"},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ghost/api/admin/posts/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp any
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("admin api error: status %d, body: %v", resp.StatusCode, errResp)
	}

	var response PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api")
	}
	return &response.Posts[0], nil
}

// Send creates the draft and reports success. Errors are logged, never
// returned.
func (c *Client) Send(ctx context.Context, subject, body string) bool {
	post, err := c.CreateDraft(ctx, subject, body)
	if err != nil {
		c.log.WithError(err).Error("ghost delivery failed")
		return false
	}
	c.log.WithField("post_id", post.ID).Info("digest saved as ghost draft")
	return true
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *Client) createAdminToken() (string, error) {
	id, secretHex, ok := strings.Cut(c.adminKey, ":")
	if !ok || id == "" || secretHex == "" {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
