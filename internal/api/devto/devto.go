// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package devto provides a client for publishing articles through the
// dev.to (Forem) API.
package devto

import (
	"context"
	"net/http"
	"strings"

	"github.com/mvasnetsov/pressbot/internal/request"
)

const apiURL = "https://dev.to/api"

// Client represents a dev.to API client.
type Client struct {
	// APIKey is the dev.to API key used for authentication.
	APIKey string
	// HTTPClient is an optional custom HTTP client object to use for requests.
	// If not provided, request.DefaultClient will be used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

// Article is an article to be created on dev.to.
type Article struct {
	Title        string   `json:"title"`
	Published    bool     `json:"published"`
	BodyMarkdown string   `json:"body_markdown"`
	MainImage    string   `json:"main_image,omitempty"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// PublishedArticle describes an article that dev.to accepted.
type PublishedArticle struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Publish creates a published article on dev.to.
func (c *Client) Publish(ctx context.Context, article Article) (*PublishedArticle, error) {
	return request.Make[*PublishedArticle](ctx, request.Params{
		Method: http.MethodPost,
		URL:    apiURL + "/articles",
		Headers: map[string]string{
			"api-key": c.APIKey,
		},
		Body: map[string]Article{
			"article": article,
		},
		WantStatusCode: http.StatusCreated,
		HTTPClient:     c.HTTPClient,
		Scrubber:       c.Scrubber,
	})
}
