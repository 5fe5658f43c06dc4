// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package actions provides a client for triggering GitHub Actions workflows.
package actions

import (
	"context"
	"net/http"
	"strings"

	"github.com/mvasnetsov/pressbot/internal/request"
)

const ghAPI = "https://api.github.com"

// Client represents a GitHub Actions API client.
type Client struct {
	// Token is the GitHub access token used for authentication.
	Token string
	// HTTPClient is an optional custom HTTP client object to use for requests.
	// If not provided, request.DefaultClient will be used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

// DispatchWorkflow fires a workflow_dispatch event for the workflow file in
// the "owner/name" repo on the given ref. The API reports success with 204
// and nothing else.
func (c *Client) DispatchWorkflow(ctx context.Context, repo, workflow, ref string) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    ghAPI + "/repos/" + repo + "/actions/workflows/" + workflow + "/dispatches",
		Headers: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
			"Authorization":        "Bearer " + c.Token,
		},
		Body: map[string]string{
			"ref": ref,
		},
		WantStatusCode: http.StatusNoContent,
		HTTPClient:     c.HTTPClient,
		Scrubber:       c.Scrubber,
	})
	return err
}
