// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package devto_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mvasnetsov/pressbot/internal/api/devto"
	"github.com/mvasnetsov/pressbot/internal/request"
	"github.com/mvasnetsov/pressbot/internal/testutil"
)

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func testClient(h http.Handler) *devto.Client {
	return &devto.Client{
		APIKey: "test-key",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, r)
				return w.Result(), nil
			}),
		},
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	article := devto.Article{
		Title:        "Understanding React Server Components",
		Published:    true,
		BodyMarkdown: "Server Components change where your code runs.",
		MainImage:    "https://image.pollinations.ai/prompt/cover",
		CanonicalURL: "https://example.github.io/portfolio/blog/understanding-react-server-components",
		Tags:         []string{"react", "webdev"},
	}

	var got map[string]devto.Article
	c := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Method, http.MethodPost)
		testutil.AssertEqual(t, r.URL.Path, "/api/articles")
		testutil.AssertEqual(t, r.Header.Get("api-key"), "test-key")
		testutil.AssertEqual(t, r.Header.Get("Content-Type"), "application/json")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":42,"url":"https://dev.to/mvasnetsov/understanding-react-server-components-1a2b"}`))
	}))

	published, err := c.Publish(t.Context(), article)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, map[string]devto.Article{"article": article})
	testutil.AssertEqual(t, published, &devto.PublishedArticle{
		ID:  42,
		URL: "https://dev.to/mvasnetsov/understanding-react-server-components-1a2b",
	})
}

func TestPublishRejected(t *testing.T) {
	t.Parallel()

	c := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Validation failed"}`, http.StatusUnprocessableEntity)
	}))

	_, err := c.Publish(t.Context(), devto.Article{Title: "Untitled"})
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("want StatusError, got %v", err)
	}
	testutil.AssertEqual(t, statusErr.WantStatusCode, http.StatusCreated)
	testutil.AssertEqual(t, statusErr.StatusCode, http.StatusUnprocessableEntity)
}
