package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/mvasnetsov/pressbot/internal/state"
	"github.com/mvasnetsov/pressbot/internal/testutil"
)

func TestTrends(t *testing.T) {
	t.Parallel()

	m := testMux(t, nil)
	m.updates = []map[string]any{operatorReply(41, "hello")}
	b, ctx := testBot(t, m)

	if err := b.trends(ctx); err != nil {
		t.Fatal(err)
	}

	data := currentState(t, b)
	testutil.AssertEqual(t, len(data.Trends), trendLimit)
	testutil.AssertEqual(t, data.Trends[0], state.Trend{
		Title: "Understanding React Server Components",
		Link:  "https://dev.to/alice/understanding-react-server-components",
	})
	testutil.AssertEqual(t, data.Trends[3].Title, "Tailwind Tricks I Wish I Knew Earlier")
	testutil.AssertEqual(t, data.Pending.Question, state.SelectTrend)
	testutil.AssertEqual(t, data.Pending.AfterUpdateID, int64(41))

	texts := messageTexts(t, m)
	testutil.AssertEqual(t, len(texts), 1)
	for _, want := range []string{
		"Daily trends:",
		"1️⃣ Understanding React Server Components",
		"4️⃣ Tailwind Tricks I Wish I Knew Earlier",
		"Reply with a number to draft.",
	} {
		if !strings.Contains(texts[0], want) {
			t.Errorf("trends message doesn't contain %q:\n%s", want, texts[0])
		}
	}

	testutil.AssertEqual(t, m.commits, []string{"Trends"})
}

func TestTrendsKeepsExistingDraft(t *testing.T) {
	t.Parallel()

	m := testMux(t, nil)
	b, ctx := testBot(t, m)
	seedDraft(t, b, 10)

	if err := b.trends(ctx); err != nil {
		t.Fatal(err)
	}

	data := currentState(t, b)
	if data.Draft == nil {
		t.Fatal("trends run dropped the stored draft")
	}
	// The new question supersedes the publish decision: at most one
	// outstanding question at a time.
	testutil.AssertEqual(t, data.Pending.Question, state.SelectTrend)
}

func TestTrendsEmptyFeed(t *testing.T) {
	t.Parallel()

	m := testMux(t, map[string]http.HandlerFunc{
		fetchFeed: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>empty</title></channel></rss>`))
		},
	})
	b, ctx := testBot(t, m)

	if err := b.trends(ctx); err != nil {
		t.Fatal(err)
	}

	texts := messageTexts(t, m)
	testutil.AssertEqual(t, len(texts), 1)
	if !strings.Contains(texts[0], "No trends today") {
		t.Errorf("want empty-feed notice, got %q", texts[0])
	}

	data := currentState(t, b)
	if data.Pending != nil {
		t.Error("empty feed must not leave a question pending")
	}
	testutil.AssertEqual(t, len(m.commits), 0)
}

func TestTrendsFeedError(t *testing.T) {
	t.Parallel()

	m := testMux(t, map[string]http.HandlerFunc{
		fetchFeed: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "I'm a teapot.", http.StatusTeapot)
		},
	})
	b, ctx := testBot(t, m)

	err := b.trends(ctx)
	if err == nil {
		t.Fatal("want an error for a failing feed")
	}
	if !strings.Contains(err.Error(), "want 200, got 418") {
		t.Errorf("unexpected error: %v", err)
	}

	// Feed failures stay local: no chat traffic, no commit.
	testutil.AssertEqual(t, len(m.sentMessages), 0)
	testutil.AssertEqual(t, len(m.commits), 0)
}

func TestTrendsDry(t *testing.T) {
	t.Parallel()

	m := testMux(t, nil)
	b, ctx := testBot(t, m)
	b.dry = true

	if err := b.trends(ctx); err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, len(m.sentMessages), 0)
	testutil.AssertEqual(t, len(m.commits), 0)
	data := currentState(t, b)
	testutil.AssertEqual(t, len(data.Trends), 0)
}
