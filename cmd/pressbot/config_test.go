package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvasnetsov/pressbot/internal/cover"
	"github.com/mvasnetsov/pressbot/internal/testutil"
)

func parseTestConfig(t *testing.T, src string) *config {
	t.Helper()
	b := &bot{logf: t.Logf}
	cfg, err := b.parseConfig(src)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestEmbeddedConfig(t *testing.T) {
	t.Parallel()

	cfg := parseTestConfig(t, defaultConfigStar)

	testutil.AssertEqual(t, cfg.FeedURL, "https://dev.to/feed/tag/react")
	testutil.AssertEqual(t, cfg.Model, "gemini-2.5-flash")
	// Publishing stays off until the operator uncomments site().
	testutil.AssertEqual(t, cfg.SiteURL, "")
	testutil.AssertEqual(t, cfg.ContentDir, "src/content/blog")
	testutil.AssertEqual(t, cfg.AssetsDir, "src/assets")
	testutil.AssertEqual(t, cfg.Tags, []string{"react", "webdev"})
	testutil.AssertEqual(t, cfg.Workflow, "deploy-site.yml")
	testutil.AssertEqual(t, cfg.Ref, "main")
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg := parseTestConfig(t, `
feed_url = "https://example.com/feed.xml"
model = "gemini-2.5-pro"
content_dir = "content/posts"
assets_dir = "public/img"
footer = "---\nThanks for reading."
tags = ["go", "testing", "tdd"]
tech_visuals = {"Go": "blue gopher mascot terminal"}

site(
    url = "https://blog.example.com/",
    base_path = "notes/",
)

deploy(
    workflow = "publish.yml",
    ref = "prod",
)
`)

	testutil.AssertEqual(t, cfg.FeedURL, "https://example.com/feed.xml")
	testutil.AssertEqual(t, cfg.Model, "gemini-2.5-pro")
	testutil.AssertEqual(t, cfg.ContentDir, "content/posts")
	testutil.AssertEqual(t, cfg.AssetsDir, "public/img")
	testutil.AssertEqual(t, cfg.Footer, "---\nThanks for reading.")
	testutil.AssertEqual(t, cfg.Tags, []string{"go", "testing", "tdd"})
	testutil.AssertEqual(t, cfg.Workflow, "publish.yml")
	testutil.AssertEqual(t, cfg.Ref, "prod")

	// Surrounding slashes are normalized away.
	testutil.AssertEqual(t, cfg.SiteURL, "https://blog.example.com")
	testutil.AssertEqual(t, cfg.BasePath, "/notes")

	// Overrides merge over the built-in table instead of replacing it.
	testutil.AssertEqual(t, cover.Keywords(cfg.Visuals, "Go"), "blue gopher mascot terminal")
	testutil.AssertEqual(t, cover.Keywords(cfg.Visuals, "React"), "atomic orbital rings component tree blue cyan")
}

func TestConfigControlFlow(t *testing.T) {
	t.Parallel()

	cfg := parseTestConfig(t, `
fast = False

feed_url = "https://example.com/feed.xml"
if fast:
    model = "gemini-2.5-flash"
else:
    model = "gemini-2.5-pro"
`)

	testutil.AssertEqual(t, cfg.Model, "gemini-2.5-pro")
	testutil.AssertEqual(t, cfg.FeedURL, "https://example.com/feed.xml")
}

func TestConfigPrint(t *testing.T) {
	t.Parallel()

	var logs []string
	b := &bot{logf: func(format string, args ...any) {
		logs = append(logs, fmt.Sprintf(format, args...))
	}}
	if _, err := b.parseConfig(`print("hello from config")`); err != nil {
		t.Fatal(err)
	}
	testutil.AssertContains(t, logs, "hello from config")
}

func TestConfigErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"syntax error":               `feed_url = `,
		"feed_url is not a string":   `feed_url = 42`,
		"invalid feed_url":           `feed_url = "://bad"`,
		"tags is not a list":         `tags = "go"`,
		"tag is not a string":        `tags = ["go", 1]`,
		"tech_visuals is not a dict": `tech_visuals = ["go"]`,
		"site with positional args":  `site("https://example.com")`,
		"site without url":           `site(base_path = "/notes")`,
		"deploy with positional":     `deploy("publish.yml")`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := &bot{logf: t.Logf}
			if _, err := b.parseConfig(src); err == nil {
				t.Fatalf("no error for %q", src)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	m := testMux(t, nil)
	b, _ := testBot(t, m)

	// testBot puts testConfig into the site directory.
	testutil.AssertEqual(t, b.cfg.FeedURL, "https://example.com/feed.xml")
	testutil.AssertEqual(t, b.cfg.SiteURL, "https://example.github.io")
	testutil.AssertEqual(t, b.cfg.BasePath, "/portfolio")
	testutil.AssertEqual(t, b.gemini.Model, "gemini-2.5-flash")

	// Without the file the embedded default applies.
	if err := os.Remove(filepath.Join(b.dir, "config.star")); err != nil {
		t.Fatal(err)
	}
	if err := b.loadConfig(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, b.cfg.FeedURL, "https://dev.to/feed/tag/react")
	testutil.AssertEqual(t, b.cfg.SiteURL, "")
}
