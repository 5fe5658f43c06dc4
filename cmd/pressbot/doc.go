// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Pressbot turns trending feed topics into published blog posts through a
Telegram approval loop.

It is meant to be run from a scheduler (cron or GitHub Actions) inside a
checkout of an Astro site repository. Each invocation performs one step of
the pipeline and exits:

  - trends: fetch the configured feed, store the first few entries as
    candidates and send them to the operator chat as a numbered list;
  - draft: read the operator's digit reply, generate a content package
    (video script, image prompt, blog post, tweet thread) with a single
    Gemini call, write a review document and send it back for approval;
  - publish: read the operator's verdict (1 publish, 2 regenerate,
    3 cancel) and on approval write the post and cover image into the site
    tree, crosspost to dev.to, push and trigger a deploy workflow.

# Usage

	$ pressbot [flags...] [trends|draft|publish|status]

When no mode is given on the command line, the MODE environment variable is
consulted, and if that is empty too, trends is assumed.

# Environment Variables

The pressbot program relies on the following environment variables:

  - TELEGRAM_TOKEN: Telegram bot token for accessing the Telegram Bot API.
  - CHAT_ID: Telegram chat ID of the operator. Replies from any other chat
    are ignored.
  - GEMINI_API_KEY: Gemini API key. Required by the draft mode.
  - DEVTO_API_KEY: dev.to API key. Optional; without it the publish mode
    skips crossposting.
  - DEPLOY_GITHUB_TOKEN: GitHub token used to dispatch the deploy workflow.
    Optional; without it the publish mode skips the deploy trigger.
  - GITHUB_REPO: "owner/name" of the repository whose deploy workflow is
    dispatched. Required only when DEPLOY_GITHUB_TOKEN is set.
  - MODE: fallback mode selector, see Usage.

A .env file in the site directory is loaded at startup when present;
variables already set in the environment win.

# Configuration

pressbot loads its configuration from the config.star file in the site
directory. This file is written in Starlark language and defines non-secret
knobs, for example:

	feed_url = "https://dev.to/feed/tag/react"
	model = "gemini-2.5-flash"

	site(
	    url = "https://example.github.io",
	    base_path = "/portfolio",
	)

	content_dir = "src/content/blog"
	assets_dir = "src/assets"

	tech_visuals = {
	    "svelte": "compiler orange flame reactive components",
	}

	tags = ["react", "webdev"]

	footer = "---\n\nThanks for reading!"

	deploy(
	    workflow = "deploy-site.yml",
	    ref = "main",
	)

All globals are optional; the built-in defaults cover a typical Astro blog.
tech_visuals entries are merged over the built-in table that maps a
technology name to the keywords used for cover image generation. The
site(url = ...) call is the exception to "optional": the publish mode
refuses to run without it, because canonical URLs can't be built otherwise.

# State

pressbot keeps its state in the state.json file in the site directory, next
to the content it publishes, so every snapshot commit records it. The state
holds the current trend candidates, the draft package waiting for a verdict
and the question the operator was asked. Each question records the Telegram
update ID it was asked after; replies that predate the question are ignored,
so a stale "1" from yesterday can not publish today's draft.

The status mode prints the current state (pass -json for JSON output):

	$ pressbot -dir ~/src/site status
*/
package main

import (
	_ "embed"

	"github.com/mvasnetsov/pressbot/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
