// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mvasnetsov/pressbot/internal/state"
	"github.com/mvasnetsov/pressbot/internal/version"

	"github.com/mmcdole/gofeed"
)

// trendLimit caps how many feed entries are offered to the operator.
const trendLimit = 4

func (b *bot) trends(ctx context.Context) error {
	lock, err := state.AcquireRunLock(b.dir, "trends")
	if err != nil {
		return err
	}
	defer lock.Release()

	feed, err := b.fetchFeed(ctx)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", b.cfg.FeedURL, err)
	}

	var candidates []state.Trend
	for _, item := range feed.Items {
		if len(candidates) == trendLimit {
			break
		}
		candidates = append(candidates, state.Trend{Title: item.Title, Link: item.Link})
	}

	if len(candidates) == 0 {
		b.slog.Info("feed has no entries", slog.String("url", b.cfg.FeedURL))
		if b.dry {
			return nil
		}
		return b.tg.SendMessage(ctx, "☀️ No trends today, the feed came back empty.")
	}

	if b.dry {
		for i, t := range candidates {
			b.slog.Debug("would offer trend", slog.Int("num", i+1), slog.String("title", t.Title))
		}
		return nil
	}

	// The watermark makes sure only replies sent after this run count as
	// trend selections.
	watermark, err := b.tg.LatestUpdateID(ctx)
	if err != nil {
		return fmt.Errorf("reading update watermark: %w", err)
	}

	st, err := b.openState()
	if err != nil {
		return err
	}
	if err := st.ReplaceTrends(candidates, watermark); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("☀️ **Daily trends:**\n\n")
	for i, t := range candidates {
		fmt.Fprintf(&sb, "%d️⃣ %s\n", i+1, t.Title)
	}
	sb.WriteString("\n👇 **Reply with a number to draft.**")
	if err := b.tg.SendMessage(ctx, sb.String()); err != nil {
		return err
	}

	return b.commit(ctx, "Trends")
}

func (b *bot) fetchFeed(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.FeedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := b.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		const readLimit = 16384
		body, err := io.ReadAll(io.LimitReader(res.Body, readLimit))
		if err != nil {
			body = []byte("unable to read body")
		}
		return nil, fmt.Errorf("want 200, got %d: %s", res.StatusCode, body)
	}

	return b.fp.Parse(res.Body)
}
