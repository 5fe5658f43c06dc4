// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/mvasnetsov/pressbot/internal/atomicio"
	"github.com/mvasnetsov/pressbot/internal/cover"
	"github.com/mvasnetsov/pressbot/internal/state"
)

//go:embed prompt.tmpl
var promptTemplate string

// reviewDocName is the review document written next to state.json in the
// site directory.
const reviewDocName = "review_copy.md"

// missingPlaceholder substitutes a section the model failed to produce.
const missingPlaceholder = "Missing"

// sections are the ===MARKER=== names the model is instructed to emit, in
// order.
var sections = []string{"PRIMARY_TECH", "SCRIPT", "PROMPT", "BLOG", "TWEETS"}

func (b *bot) draft(ctx context.Context) error {
	lock, err := state.AcquireRunLock(b.dir, "draft")
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := b.openState()
	if err != nil {
		return err
	}

	data := st.Snapshot()
	if data.Pending == nil || data.Pending.Question != state.SelectTrend {
		b.slog.Info("no trend selection pending, nothing to do")
		return nil
	}
	if len(data.Trends) == 0 {
		b.slog.Info("no stored trends, nothing to do")
		return nil
	}

	reply, err := b.tg.LastMessage(ctx)
	if err != nil {
		return fmt.Errorf("reading operator reply: %w", err)
	}
	if reply == nil || reply.UpdateID <= data.Pending.AfterUpdateID {
		b.slog.Info("no reply after the question was asked, nothing to do")
		return nil
	}

	num, err := strconv.Atoi(reply.Text)
	if err != nil || num < 1 || num > len(data.Trends) {
		b.slog.Info("reply is not a trend number", slog.String("text", reply.Text))
		return nil
	}
	topic := data.Trends[num-1]

	if b.dry {
		b.slog.Debug("would draft", slog.String("title", topic.Title))
		return nil
	}

	return b.generate(ctx, st, topic, reply.UpdateID, false)
}

// generate runs the drafting pipeline for topic: one Gemini call, strict
// section extraction, state update, review document, approval menu. The
// caller must hold the run lock. afterUpdateID is the update that triggered
// drafting; only replies after it count as a publish decision.
func (b *bot) generate(ctx context.Context, st *state.Store, topic state.Trend, afterUpdateID int64, retry bool) error {
	action := "✍️ Drafting"
	if retry {
		action = "🔄 Re-drafting"
	}
	if err := b.tg.SendMessage(ctx, fmt.Sprintf("%s package for: **%s**...", action, topic.Title)); err != nil {
		return err
	}

	raw, err := b.gemini.GenerateText(ctx, fmt.Sprintf(promptTemplate, topic.Title))
	if err != nil {
		return fmt.Errorf("generating content package: %w", err)
	}

	parts, missing := parseSections(raw)
	draft := state.Draft{
		Title:       topic.Title,
		Link:        topic.Link,
		PrimaryTech: parts["PRIMARY_TECH"],
		Script:      parts["SCRIPT"],
		ImagePrompt: parts["PROMPT"],
		Blog:        parts["BLOG"],
		Tweets:      parts["TWEETS"],
	}
	if err := st.PutDraft(draft, afterUpdateID); err != nil {
		return err
	}

	doc := reviewDoc(draft)
	if err := atomicio.WriteFile(filepath.Join(b.dir, reviewDocName), []byte(doc), 0o644); err != nil {
		return err
	}

	if len(missing) > 0 {
		b.slog.Warn("model response is missing sections", slog.Any("sections", missing))
		msg := fmt.Sprintf("⚠️ The model response was missing sections: %s. Placeholders were stored instead.", strings.Join(missing, ", "))
		if err := b.tg.SendMessage(ctx, msg); err != nil {
			return err
		}
	}

	coverURL := cover.URL(b.cfg.Visuals, draft.PrimaryTech, draft.Title, draft.ImagePrompt)
	if err := b.tg.SendMessage(ctx, "🖼️ **Proposed cover:** "+coverURL); err != nil {
		return err
	}

	const menu = "✅ **Draft ready!** Full content attached.\n\n👇 **Reply:**\n1️⃣ Publish\n2️⃣ Regenerate\n3️⃣ Cancel"
	if err := b.tg.SendDocument(ctx, reviewDocName, menu, []byte(doc)); err != nil {
		return err
	}

	return b.commit(ctx, "Draft generated: "+topic.Title)
}

// parseSections splits the model response into the five ===NAME=== delimited
// sections. A section whose marker is absent, or whose content is empty,
// gets the literal placeholder "Missing"; the names of such sections are
// returned alongside.
func parseSections(raw string) (parts map[string]string, missing []string) {
	parts = make(map[string]string, len(sections))
	for i, name := range sections {
		_, after, found := cutMarker(raw, name)
		if found {
			text := after
			// The section runs until the next marker that is actually
			// present.
			for _, next := range sections[i+1:] {
				if before, _, ok := cutMarker(text, next); ok {
					text = before
					break
				}
			}
			if text = strings.TrimSpace(text); text != "" {
				parts[name] = text
				continue
			}
		}
		parts[name] = missingPlaceholder
		missing = append(missing, name)
	}
	return parts, missing
}

var markers = sync.OnceValue(func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(sections))
	for _, name := range sections {
		m[name] = regexp.MustCompile(`===[ \t]*` + name + `[ \t]*===`)
	}
	return m
})

// cutMarker is strings.Cut around a section fence, tolerating padding
// inside it: models emit "=== BLOG ===" as readily as "===BLOG===".
func cutMarker(s, name string) (before, after string, found bool) {
	loc := markers()[name].FindStringIndex(s)
	if loc == nil {
		return s, "", false
	}
	return s[:loc[0]], s[loc[1]:], true
}

func reviewDoc(d state.Draft) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# REVIEW: %s\n\n", d.Title)
	fmt.Fprintf(&sb, "**Primary tech:** %s\n\n", d.PrimaryTech)
	fmt.Fprintf(&sb, "## 🎥 Video script\n\n%s\n\n", d.Script)
	fmt.Fprintf(&sb, "## 🖼️ Image prompt\n\n%s\n\n", d.ImagePrompt)
	fmt.Fprintf(&sb, "## 🐦 Tweet thread\n\n%s\n\n", d.Tweets)
	fmt.Fprintf(&sb, "## 📝 Blog post\n\n%s\n", d.Blog)
	return sb.String()
}
