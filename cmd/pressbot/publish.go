// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvasnetsov/pressbot/internal/api/devto"
	"github.com/mvasnetsov/pressbot/internal/atomicio"
	"github.com/mvasnetsov/pressbot/internal/cover"
	"github.com/mvasnetsov/pressbot/internal/post"
	"github.com/mvasnetsov/pressbot/internal/request"
	"github.com/mvasnetsov/pressbot/internal/state"
)

func (b *bot) publish(ctx context.Context) error {
	lock, err := state.AcquireRunLock(b.dir, "publish")
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := b.openState()
	if err != nil {
		return err
	}

	data := st.Snapshot()
	if data.Draft == nil || data.Pending == nil || data.Pending.Question != state.DecidePublish {
		b.slog.Info("no publish decision pending, nothing to do")
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

	switch reply.Text {
	case "1":
		if b.dry {
			b.slog.Debug("would publish", slog.String("title", data.Draft.Title))
			return nil
		}
		return b.doPublish(ctx, st, *data.Draft)
	case "2":
		if b.dry {
			b.slog.Debug("would regenerate", slog.String("title", data.Draft.Title))
			return nil
		}
		if err := b.tg.SendMessage(ctx, "🔄 Regenerating..."); err != nil {
			return err
		}
		topic := state.Trend{Title: data.Draft.Title, Link: data.Draft.Link}
		return b.generate(ctx, st, topic, reply.UpdateID, true)
	case "3":
		if b.dry {
			b.slog.Debug("would cancel", slog.String("title", data.Draft.Title))
			return nil
		}
		return b.cancel(ctx, st)
	}
	b.slog.Info("reply is not a publish decision", slog.String("text", reply.Text))
	return nil
}

func (b *bot) cancel(ctx context.Context, st *state.Store) error {
	if err := st.ClearDraft(); err != nil {
		return err
	}
	if err := b.removeReviewDoc(); err != nil {
		return err
	}
	if err := b.tg.SendMessage(ctx, "❌ Cancelled."); err != nil {
		return err
	}
	return b.commit(ctx, "Draft cancelled")
}

func (b *bot) removeReviewDoc() error {
	if err := os.Remove(filepath.Join(b.dir, reviewDocName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// doPublish turns the approved draft into a committed post: cover image,
// post file, dev.to crosspost, push, deploy trigger. Caller holds the run
// lock. Cover download, crosspost and deploy failures are reported to the
// operator but don't stop the remaining steps.
func (b *bot) doPublish(ctx context.Context, st *state.Store, draft state.Draft) error {
	if b.cfg.SiteURL == "" {
		return errSiteNotConfigured
	}

	if err := b.tg.SendMessage(ctx, "🚀 Approved! Publishing..."); err != nil {
		return err
	}

	slug := post.Slug(draft.Title)
	postURL := b.cfg.SiteURL + b.cfg.BasePath + "/blog/" + slug

	contentDir := filepath.Join(b.dir, filepath.FromSlash(b.cfg.ContentDir))
	assetsDir := filepath.Join(b.dir, filepath.FromSlash(b.cfg.AssetsDir))
	for _, dir := range []string{contentDir, assetsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// Older drafts may predate the primary_tech field; the cover falls back
	// to a React theme for those.
	coverURL := cover.URL(b.cfg.Visuals, cmp.Or(draft.PrimaryTech, "React"), draft.Title, draft.ImagePrompt)

	var heroImage string
	imageName := slug + ".jpg"
	imageData, err := request.Make[request.Bytes](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        coverURL,
		HTTPClient: b.httpc,
	})
	if err != nil {
		b.slog.Warn("cover download failed", slog.Any("error", err))
		if err := b.tg.SendMessage(ctx, fmt.Sprintf("⚠️ Image download failed: %v", err)); err != nil {
			return err
		}
	} else {
		if err := atomicio.WriteFile(filepath.Join(assetsDir, imageName), imageData, 0o644); err != nil {
			return err
		}
		if err := b.tg.SendPhoto(ctx, imageName, "🖼️ Cover for: "+draft.Title, imageData); err != nil {
			return err
		}
		rel, err := filepath.Rel(contentDir, filepath.Join(assetsDir, imageName))
		if err != nil {
			return err
		}
		heroImage = filepath.ToSlash(rel)
	}

	rendered, err := post.Render(post.Post{
		Title:       draft.Title,
		Description: post.Description(draft.Blog),
		Date:        b.now(),
		HeroImage:   heroImage,
		Body:        draft.Blog,
	})
	if err != nil {
		return err
	}
	if err := atomicio.WriteFile(filepath.Join(contentDir, slug+".md"), rendered, 0o644); err != nil {
		return err
	}

	if err := b.tg.SendMessage(ctx, "📜 **Video script:**\n\n"+draft.Script); err != nil {
		return err
	}

	if b.devtoKey != "" {
		body := draft.Blog
		if footer := b.footer(); footer != "" {
			body += "\n\n" + footer
		}
		published, err := b.devto.Publish(ctx, devto.Article{
			Title:        draft.Title,
			Published:    true,
			BodyMarkdown: body,
			MainImage:    coverURL,
			CanonicalURL: postURL,
			Tags:         b.cfg.Tags,
		})
		if err != nil {
			b.slog.Warn("dev.to crosspost failed", slog.Any("error", err))
			if err := b.tg.SendMessage(ctx, fmt.Sprintf("⚠️ dev.to crosspost failed: %v", err)); err != nil {
				return err
			}
		} else {
			b.slog.Info("crossposted to dev.to", slog.String("url", published.URL))
		}
	}

	if err := st.ClearDraft(); err != nil {
		return err
	}
	if err := b.removeReviewDoc(); err != nil {
		return err
	}

	// Push before dispatching the deploy so the workflow builds the new
	// post.
	if err := b.commit(ctx, "Published: "+draft.Title); err != nil {
		return err
	}

	if b.ghToken != "" && b.ghRepo != "" {
		if err := b.actions.DispatchWorkflow(ctx, b.ghRepo, b.cfg.Workflow, b.cfg.Ref); err != nil {
			b.slog.Warn("deploy dispatch failed", slog.Any("error", err))
			if err := b.tg.SendMessage(ctx, fmt.Sprintf("⚠️ Deploy trigger failed: %v", err)); err != nil {
				return err
			}
		} else if err := b.tg.SendMessage(ctx, "🚀 Deploy workflow triggered!"); err != nil {
			return err
		}
	} else {
		if err := b.tg.SendMessage(ctx, "⚠️ Auto-deploy skipped. The push to "+b.cfg.Ref+" will trigger the deploy."); err != nil {
			return err
		}
	}

	return b.tg.SendMessage(ctx, "✅ **Published!**\n🌐 "+postURL)
}

// footer returns the Markdown appended to crossposted article bodies:
// either the configured one or a note pointing readers at the blog.
func (b *bot) footer() string {
	if b.cfg.Footer != "" {
		return b.cfg.Footer
	}
	if b.cfg.SiteURL == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.TrimPrefix(b.cfg.SiteURL, "https://"), "http://")
	return fmt.Sprintf("---\n\n✍️ **Read more on my blog:** [%s](%s/blog/)", host, b.cfg.SiteURL+b.cfg.BasePath)
}
