// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements the slice of the Telegram Bot API the bot
// needs: sending messages and files to the operator chat and polling for the
// operator's replies.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mvasnetsov/pressbot/internal/request"
	"github.com/mvasnetsov/pressbot/internal/tgmarkup"
	"github.com/mvasnetsov/pressbot/internal/version"
)

const (
	tgAPI          = "https://api.telegram.org"
	sendRetryLimit = 5 // N attempts to retry message sending

	// The Bot API rejects messages longer than 4096 UTF-16 code units;
	// 4000 leaves headroom for entity expansion.
	chunkLimit = 4000

	// Captions on photos and documents are capped much lower than messages.
	captionLimit = 1000
)

// Config configures a Telegram client.
type Config struct {
	Token      string
	ChatID     string
	HTTPClient *http.Client
	Scrubber   *strings.Replacer
	Logger     *slog.Logger
}

// Client talks to the Telegram Bot API on behalf of a single operator chat.
type Client struct {
	token       string
	chatID      string
	httpc       *http.Client
	scrubber    *strings.Replacer
	slog        *slog.Logger
	makeRequest func(context.Context, string, any) error
	sleep       func(context.Context, time.Duration) bool
}

// New returns a Telegram client configured for a specific chat.
func New(cfg Config) *Client {
	c := &Client{
		token:    cfg.Token,
		chatID:   cfg.ChatID,
		httpc:    cfg.HTTPClient,
		scrubber: cfg.Scrubber,
		slog:     cfg.Logger,
	}
	if c.httpc == nil {
		c.httpc = request.DefaultClient
	}
	if c.slog == nil {
		c.slog = slog.Default()
	}
	c.makeRequest = c.makeTelegramRequest
	c.sleep = sleep
	return c
}

type message struct {
	ChatID             string `json:"chat_id"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
	tgmarkup.Message
}

// SendMessage sends a Markdown-formatted message to the operator chat,
// splitting it into chunks when it is too long and retrying when rate
// limited.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	tgmsg := &message{ChatID: c.chatID}
	tgmsg.LinkPreviewOptions.IsDisabled = true

	for _, chunk := range splitMessage(text) {
		tgmsg.Message = tgmarkup.FromMarkdown(chunk)

		var err error
		for range sendRetryLimit {
			err = c.makeRequest(ctx, "sendMessage", tgmsg)
			if err == nil {
				break
			}

			retryable, wait := isRateLimited(err)
			if !retryable {
				break
			}

			c.slog.Warn("sending rate limited, waiting", slog.String("chat_id", c.chatID), slog.Duration("wait", wait))
			if !c.sleep(ctx, wait) {
				return ctx.Err()
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Incoming is a text message received from the operator chat.
type Incoming struct {
	UpdateID int64
	Text     string
}

// Update is an event from the Bot API long-poll endpoint. Only the fields
// the bot reads are mapped.
type Update struct {
	ID      int64 `json:"update_id"`
	Message *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []Update `json:"result"`
}

// Updates polls the Bot API for recent updates.
func (c *Client) Updates(ctx context.Context) ([]Update, error) {
	resp, err := request.Make[updatesResponse](ctx, request.Params{
		Method: http.MethodGet,
		URL:    tgAPI + "/bot" + c.token + "/getUpdates",
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	})
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// LastMessage returns the newest text message from the operator chat, with
// leading and trailing whitespace trimmed, or nil if there is none.
func (c *Client) LastMessage(ctx context.Context) (*Incoming, error) {
	updates, err := c.Updates(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(updates) - 1; i >= 0; i-- {
		u := updates[i]
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		if !c.fromOperatorChat(u) {
			continue
		}
		return &Incoming{UpdateID: u.ID, Text: strings.TrimSpace(u.Message.Text)}, nil
	}
	return nil, nil
}

// LatestUpdateID returns the ID of the newest update of any kind, or zero if
// there are none. It is recorded as a watermark when the bot asks a question
// so that older messages are never mistaken for answers.
func (c *Client) LatestUpdateID(ctx context.Context) (int64, error) {
	updates, err := c.Updates(ctx)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}
	return updates[len(updates)-1].ID, nil
}

func (c *Client) fromOperatorChat(u Update) bool {
	if c.chatID == "" || u.Message == nil {
		return true
	}
	return strconv.FormatInt(u.Message.Chat.ID, 10) == c.chatID
}

// SendDocument uploads a file to the operator chat.
func (c *Client) SendDocument(ctx context.Context, filename, caption string, data []byte) error {
	return c.upload(ctx, "sendDocument", "document", filename, caption, data)
}

// SendPhoto uploads a photo to the operator chat.
func (c *Client) SendPhoto(ctx context.Context, filename, caption string, data []byte) error {
	return c.upload(ctx, "sendPhoto", "photo", filename, caption, data)
}

func (c *Client) upload(ctx context.Context, method, field, filename, caption string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", c.chatID); err != nil {
		return err
	}
	if caption != "" {
		capmsg := tgmarkup.FromMarkdown(truncate(caption, captionLimit))
		// The renderer closes the last block with a newline, which would
		// push a full-length caption past captionLimit.
		capmsg.Text = strings.TrimSuffix(capmsg.Text, "\n")
		if err := mw.WriteField("caption", capmsg.Text); err != nil {
			return err
		}
		if len(capmsg.Entities) > 0 {
			entities, err := json.Marshal(capmsg.Entities)
			if err != nil {
				return err
			}
			if err := mw.WriteField("caption_entities", string(entities)); err != nil {
				return err
			}
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tgAPI+"/bot"+c.token+"/"+method, &buf)
	if err != nil {
		return c.scrub(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc.Do(req)
	if err != nil {
		return c.scrub(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(res.Body)
		return c.scrub(fmt.Errorf("%s: want 200, got %d: %s", method, res.StatusCode, b))
	}
	return nil
}

func (c *Client) scrub(err error) error {
	if err == nil || c.scrubber == nil {
		return err
	}
	return errors.New(c.scrubber.Replace(err.Error()))
}

func (c *Client) makeTelegramRequest(ctx context.Context, method string, args any) error {
	if _, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    tgAPI + "/bot" + c.token + "/" + method,
		Body:   args,
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	}); err != nil {
		return err
	}
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func splitMessage(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= chunkLimit {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		if utf8.RuneCountInString(text) <= chunkLimit {
			chunks = append(chunks, text)
			break
		}

		var (
			lastNewline    = -1
			lastWhitespace = -1
			byteCap        = len(text)
			runeCount      int
		)

		for i, r := range text {
			if runeCount == chunkLimit {
				byteCap = i
				break
			}
			runeCount++

			if r == '\n' {
				lastNewline = i
				continue
			}
			if unicode.IsSpace(r) {
				lastWhitespace = i
			}
		}

		splitAt := byteCap
		switch {
		case lastNewline > 0:
			splitAt = lastNewline
		case lastWhitespace > 0:
			splitAt = lastWhitespace
		}

		chunk := strings.TrimSpace(text[:splitAt])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[splitAt:])
	}

	return chunks
}

func isRateLimited(err error) (bool, time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	var errorResponse struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return false, 0
	}

	return true, time.Duration(errorResponse.Parameters.RetryAfter) * time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
