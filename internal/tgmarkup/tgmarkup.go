// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tgmarkup converts Markdown text to Telegram message markup.
//
// Telegram represents formatting as a list of entities with UTF-16 offsets
// into the plain message text. See
// https://core.telegram.org/bots/api#messageentity.
package tgmarkup

import (
	"strings"
	"unicode/utf16"

	"rsc.io/markdown"
)

// Message is a Telegram message: plain text plus formatting entities. It is
// designed to be marshaled into JSON for use with the Telegram Bot API.
type Message struct {
	Text     string   `json:"text"`
	Entities []Entity `json:"entities"`
}

// Type is the type of a message entity. Only the types this package emits
// are defined here; the Bot API knows more.
type Type string

const (
	URL           Type = "url"
	Bold          Type = "bold"
	Italic        Type = "italic"
	Strikethrough Type = "strikethrough"
	Blockquote    Type = "blockquote"
	Code          Type = "code" // monowidth string
	Pre           Type = "pre"  // monowidth block
	TextLink      Type = "text_link"
)

// Entity defines the type and location of a formatted part of the message
// text.
type Entity struct {
	Type Type `json:"type"`
	// Offset in UTF-16 code units to the start of the entity.
	Offset int `json:"offset"`
	// Length of the entity in UTF-16 code units.
	Length int `json:"length"`
	// Optional. For "text_link" only, URL that will be opened after user
	// taps on the text.
	URL string `json:"url,omitempty"`
	// Optional. For "pre" only, the programming language of the entity text.
	Language string `json:"language,omitempty"`
}

// FromMarkdown converts Markdown text to a [Message].
func FromMarkdown(text string) Message {
	p := markdown.Parser{Strikethrough: true}
	doc := p.Parse(text)

	c := new(conv)
	for _, b := range doc.Blocks {
		c.block(b)
	}

	return Message{
		Text:     c.sb.String(),
		Entities: c.entities,
	}
}

type conv struct {
	sb       strings.Builder
	entities []Entity
}

// pos returns the current end of the text in UTF-16 code units.
func (c *conv) pos() int { return utf16len(c.sb.String()) }

func (c *conv) mark(t Type, offset int) {
	c.entities = append(c.entities, Entity{
		Type:   t,
		Offset: offset,
		Length: c.pos() - offset,
	})
}

func (c *conv) block(b markdown.Block) {
	switch block := b.(type) {
	case *markdown.Paragraph:
		c.inlines(block.Text.Inline)
		c.sb.WriteString("\n")
	case *markdown.Quote:
		offset := c.pos()
		for _, inner := range block.Blocks {
			c.block(inner)
		}
		c.mark(Blockquote, offset)
	case *markdown.CodeBlock:
		offset := c.pos()
		for _, line := range block.Text {
			c.sb.WriteString(line)
			c.sb.WriteString("\n")
		}
		entity := Entity{
			Type:   Pre,
			Offset: offset,
			Length: c.pos() - offset - 1, // don't cover the trailing newline
		}
		if block.Info != "" {
			entity.Language = block.Info
		}
		c.entities = append(c.entities, entity)
	case *markdown.Heading:
		// Telegram has no headings, bold is the closest thing.
		offset := c.pos()
		c.inlines(block.Text.Inline)
		c.sb.WriteString("\n")
		c.entities = append(c.entities, Entity{
			Type:   Bold,
			Offset: offset,
			Length: c.pos() - offset - 1,
		})
	case *markdown.List:
		for _, itemBlock := range block.Items {
			item, ok := itemBlock.(*markdown.Item)
			if !ok {
				continue
			}
			for _, inner := range item.Blocks {
				c.block(inner)
			}
		}
	case *markdown.ThematicBreak:
		c.sb.WriteString("⸻\n")
	}
}

func (c *conv) inlines(inlines markdown.Inlines) {
	for _, inline := range inlines {
		c.inline(inline)
	}
}

func (c *conv) inline(i markdown.Inline) {
	switch inline := i.(type) {
	case *markdown.Plain:
		c.sb.WriteString(inline.Text)
	case *markdown.Strong:
		offset := c.pos()
		c.inlines(inline.Inner)
		c.mark(Bold, offset)
	case *markdown.Emph:
		offset := c.pos()
		c.inlines(inline.Inner)
		c.mark(Italic, offset)
	case *markdown.Del:
		offset := c.pos()
		c.inlines(inline.Inner)
		c.mark(Strikethrough, offset)
	case *markdown.Link:
		offset := c.pos()
		c.inlines(inline.Inner)
		c.entities = append(c.entities, Entity{
			Type:   TextLink,
			Offset: offset,
			Length: c.pos() - offset,
			URL:    inline.URL,
		})
	case *markdown.AutoLink:
		offset := c.pos()
		c.sb.WriteString(inline.Text)
		c.mark(URL, offset)
	case *markdown.Code:
		offset := c.pos()
		c.sb.WriteString(inline.Text)
		c.mark(Code, offset)
	case *markdown.SoftBreak, *markdown.HardBreak:
		c.sb.WriteString("\n")
	}
}

func utf16len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
