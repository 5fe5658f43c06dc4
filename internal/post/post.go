// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package post derives publishable artifacts from a draft: the URL slug, the
// meta description and the final Markdown file with YAML frontmatter.
package post

import (
	"bytes"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// dateFormat is the publication date format the site's content schema
// expects.
const dateFormat = "Jan 02 2006"

// Post is everything needed to render a blog post file.
type Post struct {
	Title       string
	Description string
	Date        time.Time
	HeroImage   string
	Body        string
}

type frontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	PubDate     string `yaml:"pubDate"`
	HeroImage   string `yaml:"heroImage,omitempty"`
}

// Render produces the Markdown file for p: YAML frontmatter between ---
// fences, a blank line, then the body.
func Render(p Post) ([]byte, error) {
	meta, err := yaml.Marshal(frontmatter{
		Title:       p.Title,
		Description: p.Description,
		PubDate:     p.Date.Format(dateFormat),
		HeroImage:   p.HeroImage,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(p.Body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Slug converts a title into a URL- and file-safe slug: every rune that is
// not a letter or number becomes a dash, the result is capped at 50 runes
// and lowercased. Deterministic for a given title.
func Slug(title string) string {
	var sb strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('-')
		}
	}
	return strings.ToLower(truncateRunes(sb.String(), 50))
}

var markupStripper = strings.NewReplacer("#", "", "*", "", "`", "", "[", "", "]", "")

// Description derives the meta description from the article body: the first
// blank-line-separated paragraph (or the first 200 runes when the body has
// no paragraph break), stripped of Markdown punctuation and capped at 150
// runes. Unless the result already ends with a period, it is cut back to a
// word boundary and ends with an ellipsis. Never longer than 150 runes.
func Description(body string) string {
	text := body
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	} else {
		text = truncateRunes(text, 200)
	}
	text = strings.TrimSpace(markupStripper.Replace(text))
	text = truncateRunes(text, 150)
	if strings.HasSuffix(text, ".") {
		return text
	}
	// Leave room for the ellipsis, the 150-rune cap holds either way.
	text = truncateRunes(text, 147)
	if i := strings.LastIndexByte(text, ' '); i > 0 {
		text = strings.TrimRight(text[:i], " ")
	}
	return text + "..."
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
