// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package cover builds deterministic cover image URLs for posts.
//
// The image service turns a prompt embedded in the URL path into a picture,
// so the whole visual identity of the site lives in how that prompt is
// assembled: a fixed base style, per-technology keywords, the post title and
// the model-suggested image prompt.
package cover

import (
	"fmt"
	"maps"
	"net/url"
	"strings"
	"unicode"
)

const (
	endpoint = "https://image.pollinations.ai/prompt/"

	// baseStyle anchors every cover in the site's visual identity.
	baseStyle = "dark background black gold accent minimalist abstract professional elegant"

	// fallbackKeywords is used for technologies missing from the visuals
	// table.
	fallbackKeywords = "code symbols programming developer"

	imageWidth  = 1200
	imageHeight = 630
)

// defaultVisuals maps normalized technology names to the visual vocabulary
// the image model paints them with.
var defaultVisuals = map[string]string{
	"react":       "atomic orbital rings component tree blue cyan",
	"nextjs":      "flowing routes server client N letter pattern vercel",
	"typescript":  "type annotations structured blocks blue strict",
	"javascript":  "yellow curly braces dynamic scripting",
	"tailwind":    "utility classes responsive grid color palette wind",
	"tailwindcss": "utility classes responsive grid color palette wind",
	"css":         "cascading layers styling sheets selectors",
	"redux":       "single store state flow unidirectional arrows",
	"graphql":     "query nodes connected graph pink purple",
	"nodejs":      "green hexagon server runtime event loop",
	"vite":        "lightning fast bundler purple gradient speed",
	"webpack":     "module bundler blue cube dependencies",
	"hooks":       "fishing hook state lifecycle useEffect useState",
	"components":  "building blocks modular reusable pieces",
	"api":         "endpoints request response arrows data flow",
	"testing":     "checkmarks green test tubes quality assurance",
	"performance": "speedometer lightning optimization rocket",
}

// Visuals returns the built-in technology table merged with overrides.
// Override keys are normalized the same way lookups are.
func Visuals(overrides map[string]string) map[string]string {
	m := maps.Clone(defaultVisuals)
	for k, v := range overrides {
		m[normalizeTech(k)] = v
	}
	return m
}

// Keywords returns the visual keywords for tech, falling back to a generic
// set for unknown technologies. Lookup is insensitive to case, spaces, dots
// and dashes, so "Tailwind CSS", "tailwindcss" and "tailwind-css" all hit
// the same entry.
func Keywords(visuals map[string]string, tech string) string {
	if kw, ok := visuals[normalizeTech(tech)]; ok {
		return kw
	}
	return fallbackKeywords
}

var techNormalizer = strings.NewReplacer(" ", "", ".", "", "-", "")

func normalizeTech(tech string) string {
	return techNormalizer.Replace(strings.ToLower(tech))
}

// URL builds the image generation URL for a post from its dominant
// technology, title and the model-suggested image prompt. The title
// contributes at most 40 runes and the prompt at most 100, everything
// percent-encoded.
func URL(visuals map[string]string, tech, title, prompt string) string {
	full := strings.Join([]string{
		baseStyle,
		Keywords(visuals, tech),
		clean(title, 40),
		clean(prompt, 100),
	}, " ")
	return endpoint + url.PathEscape(full) + fmt.Sprintf("?width=%d&height=%d", imageWidth, imageHeight)
}

// clean strips everything but letters, digits, underscores and whitespace,
// truncated to limit runes.
func clean(s string, limit int) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	rs := []rune(sb.String())
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return string(rs)
}
