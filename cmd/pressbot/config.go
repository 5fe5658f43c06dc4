// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvasnetsov/pressbot/internal/cover"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

//go:embed config.star
var defaultConfigStar string

// config holds everything config.star can set. Secrets never live here,
// they come from the environment.
type config struct {
	FeedURL    string
	Model      string
	SiteURL    string
	BasePath   string
	ContentDir string
	AssetsDir  string
	Visuals    map[string]string
	Tags       []string
	Footer     string
	Workflow   string
	Ref        string
}

func defaultConfig() *config {
	return &config{
		FeedURL:    "https://dev.to/feed/tag/react",
		Model:      "gemini-2.5-flash",
		ContentDir: "src/content/blog",
		AssetsDir:  "src/assets",
		Tags:       []string{"react", "webdev"},
		Workflow:   "deploy-site.yml",
		Ref:        "main",
	}
}

// loadConfig reads config.star from the site directory, falling back to the
// embedded default when the file does not exist.
func (b *bot) loadConfig() error {
	src := defaultConfigStar
	if data, err := os.ReadFile(filepath.Join(b.dir, "config.star")); err == nil {
		src = string(data)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := b.parseConfig(src)
	if err != nil {
		return fmt.Errorf("parsing config.star: %w", err)
	}
	b.cfg = cfg
	b.gemini.Model = cfg.Model
	return nil
}

func (b *bot) parseConfig(src string) (*config, error) {
	cfg := defaultConfig()

	siteBuiltin := starlark.NewBuiltin("site", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected positional arguments")
		}
		if err := starlark.UnpackArgs("site", args, kwargs,
			"url", &cfg.SiteURL,
			"base_path?", &cfg.BasePath,
		); err != nil {
			return nil, err
		}
		return starlark.None, nil
	})

	deployBuiltin := starlark.NewBuiltin("deploy", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected positional arguments")
		}
		if err := starlark.UnpackArgs("deploy", args, kwargs,
			"workflow?", &cfg.Workflow,
			"ref?", &cfg.Ref,
		); err != nil {
			return nil, err
		}
		return starlark.None, nil
	})

	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { b.logf("%s", msg) },
		},
		"config.star",
		src,
		starlark.StringDict{
			"site":   siteBuiltin,
			"deploy": deployBuiltin,
		},
	)
	if err != nil {
		return nil, err
	}

	for name, dst := range map[string]*string{
		"feed_url":    &cfg.FeedURL,
		"model":       &cfg.Model,
		"content_dir": &cfg.ContentDir,
		"assets_dir":  &cfg.AssetsDir,
		"footer":      &cfg.Footer,
	} {
		if err := stringGlobal(globals, name, dst); err != nil {
			return nil, err
		}
	}
	if err := stringListGlobal(globals, "tags", &cfg.Tags); err != nil {
		return nil, err
	}
	var overrides map[string]string
	if err := stringDictGlobal(globals, "tech_visuals", &overrides); err != nil {
		return nil, err
	}
	cfg.Visuals = cover.Visuals(overrides)

	if _, err := url.Parse(cfg.FeedURL); err != nil {
		return nil, fmt.Errorf("feed_url: %w", err)
	}
	cfg.SiteURL = strings.TrimSuffix(cfg.SiteURL, "/")
	if cfg.BasePath != "" && !strings.HasPrefix(cfg.BasePath, "/") {
		cfg.BasePath = "/" + cfg.BasePath
	}
	cfg.BasePath = strings.TrimSuffix(cfg.BasePath, "/")

	return cfg, nil
}

func stringGlobal(globals starlark.StringDict, name string, dst *string) error {
	v, ok := globals[name]
	if !ok {
		return nil
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	*dst = s
	return nil
}

func stringListGlobal(globals starlark.StringDict, name string, dst *[]string) error {
	v, ok := globals[name]
	if !ok {
		return nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return fmt.Errorf("%s must be a list of strings", name)
	}
	var out []string
	for i := range list.Len() {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return fmt.Errorf("%s must be a list of strings", name)
		}
		out = append(out, s)
	}
	*dst = out
	return nil
}

func stringDictGlobal(globals starlark.StringDict, name string, dst *map[string]string) error {
	v, ok := globals[name]
	if !ok {
		return nil
	}
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return fmt.Errorf("%s must be a dict of strings", name)
	}
	out := make(map[string]string, dict.Len())
	for _, item := range dict.Items() {
		k, ok := starlark.AsString(item[0])
		if !ok {
			return fmt.Errorf("%s must be a dict of strings", name)
		}
		val, ok := starlark.AsString(item[1])
		if !ok {
			return fmt.Errorf("%s must be a dict of strings", name)
		}
		out[k] = val
	}
	*dst = out
	return nil
}
