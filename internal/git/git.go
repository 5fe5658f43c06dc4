// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package git shells out to the git command-line tool.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// The identity used for commits made from scheduled runs.
const (
	defaultName  = "github-actions"
	defaultEmail = "actions@github.com"
)

// Git runs git commands in a repository checkout.
type Git struct {
	// Dir is the repository checkout the commands run in.
	Dir string
	// Name and Email form the committer identity.
	Name  string
	Email string

	run func(ctx context.Context, args ...string) ([]byte, error) // replaced in tests
}

// New returns a Git for the checkout at dir, committing as the GitHub
// Actions bot.
func New(dir string) *Git {
	g := &Git{Dir: dir, Name: defaultName, Email: defaultEmail}
	g.run = g.runGit
	return g
}

// CommitAll stages everything in the checkout, commits with message and
// pushes. A clean tree is not an error: nothing is committed or pushed.
func (g *Git) CommitAll(ctx context.Context, message string) error {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return err
	}
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil
	}
	if _, err := g.run(ctx,
		"-c", "user.name="+g.Name,
		"-c", "user.email="+g.Email,
		"commit", "-m", message,
	); err != nil {
		return err
	}
	_, err = g.run(ctx, "push")
	return err
}

func (g *Git) runGit(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, bytes.TrimSpace(out))
	}
	return out, nil
}
