// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package git

import (
	"context"
	"errors"
	"testing"

	"github.com/mvasnetsov/pressbot/internal/testutil"
)

func TestCommitAll(t *testing.T) {
	t.Parallel()

	g := New(t.TempDir())
	var calls [][]string
	g.run = func(_ context.Context, args ...string) ([]byte, error) {
		calls = append(calls, args)
		if args[0] == "status" {
			return []byte(" M src/content/blog/post.md\n"), nil
		}
		return nil, nil
	}

	if err := g.CommitAll(t.Context(), "Published: Understanding React Server Components"); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, calls, [][]string{
		{"add", "-A"},
		{"status", "--porcelain"},
		{
			"-c", "user.name=github-actions",
			"-c", "user.email=actions@github.com",
			"commit", "-m", "Published: Understanding React Server Components",
		},
		{"push"},
	})
}

func TestCommitAllCleanTree(t *testing.T) {
	t.Parallel()

	g := New(t.TempDir())
	var calls [][]string
	g.run = func(_ context.Context, args ...string) ([]byte, error) {
		calls = append(calls, args)
		if args[0] == "status" {
			return []byte("\n"), nil
		}
		return nil, nil
	}

	if err := g.CommitAll(t.Context(), "nothing to see"); err != nil {
		t.Fatal(err)
	}
	// A clean tree stops after the status check: no commit, no push.
	testutil.AssertEqual(t, calls, [][]string{
		{"add", "-A"},
		{"status", "--porcelain"},
	})
}

func TestCommitAllCustomIdentity(t *testing.T) {
	t.Parallel()

	g := New(t.TempDir())
	g.Name = "Mikhail Vasnetsov"
	g.Email = "mikhail@example.com"
	var commitArgs []string
	g.run = func(_ context.Context, args ...string) ([]byte, error) {
		switch args[0] {
		case "status":
			return []byte(" M post.md\n"), nil
		case "-c":
			commitArgs = args
		}
		return nil, nil
	}

	if err := g.CommitAll(t.Context(), "msg"); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, commitArgs[:4], []string{
		"-c", "user.name=Mikhail Vasnetsov",
		"-c", "user.email=mikhail@example.com",
	})
}

func TestCommitAllPropagatesErrors(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("git push: exit status 128: permission denied")

	g := New(t.TempDir())
	g.run = func(_ context.Context, args ...string) ([]byte, error) {
		switch args[0] {
		case "status":
			return []byte(" M post.md\n"), nil
		case "push":
			return nil, wantErr
		}
		return nil, nil
	}

	if err := g.CommitAll(t.Context(), "msg"); !errors.Is(err, wantErr) {
		t.Fatalf("want %v, got %v", wantErr, err)
	}
}
