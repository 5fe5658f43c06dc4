// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvasnetsov/pressbot/internal/testutil"
)

var testTrends = []Trend{
	{Title: "Understanding React Server Components", Link: "https://dev.to/alice/rsc"},
	{Title: "TypeScript Generics Without Tears", Link: "https://dev.to/bob/generics"},
}

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	st.now = func() time.Time {
		return time.Date(2025, time.December, 12, 12, 0, 0, 0, time.UTC)
	}
	return st, path
}

func TestOpenCreatesValidFile(t *testing.T) {
	t.Parallel()

	st, path := testStore(t)
	testutil.AssertEqual(t, st.Snapshot(), Data{})

	// Even before the first mutation the file parses.
	data, err := Peek(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, data, Data{})
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	st, path := testStore(t)
	if err := st.ReplaceTrends(testTrends, 42); err != nil {
		t.Fatal(err)
	}

	data := st.Snapshot()
	testutil.AssertEqual(t, data.Trends, testTrends)
	testutil.AssertEqual(t, data.Pending, &Pending{
		Question:      SelectTrend,
		AfterUpdateID: 42,
		AskedAt:       time.Date(2025, time.December, 12, 12, 0, 0, 0, time.UTC),
	})

	// A new process sees the same state.
	st2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, st2.Snapshot(), data)
}

func TestPutDraftSupersedesQuestion(t *testing.T) {
	t.Parallel()

	st, _ := testStore(t)
	if err := st.ReplaceTrends(testTrends, 42); err != nil {
		t.Fatal(err)
	}
	draft := Draft{Title: "Understanding React Server Components", PrimaryTech: "React"}
	if err := st.PutDraft(draft, 77); err != nil {
		t.Fatal(err)
	}

	data := st.Snapshot()
	testutil.AssertEqual(t, data.Draft, &draft)
	testutil.AssertEqual(t, data.Pending.Question, DecidePublish)
	testutil.AssertEqual(t, data.Pending.AfterUpdateID, int64(77))
	// Candidates stay around for the status report.
	testutil.AssertEqual(t, data.Trends, testTrends)
}

func TestReplaceTrendsKeepsDraft(t *testing.T) {
	t.Parallel()

	st, _ := testStore(t)
	draft := Draft{Title: "Old draft"}
	if err := st.PutDraft(draft, 10); err != nil {
		t.Fatal(err)
	}
	if err := st.ReplaceTrends(testTrends, 42); err != nil {
		t.Fatal(err)
	}

	// The draft survives, but there is only one outstanding question.
	data := st.Snapshot()
	testutil.AssertEqual(t, data.Draft, &draft)
	testutil.AssertEqual(t, data.Pending.Question, SelectTrend)
}

func TestClearDraft(t *testing.T) {
	t.Parallel()

	st, _ := testStore(t)
	if err := st.ReplaceTrends(testTrends, 42); err != nil {
		t.Fatal(err)
	}
	if err := st.PutDraft(Draft{Title: "x"}, 77); err != nil {
		t.Fatal(err)
	}
	if err := st.ClearDraft(); err != nil {
		t.Fatal(err)
	}

	data := st.Snapshot()
	if data.Draft != nil || data.Pending != nil {
		t.Fatalf("draft or question survived clearing: %+v", data)
	}
	testutil.AssertEqual(t, data.Trends, testTrends)
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	st, _ := testStore(t)
	if err := st.ReplaceTrends(testTrends, 42); err != nil {
		t.Fatal(err)
	}
	if err := st.PutDraft(Draft{Title: "x"}, 77); err != nil {
		t.Fatal(err)
	}

	data := st.Snapshot()
	data.Trends[0].Title = "mutated"
	data.Draft.Title = "mutated"
	data.Pending.AfterUpdateID = 0

	fresh := st.Snapshot()
	testutil.AssertEqual(t, fresh.Trends[0].Title, "Understanding React Server Components")
	testutil.AssertEqual(t, fresh.Draft.Title, "x")
	testutil.AssertEqual(t, fresh.Pending.AfterUpdateID, int64(77))
}

func TestPeekMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	data, err := Peek(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, data, Data{})

	// Peek never creates the file.
	if _, err := os.Stat(path); err == nil {
		t.Fatal("state file was created by Peek")
	}
}

func TestPeekCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Peek(path); err == nil {
		t.Fatal("no error for corrupt state file")
	}
}

func TestRunLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lock, err := AcquireRunLock(dir, "trends")
	if err != nil {
		t.Fatal(err)
	}

	_, err = AcquireRunLock(dir, "draft")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("want ErrAlreadyRunning, got %v", err)
	}
	// The holder identifies itself.
	if !strings.Contains(err.Error(), "trends") {
		t.Errorf("error doesn't name the lock holder: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	lock, err = AcquireRunLock(dir, "publish")
	if err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestRunLockPath(t *testing.T) {
	t.Parallel()

	a, b := t.TempDir(), t.TempDir()
	testutil.AssertEqual(t, RunLockPath(a), RunLockPath(a))
	if RunLockPath(a) == RunLockPath(b) {
		t.Fatal("different site directories share a lock")
	}
	// The lock lives outside the checkout, so that commits never pick it up.
	if !strings.HasPrefix(RunLockPath(a), os.TempDir()) {
		t.Errorf("lock path %q is not under the temp dir", RunLockPath(a))
	}
}
