// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package state persists the bot's pipeline state between scheduled runs.
//
// Everything lives in a single state.json file inside the site checkout,
// written atomically. There is exactly one writer at a time, enforced by the
// run lock.
package state

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"crawshaw.dev/jsonfile"

	"github.com/mvasnetsov/pressbot/internal/filelock"
)

// FileName is the name of the state file inside the site checkout.
const FileName = "state.json"

// Trend is a candidate topic sourced from the feed.
type Trend struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Draft is the content package produced by a single model call.
type Draft struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PrimaryTech string `json:"primary_tech"`
	Script      string `json:"script"`
	ImagePrompt string `json:"img_prompt"`
	Blog        string `json:"blog"`
	Tweets      string `json:"tweets"`
}

// Question identifies which reply the bot is waiting for.
type Question string

const (
	// SelectTrend means the bot asked the operator to pick a trend by number.
	SelectTrend Question = "select_trend"
	// DecidePublish means the bot asked whether to publish the draft.
	DecidePublish Question = "decide_publish"
)

// Pending records a question asked in the chat together with the newest
// Telegram update ID seen at the time it was asked. Updates at or below
// AfterUpdateID predate the question and must not be treated as answers.
type Pending struct {
	Question      Question  `json:"question"`
	AfterUpdateID int64     `json:"after_update_id"`
	AskedAt       time.Time `json:"asked_at"`
}

// Data is the complete persisted state.
type Data struct {
	Trends  []Trend  `json:"trends,omitempty"`
	Draft   *Draft   `json:"draft,omitempty"`
	Pending *Pending `json:"pending,omitempty"`
}

// Store is a file-backed Data holder with atomic writes.
type Store struct {
	f *jsonfile.JSONFile[Data]

	now func() time.Time // replaced in tests
}

// Open loads the state file at path, creating it if it doesn't exist.
func Open(path string) (*Store, error) {
	f, err := jsonfile.Load[Data](path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = jsonfile.New[Data](path)
		if err == nil {
			// Force an initial serialization so the file is valid JSON from
			// the start.
			if werr := f.Write(func(*Data) error { return nil }); werr != nil {
				return nil, werr
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return &Store{f: f, now: time.Now}, nil
}

// Peek reads the state at path without creating the file, returning the zero
// value when it doesn't exist yet. Intended for read-only callers that don't
// hold the run lock.
func Peek(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Data{}, nil
	}
	if err != nil {
		return Data{}, err
	}
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return Data{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Data {
	var d Data
	s.f.Read(func(cur *Data) {
		d = *cur
		d.Trends = slices.Clone(cur.Trends)
		if cur.Draft != nil {
			draft := *cur.Draft
			d.Draft = &draft
		}
		if cur.Pending != nil {
			pending := *cur.Pending
			d.Pending = &pending
		}
	})
	return d
}

// ReplaceTrends overwrites the candidate list and records that the bot now
// waits for the operator to select one. afterUpdateID is the newest Telegram
// update seen before asking. Any previous draft is kept, but its question, if
// outstanding, is superseded.
func (s *Store) ReplaceTrends(trends []Trend, afterUpdateID int64) error {
	return s.f.Write(func(d *Data) error {
		d.Trends = slices.Clone(trends)
		d.Pending = &Pending{
			Question:      SelectTrend,
			AfterUpdateID: afterUpdateID,
			AskedAt:       s.now().UTC(),
		}
		return nil
	})
}

// PutDraft stores the draft and records that the bot now waits for a publish
// decision.
func (s *Store) PutDraft(draft Draft, afterUpdateID int64) error {
	return s.f.Write(func(d *Data) error {
		d.Draft = &draft
		d.Pending = &Pending{
			Question:      DecidePublish,
			AfterUpdateID: afterUpdateID,
			AskedAt:       s.now().UTC(),
		}
		return nil
	})
}

// ClearDraft drops the draft and any outstanding question. Trend candidates
// are kept until the next trend run replaces them.
func (s *Store) ClearDraft() error {
	return s.f.Write(func(d *Data) error {
		d.Draft = nil
		d.Pending = nil
		return nil
	})
}

// ErrAlreadyRunning indicates that another bot process holds the run lock.
var ErrAlreadyRunning = errors.New("already running")

// RunLockPath returns the path of the run lock for the site checkout at dir.
// The lock lives outside the checkout so that commits never pick it up.
func RunLockPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), fmt.Sprintf("pressbot-%x.lock", sum[:6]))
}

// AcquireRunLock takes the exclusive run lock for the site checkout at dir,
// enforcing a single writer. The returned lock must be released when the run
// finishes.
func AcquireRunLock(dir, payload string) (filelock.Lock, error) {
	path := RunLockPath(dir)
	l, err := filelock.Acquire(path, payload)
	if errors.Is(err, filelock.ErrAlreadyLocked) {
		if owner := filelock.Owner(path); owner != "" {
			return nil, fmt.Errorf("%w (%s)", ErrAlreadyRunning, owner)
		}
		return nil, ErrAlreadyRunning
	}
	return l, err
}
