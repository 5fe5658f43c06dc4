// © 2026 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package httplogger provides an [http.RoundTripper] middleware that logs
// every request the bot makes, used to trace API traffic in dry-run mode.
package httplogger

import (
	"net/http"
	"strings"
	"time"

	"github.com/mvasnetsov/pressbot/internal/logger"
)

// New wraps t so that every request is logged through logf. The log line
// passes through scrub first: the Telegram Bot API keeps the token in the
// URL path and it must never reach the logs.
func New(t http.RoundTripper, logf logger.Logf, scrub *strings.Replacer) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	return &loggingTransport{transport: t, logf: logf, scrub: scrub}
}

type loggingTransport struct {
	transport http.RoundTripper
	logf      logger.Logf
	scrub     *strings.Replacer
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.transport.RoundTrip(r)

	display := r.Method + " " + r.URL.String()
	if err != nil {
		display += ": " + err.Error()
	} else if resp != nil {
		display += ": " + resp.Status
	}
	if t.scrub != nil {
		display = t.scrub.Replace(display)
	}
	t.logf("HTTP: %s (%.3fs)", display, time.Since(start).Seconds())

	return resp, err
}
