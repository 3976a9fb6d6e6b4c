// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"io"
	"math"
	"sync"
)

// ProgressFunc receives the upload percentage. Values are strictly
// increasing within one attempt, start at 0, and never exceed 100.
type ProgressFunc func(percent int)

// AckThreshold is the highest percentage reported while the request body
// is still in flight. The remainder is reported only once the server has
// acknowledged the upload.
const AckThreshold = 95

// reporter serializes progress callbacks and drops anything that would
// not move the percentage forward. After close no callback fires.
type reporter struct {
	mu     sync.Mutex
	fn     ProgressFunc
	last   int
	closed bool
}

func newReporter(fn ProgressFunc) *reporter {
	return &reporter{fn: fn, last: -1}
}

func (r *reporter) emit(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || percent <= r.last {
		return
	}
	r.last = percent
	if r.fn != nil {
		r.fn(percent)
	}
}

// transferred reports body bytes handed to the transport, held below the
// acknowledgement threshold.
func (r *reporter) transferred(sent, total int64) {
	r.emit(min(Percent(sent, total), AckThreshold))
}

func (r *reporter) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Percent returns round(sent/total*100). A zero total reports 0.
func Percent(sent, total int64) int {
	if total <= 0 || sent <= 0 {
		return 0
	}
	if sent >= total {
		return 100
	}
	return int(math.Round(float64(sent) / float64(total) * 100))
}

// progressReader counts bytes as the transport reads the request body.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	rep   *reporter
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.rep.transferred(p.sent, p.total)
	}
	return n, err
}
