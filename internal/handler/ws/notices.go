package ws

import (
	"sync"
	"time"

	"FinWatch/internal/domain/models"
)

// noticeLog is a fixed-size ring of the most recent notices.
type noticeLog struct {
	mu   sync.Mutex
	buf  []models.Notice
	next int
	full bool
}

func newNoticeLog(capacity int) *noticeLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &noticeLog{buf: make([]models.Notice, capacity)}
}

func (l *noticeLog) add(n models.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = n
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

func (l *noticeLog) since(t time.Time, limit int) []models.Notice {
	l.mu.Lock()
	ordered := make([]models.Notice, 0, len(l.buf))
	if l.full {
		ordered = append(ordered, l.buf[l.next:]...)
	}
	ordered = append(ordered, l.buf[:l.next]...)
	l.mu.Unlock()

	out := make([]models.Notice, 0, len(ordered))
	for _, n := range ordered {
		if n.At.After(t) {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
