package chat

import (
	"strconv"
	"time"
)

// timetokenClock hands out 17-digit timetokens: wall-clock milliseconds followed by four zeros.
// Tokens never repeat and never go backwards; a collision is bumped by one unit.
type timetokenClock struct {
	now  func() time.Time
	last int64
}

func (c *timetokenClock) next() int64 {
	tt := c.now().UnixMilli() * 10000
	if tt <= c.last {
		tt = c.last + 1
	}
	c.last = tt
	return tt
}

// observe raises the floor so later tokens sort after an existing one
func (c *timetokenClock) observe(token string) {
	if tt, err := strconv.ParseInt(token, 10, 64); err == nil && tt > c.last {
		c.last = tt
	}
}

func formatTimetoken(tt int64) string {
	return strconv.FormatInt(tt, 10)
}
