package service

import "time"

// Clock supplies the current time so due-date arithmetic is testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
