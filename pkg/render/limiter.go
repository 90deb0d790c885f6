package render

import "time"

// DefaultFPS is the console's target frame rate.
const DefaultFPS = 48

// Limiter caps the loop at a target frame rate. It sleeps out whatever is
// left of the frame interval and never skips frames: under sustained
// overload frames simply take longer.
type Limiter struct {
	interval time.Duration
	last     time.Time
	fps      float64

	now   func() time.Time
	sleep func(time.Duration)
}

// NewLimiter returns a limiter for the given frame rate.
func NewLimiter(fps int) *Limiter {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Limiter{
		interval: time.Second / time.Duration(fps),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Interval returns the target frame interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Begin marks the start of a frame.
func (l *Limiter) Begin() {
	now := l.now()
	if !l.last.IsZero() {
		if dt := now.Sub(l.last); dt > 0 {
			inst := float64(time.Second) / float64(dt)
			if l.fps == 0 {
				l.fps = inst
			} else {
				l.fps = 0.9*l.fps + 0.1*inst
			}
		}
	}
	l.last = now
}

// Remaining returns how much of the current frame's budget is left.
func (l *Limiter) Remaining() time.Duration {
	if l.last.IsZero() {
		return 0
	}
	d := l.interval - l.now().Sub(l.last)
	if d < 0 {
		return 0
	}
	return d
}

// Wait sleeps out the rest of the current frame and begins the next one.
func (l *Limiter) Wait() {
	if d := l.Remaining(); d > 0 {
		l.sleep(d)
	}
	l.Begin()
}

// FPS returns the smoothed frame rate actually achieved.
func (l *Limiter) FPS() float64 {
	return l.fps
}
