package teleop

import (
	"sort"
	"time"
)

// KeyTracker turns the press-only key stream of a terminal into press and
// release events. A held key auto-repeats; it counts as released once no
// repeat arrives within the release timeout, or as soon as another key is
// pressed (terminals only repeat the last key).
//
// Only keys accepted by the hold filter are tracked. Every press of any other
// key is a fresh key-down, so quick double taps of a toggle are not mistaken
// for auto-repeat.
type KeyTracker struct {
	release time.Duration
	holds   func(key string) bool
	held    map[string]time.Time
}

// NewKeyTracker returns a tracker with the given release timeout. A nil
// holds filter tracks every key.
func NewKeyTracker(release time.Duration, holds func(key string) bool) *KeyTracker {
	if holds == nil {
		holds = func(string) bool { return true }
	}
	return &KeyTracker{release: release, holds: holds, held: make(map[string]time.Time)}
}

// Press records a key press at now and returns the events it produces:
// releases of other held keys, then a press if key was not already held.
func (t *KeyTracker) Press(key string, now time.Time) []Event {
	var events []Event
	for _, k := range t.sortedHeld() {
		if k != key {
			delete(t.held, k)
			events = append(events, KeyUp(k))
		}
	}
	if !t.holds(key) {
		return append(events, KeyDown(key))
	}
	if _, ok := t.held[key]; !ok {
		events = append(events, KeyDown(key))
	}
	t.held[key] = now
	return events
}

// Expire returns release events for keys not repeated since now-release.
func (t *KeyTracker) Expire(now time.Time) []Event {
	var events []Event
	for _, k := range t.sortedHeld() {
		if now.Sub(t.held[k]) >= t.release {
			delete(t.held, k)
			events = append(events, KeyUp(k))
		}
	}
	return events
}

// Held reports whether key is currently considered held.
func (t *KeyTracker) Held(key string) bool {
	_, ok := t.held[key]
	return ok
}

func (t *KeyTracker) sortedHeld() []string {
	keys := make([]string, 0, len(t.held))
	for k := range t.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
