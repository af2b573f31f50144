// Package index holds the names of the physical indices a rebuild touches.
package index

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// CloneInfix separates the source index name from the clone's creation time.
const CloneInfix = "_clone_"

// ClonePattern matches every clone created by a rebuild.
const ClonePattern = "*" + CloneInfix + "*"

// Name identifies one physical index. Names are resolved at the start of a
// run and never change during it.
type Name string

func (n Name) String() string {
	return string(n)
}

// Strings converts names to plain strings, preserving order.
func Strings(names []Name) []string {
	res := make([]string, len(names))
	for i, n := range names {
		res[i] = string(n)
	}
	return res
}

// CloneName derives the name of a clone of source created at t.
func CloneName(source Name, t time.Time) Name {
	return Name(string(source) + CloneInfix + strconv.FormatInt(t.UnixNano()/int64(time.Millisecond), 10))
}

// ParseClone splits a clone name into its source index and creation time.
// ok is false for names that were not derived by CloneName.
func ParseClone(name Name) (source Name, created time.Time, ok bool) {
	s := string(name)
	at := strings.LastIndex(s, CloneInfix)
	if at <= 0 {
		return "", time.Time{}, false
	}
	millis, err := strconv.ParseInt(s[at+len(CloneInfix):], 10, 64)
	if err != nil || millis < 0 {
		return "", time.Time{}, false
	}
	return Name(s[:at]), time.Unix(0, millis*int64(time.Millisecond)), true
}

// Namer hands out clone names that never repeat, even when the clock does
// not advance between two calls.
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewNamer returns a Namer reading time from now, or time.Now if nil.
func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// CloneName returns a fresh clone name for source.
func (n *Namer) CloneName(source Name) Name {
	n.mu.Lock()
	defer n.mu.Unlock()

	millis := n.now().UnixNano() / int64(time.Millisecond)
	if millis <= n.last {
		millis = n.last + 1
	}
	n.last = millis
	return CloneName(source, time.Unix(0, millis*int64(time.Millisecond)))
}
