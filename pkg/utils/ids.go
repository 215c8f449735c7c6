package utils

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var idSeq uint64

// GenSyncID generates a unique sync-run ID using the current UTC nanosecond
// timestamp and an atomic sequence number. The format is "sync-<ts>-<seq>".
func GenSyncID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("sync-%d-%d", n, s)
}

// GenPostID generates a unique ID for a queued outbound post, in the same
// "post-<ts>-<seq>" format as sync IDs.
func GenPostID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("post-%d-%d", n, s)
}

// ValidGroupName reports whether a newsgroup name is safe to use in store
// keys and URLs: dot-separated components of letters, digits, "+", "-" and
// "_", per the usual active-file conventions.
func ValidGroupName(name string) bool {
	if name == "" || len(name) > 490 {
		return false
	}
	for _, comp := range strings.Split(name, ".") {
		if comp == "" {
			return false
		}
		for i := 0; i < len(comp); i++ {
			c := comp[i]
			switch {
			case c >= 'a' && c <= 'z':
			case c >= 'A' && c <= 'Z':
			case c >= '0' && c <= '9':
			case c == '+' || c == '-' || c == '_':
			default:
				return false
			}
		}
	}
	return true
}
