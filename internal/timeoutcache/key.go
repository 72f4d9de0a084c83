package timeoutcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key builds the canonical cache key for Cached: the function id plus a
// deterministic hash of its argument tuple (spec.md §4.1: "Cache key =
// function id + canonical tuple of arguments").
func Key(functionID string, args ...interface{}) string {
	h := sha256.New()
	for _, a := range args {
		fmt.Fprintf(h, "%#v|", a)
	}
	return functionID + ":" + hex.EncodeToString(h.Sum(nil))[:24]
}
