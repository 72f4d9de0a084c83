package timeoutcache

import "errors"

// errPoolUnavailable is internal: it never escapes WithTimeout, which always
// resolves an exhausted deadline to the caller's fallback instead (spec.md
// §4.1: "the wrapper itself never raises").
var errPoolUnavailable = errors.New("timeoutcache: pool unavailable before deadline")
