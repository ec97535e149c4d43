package solver

import (
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchTimeout bounds a single regular expression match. Patterns come from
// policy text and may backtrack catastrophically.
var MatchTimeout = time.Second

const patternCacheSize = 1024

// patternCache holds compiled, anchored patterns. Policies use a small set of
// endpoint patterns that are matched on every decision.
var patternCache = struct {
	sync.RWMutex
	m map[string]*regexp2.Regexp
}{m: make(map[string]*regexp2.Regexp)}

// CompilePattern compiles pattern for a full-string match. The syntax is the
// .NET/Java flavoured one of regexp2, which supports lazy quantifiers and
// lookaround as used by existing endpoint patterns. A pattern that does not
// compile on its own is rejected before it is anchored.
func CompilePattern(pattern string) (*regexp2.Regexp, error) {
	patternCache.RLock()
	re, ok := patternCache.m[pattern]
	patternCache.RUnlock()
	if ok {
		return re, nil
	}

	if _, err := regexp2.Compile(pattern, regexp2.None); err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(`\A(?:`+pattern+`)\z`, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout

	patternCache.Lock()
	if len(patternCache.m) >= patternCacheSize {
		patternCache.m = make(map[string]*regexp2.Regexp)
	}
	patternCache.m[pattern] = re
	patternCache.Unlock()
	return re, nil
}

// MatchPattern reports whether text matches pattern in full.
func MatchPattern(pattern, text string) (bool, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return false, &EvalError{Kind: ErrInvalidPattern, Message: err.Error()}
	}
	ok, err := re.MatchString(text)
	if err != nil {
		return false, evalErr("matching %q: %v", pattern, err)
	}
	return ok, nil
}
