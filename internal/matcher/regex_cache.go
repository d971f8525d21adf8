package matcher

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

const regexCacheSize = 256

// Patterns are compiled in multi-line mode: ^ and $ anchor at line boundaries,
// which is how command output is usually asserted on.
const multiLineFlag = "(?m)"

var regexCache *lru.Cache[string, *regexp.Regexp]

func init() {
	cache, err := lru.New[string, *regexp.Regexp](regexCacheSize)
	if err != nil {
		panic(err)
	}
	regexCache = cache
}

// Compile returns the compiled form of pattern, reusing earlier compilations.
// Many instantiations of one set produce identical patterns.
func Compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(multiLineFlag + pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Add(pattern, re)
	return re, nil
}
