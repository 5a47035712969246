package protocol

import (
	"fmt"
	"regexp"
	"sort"

	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// compilePattern compiles a fileRegex as a fully anchored expression so a
// pattern like `report-.*\.csv` matches whole file names only.
func compilePattern(protocolName, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, flotillaerrors.NewProtocolError(protocolName, fmt.Errorf("invalid fileRegex %q: %v", pattern, err))
	}
	return re, nil
}

// matchNames filters file names against the pattern and returns them in
// lexical order.
func matchNames(names []string, re *regexp.Regexp) []string {
	var out []string
	for _, name := range names {
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
