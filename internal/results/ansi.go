package results

import "regexp"

// sgrPattern matches terminal SGR escape sequences with one to five numeric
// parameters, e.g. "\x1b[31m" or "\x1b[38;5;1;4;1m".
var sgrPattern = regexp.MustCompile("\x1b\\[[0-9]+(;[0-9]+){0,4}m")

// CleanANSI strips SGR escape sequences from s. Cleaning an already-clean
// string returns it unchanged.
func CleanANSI(s string) string {
	return sgrPattern.ReplaceAllString(s, "")
}
