package audit

import "strings"

// FormatPayload renders an ordered sequence of key/value pairs as
// "key=value[ key=value]*" (spec §6). kv must have an even length.
func FormatPayload(kv ...string) string {
	if len(kv)%2 != 0 {
		panic("audit.FormatPayload: odd number of arguments")
	}
	pairs := make([]string, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		pairs = append(pairs, kv[i]+"="+kv[i+1])
	}
	return strings.Join(pairs, " ")
}
