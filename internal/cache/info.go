package cache

import (
	"strconv"
	"strings"
)

// parseInfo extracts integer fields from a raw INFO reply.
// Lines look like "used_memory:1024" separated by CRLF.
func parseInfo(info string) map[string]int64 {
	fields := make(map[string]int64)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		fields[key] = n
	}
	return fields
}
