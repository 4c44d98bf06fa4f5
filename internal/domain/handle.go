package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// minHandleLen is the shortest handle, including the leading "@", that can
// name a real account.
const minHandleLen = 3

// NormalizeHandle returns the canonical form of a chat handle: trimmed, NFC
// normalised and prefixed with "@". Returns "" for handles too short to be
// real.
func NormalizeHandle(handle string) string {
	h := norm.NFC.String(strings.TrimSpace(handle))
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	if len(h) < minHandleLen {
		return ""
	}
	return h
}
