package ws

import (
	"crypto/rand"
	"encoding/hex"
	"unicode/utf8"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// preview truncates content for notification payloads without splitting a
// multi-byte rune.
func preview(content string, max int) string {
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max])
}
