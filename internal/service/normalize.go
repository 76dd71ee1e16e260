package service

import "strings"

const maxSenderLen = 11

// NormalizePhone strips everything but digits, preserving their order.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeSender falls back to def when the sender is empty and
// truncates the result to the gateway's 11-character limit.
func NormalizeSender(sender, def string) string {
	if sender == "" {
		sender = def
	}
	runes := []rune(sender)
	if len(runes) > maxSenderLen {
		return string(runes[:maxSenderLen])
	}
	return sender
}

// LifetimeOrDefault substitutes the configured lifetime when none was
// given.
func LifetimeOrDefault(lifetime, def int) int {
	if lifetime > 0 {
		return lifetime
	}
	return def
}
