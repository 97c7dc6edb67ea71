package common

import (
	"fmt"

	"peinspect/perw"
)

const (
	SymbolCheck = "✓"
	SymbolWarn  = "⚠️"
	SymbolCross = "❌"
	SymbolFile  = "📁"
	SymbolHdr   = "🧩"
	SymbolTable = "📊"
	SymbolAlert = "🚨"

	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
)

// FormatFileSize renders n bytes with a binary unit.
func FormatFileSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateString shortens s to limit runes, marking the cut with "~".
func TruncateString(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return string(r[:max(limit, 0)])
	}
	return string(r[:limit-1]) + "~"
}

// EntropyColor is red above 7.0 (packed or encrypted data), yellow above
// 6.0 and green otherwise.
func EntropyColor(e float64) string {
	switch {
	case e > 7.0:
		return ansiRed
	case e > 6.0:
		return ansiYellow
	default:
		return ansiGreen
	}
}

func StatusColor(s perw.Status) string {
	switch s {
	case perw.StatusCorrupted:
		return ansiRed
	case perw.StatusSuspicious:
		return ansiYellow
	default:
		return ansiGreen
	}
}

func StatusSymbol(s perw.Status) string {
	switch s {
	case perw.StatusCorrupted:
		return SymbolCross
	case perw.StatusSuspicious:
		return SymbolWarn
	default:
		return SymbolCheck
	}
}
