package normalize

import (
	"strings"
	"unicode/utf8"
)

// TruncatePreview обрезает текст до maxChars символов (рун) и добавляет
// многоточие. Cuts at the last space before the limit when there is one.
func TruncatePreview(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	// Находим байтовую границу maxChars-й руны
	cut := len(text)
	count := 0
	for i := range text {
		if count == maxChars {
			cut = i
			break
		}
		count++
	}
	truncated := text[:cut]

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "..."
}
