package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncatePreview(t *testing.T) {
	input := "Это очень длинный текст который должен быть обрезан по лимиту символов"
	result := TruncatePreview(input, 30)

	if utf8.RuneCountInString(result) > 33 {
		t.Errorf("TruncatePreview result too long: %d runes", utf8.RuneCountInString(result))
	}
	if !strings.HasSuffix(result, "...") {
		t.Errorf("TruncatePreview should end with ...")
	}
	if !utf8.ValidString(result) {
		t.Errorf("TruncatePreview broke a multi-byte rune: %q", result)
	}
	if result != "Это очень длинный текст..." {
		t.Errorf("TruncatePreview should cut at a word boundary, got %q", result)
	}
}

func TestTruncatePreviewShortText(t *testing.T) {
	if got := TruncatePreview("  short  ", 200); got != "short" {
		t.Errorf("TruncatePreview(short) = %q", got)
	}
	if got := TruncatePreview("abcdefghij", 4); got != "abcd..." {
		t.Errorf("TruncatePreview without spaces = %q", got)
	}
}
