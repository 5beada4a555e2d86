package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that survive accent folding but still are not ASCII.
var slugTransliterations = map[rune]string{
	'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'đ': "d", 'ł': "l", 'þ': "th",
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ж': "zh", 'з': "z",
	'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p",
	'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// Slugify turns a display name into a URL-safe slug.
// "Solicitação de Férias" -> "solicitacao-de-ferias"
func Slugify(name string) string {
	lower := cases.Lower(language.Und).String(strings.TrimSpace(name))

	// the chain keeps internal buffers, so it is built per call
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, lower)
	if err != nil {
		folded = lower
	}

	var sb strings.Builder
	for _, r := range folded {
		if repl, ok := slugTransliterations[r]; ok {
			sb.WriteString(repl)
			continue
		}
		sb.WriteRune(r)
	}

	return strings.Trim(slugSeparators.ReplaceAllString(sb.String(), "-"), "-")
}
