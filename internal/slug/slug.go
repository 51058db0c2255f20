package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength keeps slugs inside a 191-character index key once a suffix is added.
const DefaultMaxLength = 190

const maxAttempts = 10000

// ErrEmpty is returned when the source text contains nothing slug-worthy.
var ErrEmpty = eris.New("slug source produced an empty slug")

// Letters that do not decompose into a base letter plus combining marks.
var specialLetters = map[rune]string{
	'ß': "ss",
	'æ': "ae",
	'Æ': "ae",
	'œ': "oe",
	'Œ': "oe",
	'ø': "o",
	'Ø': "o",
	'ł': "l",
	'Ł': "l",
	'đ': "d",
	'Đ': "d",
	'ð': "d",
	'þ': "th",
	'Þ': "th",
	'ı': "i",
	'&': " and ",
	'@': " at ",
}

// Slugify transliterates text into a lowercase, hyphen separated, URL-safe token of at most maxLength runes.
// A maxLength of zero or less selects DefaultMaxLength.
func Slugify(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var replaced strings.Builder
	for _, r := range text {
		if repl, ok := specialLetters[r]; ok {
			replaced.WriteString(repl)
			continue
		}
		replaced.WriteRune(r)
	}

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, replaced.String())
	if err != nil {
		folded = replaced.String()
	}
	// Scripts without a decomposition, such as Cyrillic, Arabic or CJK, are transliterated.
	folded = unidecode.Unidecode(folded)

	var out strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && out.Len() > 0 {
				out.WriteByte('-')
			}
			pendingHyphen = false
			out.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	return truncate(out.String(), maxLength)
}

// truncate cuts s to at most limit bytes, preferring the last hyphen boundary. s is ASCII.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}

	cut := s[:limit]
	if s[limit] != '-' {
		if idx := strings.LastIndexByte(cut, '-'); idx > limit/2 {
			cut = cut[:idx]
		}
	}
	return strings.Trim(cut, "-")
}

// ExistsFunc reports whether candidate is already taken in the caller's scope.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator derives unique slugs by probing an ExistsFunc.
type Generator struct {
	maxLength int
}

// NewGenerator constructs a Generator bounded to maxLength runes per slug, suffix included.
func NewGenerator(maxLength int) *Generator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Generator{maxLength: maxLength}
}

// MaxLength returns the configured bound.
func (g *Generator) MaxLength() int {
	return g.maxLength
}

// Unique slugifies source and appends -1, -2, ... until exists reports the candidate free.
func (g *Generator) Unique(ctx context.Context, source string, exists ExistsFunc) (string, error) {
	if exists == nil {
		return "", eris.New("slug existence check is required")
	}

	base := Slugify(source, g.maxLength)
	if base == "" {
		return "", ErrEmpty
	}

	taken, err := exists(ctx, base)
	if err != nil {
		return "", eris.Wrapf(err, "probing slug %s", base)
	}
	if !taken {
		return base, nil
	}

	for counter := 1; counter <= maxAttempts; counter++ {
		suffix := "-" + strconv.Itoa(counter)
		candidate := truncate(base, g.maxLength-len(suffix)) + suffix

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", eris.Wrapf(err, "probing slug %s", candidate)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", eris.Errorf("no free slug for %s after %d attempts", base, maxAttempts)
}
