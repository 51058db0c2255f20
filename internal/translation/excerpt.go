package translation

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ExcerptLength is the rune budget of a derived excerpt.
const ExcerptLength = 160

// PlainText extracts the visible text of an HTML fragment, collapsing whitespace.
// Script and style contents are skipped.
func PlainText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var (
		b    strings.Builder
		skip int
	)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "p", "br", "li", "div", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// Excerpt returns at most limit runes of the body's text, cut at a word boundary with an ellipsis.
func Excerpt(body string, limit int) string {
	if limit <= 0 {
		limit = ExcerptLength
	}

	text := PlainText(body)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:limit-1])
	if idx := strings.LastIndexByte(cut, ' '); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
