package hydrate

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const ellipsis = "..."

// Snippet returns at most limit runes of text. Whitespace is collapsed. When
// the text is too long the window starts at the first keyword, or at the
// beginning if none occurs, and cut ends are marked with "...".
func Snippet(s string, keywords map[string]bool, limit int) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}

	start := max(firstKeyword(runes, keywords), 0)
	prefix := ""
	if start > 0 {
		prefix = ellipsis
	}

	// Pull the window back if it would run short of the end of the text
	room := limit - len(prefix)
	if len(runes)-start < room {
		start = len(runes) - room
		if start <= 0 {
			start, prefix, room = 0, "", limit
		}
	}

	rest := runes[start:]
	if len(rest) <= room {
		return prefix + string(rest)
	}
	cut := strings.TrimRightFunc(string(rest[:room-len(ellipsis)]), unicode.IsSpace)
	return prefix + cut + ellipsis
}

// plainText renders Markdown to whitespace-collapsed plain text. HTML is dropped.
func plainText(md goldmark.Markdown, src string) string {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(b.String()), " ")
}

// HumanizeTopic turns a topic key into a display label: data_privacy
// becomes "Data Privacy".
func HumanizeTopic(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// slug lowercases s and replaces every run of non-alphanumerics with "-".
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// sourceURL derives a link for an entity when the lookup has none.
func sourceURL(base, jurisdiction, entityType, entityID string) string {
	j := slug(jurisdiction)
	if j == "" {
		j = "global"
	}
	return strings.TrimRight(base, "/") + "/" + j + "/" + url.PathEscape(entityType) + "s/" + url.PathEscape(entityID)
}
