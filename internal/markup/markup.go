// Package markup renders model output as Telegram MarkdownV2.
//
// Input is treated as loose markdown. Double-marker emphasis is folded into
// the single-marker MarkdownV2 forms, recognised spans keep their delimiters
// and everything else is escaped so Telegram accepts the message.
package markup

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

const (
	// MaxLength is the cut-off applied to transcoded text.
	MaxLength = 4000
	// TelegramLimit is the hard message size enforced by Telegram.
	TelegramLimit = 4096
)

// TruncationNotice is appended to cut messages. It is valid MarkdownV2.
const TruncationNotice = "\n\n\\.\\.\\.\n\n_Message truncated due to Telegram length limits_"

// special lists every character MarkdownV2 requires to be escaped outside
// of entity delimiters.
const special = "_*[]()~`>#+=|{}.!-"

var (
	doubleStar       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	doubleUnderscore = regexp.MustCompile(`__(.*?)__`)
	doubleTilde      = regexp.MustCompile(`~~(.*?)~~`)

	fencePattern = regexp.MustCompile("(?s)```(.*?)```")
	codePattern  = regexp.MustCompile("`([^`]+)`")
	linkPattern  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Escape backslash-escapes every MarkdownV2 special character in s.
func Escape(s string) string {
	if !strings.ContainsAny(s, special) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(special, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Transcode converts markdown-ish text into MarkdownV2 and applies Truncate.
// It never fails; unbalanced markers are escaped as plain punctuation.
func Transcode(input string) string {
	if input == "" {
		return ""
	}
	nodes := parse(normalize(input))
	var b strings.Builder
	b.Grow(len(input) + len(input)/4)
	render(&b, nodes)
	return Truncate(b.String())
}

// Truncate cuts s to MaxLength UTF-16 code units, the unit Telegram measures
// messages in, and appends TruncationNotice when it is longer. A surrogate
// pair is never split. The cut ignores escapes and spans, so the tail may be
// malformed.
func Truncate(s string) string {
	if Length(s) <= MaxLength {
		return s
	}
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > MaxLength {
			return s[:i] + TruncationNotice
		}
		units += n
	}
	return s
}

// Length reports the size of s in UTF-16 code units.
func Length(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func normalize(s string) string {
	s = doubleStar.ReplaceAllString(s, "*${1}*")
	s = doubleUnderscore.ReplaceAllString(s, "_${1}_")
	return doubleTilde.ReplaceAllString(s, "~${1}~")
}

func render(b *strings.Builder, nodes []node) {
	for _, n := range nodes {
		switch n.kind {
		case literal:
			b.WriteString(Escape(n.text))
		case fence:
			b.WriteString("```")
			b.WriteString(Escape(n.text))
			b.WriteString("```")
		case code:
			b.WriteByte('`')
			b.WriteString(Escape(n.text))
			b.WriteByte('`')
		case link:
			b.WriteByte('[')
			b.WriteString(Escape(n.text))
			b.WriteByte(']')
			b.WriteString(Escape("(" + n.url + ")"))
		default:
			d := n.kind.delimiter()
			b.WriteByte(d)
			render(b, n.children)
			b.WriteByte(d)
		}
	}
}
