package parser

import "github.com/PuerkitoBio/goquery"

// TrailingText returns the text of the first node in sel starting at the
// offset-th character. An empty selection yields sentinel; an offset past
// the end yields "".
func TrailingText(sel *goquery.Selection, offset int, sentinel string) string {
	if sel == nil || sel.Length() == 0 {
		return sentinel
	}
	runes := []rune(sel.First().Text())
	if offset < 0 {
		offset = 0
	}
	if offset >= len(runes) {
		return ""
	}
	return string(runes[offset:])
}
