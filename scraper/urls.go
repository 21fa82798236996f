package scraper

import (
	"fmt"
	"net/url"
)

// SearchURL builds a search result URL. Page 0 omits the page parameter;
// the site serves the same first page for page 0 and page 1.
func SearchURL(origin, path, query string, page int) string {
	q := url.QueryEscape(query)
	if page <= 0 {
		return fmt.Sprintf("%s%s?gr_smart_search=1&search_text=%s", origin, path, q)
	}
	return fmt.Sprintf("%s%s?p=%d&gr_smart_search=1&search_text=%s", origin, path, page, q)
}
