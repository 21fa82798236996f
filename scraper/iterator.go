package scraper

import "context"

// URLIterator yields product URLs page by page. It walks pages 0 through
// the resolved last page inclusive, so the first result page is requested
// twice (unparameterized and as p=1). An iterator cannot be restarted.
type URLIterator struct {
	s     *Scraper
	query string

	resolved bool
	lastPage int
	page     int
	pages    int
	links    []string
	idx      int

	current string
	err     error
	done    bool
}

// Next advances to the next product URL, fetching search pages on demand.
// It returns false when the result set is exhausted or an error occurred.
func (it *URLIterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}

	if !it.resolved {
		lastPage, err := it.s.LastPage(ctx, it.query)
		if err != nil {
			return it.fail(err)
		}
		it.lastPage = lastPage
		it.resolved = true
	}

	for it.idx >= len(it.links) {
		if it.page > it.lastPage {
			it.done = true
			it.current = ""
			return false
		}
		links, err := it.s.searchPage(ctx, it.query, it.page)
		if err != nil {
			return it.fail(err)
		}
		it.links = links
		it.idx = 0
		it.page++
		it.pages++
	}

	it.current = it.links[it.idx]
	it.idx++
	return true
}

// URL returns the product URL produced by the last successful Next.
func (it *URLIterator) URL() string {
	return it.current
}

// Err returns the error that stopped iteration, if any.
func (it *URLIterator) Err() error {
	return it.err
}

// LastPage returns the resolved last page, or 0 before resolution.
func (it *URLIterator) LastPage() int {
	return it.lastPage
}

// Pages returns the number of search result pages fetched so far.
func (it *URLIterator) Pages() int {
	return it.pages
}

func (it *URLIterator) fail(err error) bool {
	it.err = err
	it.done = true
	it.current = ""
	return false
}
