package quran

import "github.com/samber/lo"

// VersesPerPage returns the page size for a chapter of total verses.
// Short chapters are shown on a single page.
func VersesPerPage(total int) int {
	switch {
	case total <= 50:
		return total
	case total <= 100:
		return 25
	default:
		return 20
	}
}

// TotalPages returns the number of pages for a chapter of total verses.
// An empty chapter still has one (empty) page.
func TotalPages(total int) int {
	per := VersesPerPage(total)
	if per <= 0 {
		return 1
	}
	return (total + per - 1) / per
}

// PageOf returns the 1-based page holding the verse at index.
func PageOf(index, total int) int {
	per := VersesPerPage(total)
	if per <= 0 || index < 0 {
		return 1
	}
	return min(index/per+1, TotalPages(total))
}

// Page is one page of a chapter's verses.
type Page struct {
	Number     int     `json:"number"`
	TotalPages int     `json:"totalPages"`
	PerPage    int     `json:"perPage"`
	TotalItems int     `json:"totalVerses"`
	FirstIndex int     `json:"firstVerseIndex"`
	LastIndex  int     `json:"lastVerseIndex"`
	Verses     []Verse `json:"verses"`
}

// Paginate returns the requested page of verses. Out-of-range page
// numbers are clamped to the first or last page.
func Paginate(verses []Verse, page int) Page {
	total := len(verses)
	per := VersesPerPage(total)
	pages := TotalPages(total)
	page = max(1, min(page, pages))

	p := Page{
		Number:     page,
		TotalPages: pages,
		PerPage:    per,
		TotalItems: total,
		Verses:     []Verse{},
	}
	if total == 0 {
		p.LastIndex = -1
		return p
	}

	p.Verses = lo.Chunk(verses, per)[page-1]
	p.FirstIndex = (page - 1) * per
	p.LastIndex = min(page*per-1, total-1)
	return p
}

// Paginator tracks the current page over a fixed verse sequence.
// It is not safe for concurrent use.
type Paginator struct {
	verses  []Verse
	current int
}

// NewPaginator returns a paginator positioned on page.
func NewPaginator(verses []Verse, page int) *Paginator {
	p := &Paginator{verses: verses, current: 1}
	p.GoTo(page)
	return p
}

// Current returns the current page.
func (p *Paginator) Current() Page {
	return Paginate(p.verses, p.current)
}

// GoTo moves to page if it exists and reports whether it moved.
func (p *Paginator) GoTo(page int) bool {
	if page < 1 || page > TotalPages(len(p.verses)) {
		return false
	}
	p.current = page
	return true
}

// Next moves to the following page, if any.
func (p *Paginator) Next() bool { return p.GoTo(p.current + 1) }

// Prev moves to the preceding page, if any.
func (p *Paginator) Prev() bool { return p.GoTo(p.current - 1) }
