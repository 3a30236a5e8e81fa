// Package split divides a document into a fixed number of consecutive parts
// of near-equal page count.
package split

import "fmt"

// PageRange is an inclusive, 1-based range of pages.
type PageRange struct {
	Start int
	End   int
}

// Len returns the number of pages in the range, 0 for an empty range.
func (r PageRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Selection formats the range the way page selections are written, e.g. "4-6".
func (r PageRange) Selection() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Plan describes how TotalPages are spread over Parts outputs. Every part
// but the last has PagesPerPart pages; the last one takes the remainder.
type Plan struct {
	TotalPages   int
	Parts        int
	PagesPerPart int
	LastPartSize int
}

// NewPlan computes the split of total pages into parts. A non-positive part
// count yields a plan with no parts.
func NewPlan(total, parts int) Plan {
	if parts <= 0 || total < 0 {
		return Plan{TotalPages: total}
	}
	per := total / parts
	return Plan{
		TotalPages:   total,
		Parts:        parts,
		PagesPerPart: per,
		LastPartSize: total - per*(parts-1),
	}
}

// Ranges returns the page range of each part in order. Parts that receive no
// pages (more parts than pages) come back as empty ranges so that part
// numbering stays stable.
func (p Plan) Ranges() []PageRange {
	if p.Parts <= 0 {
		return nil
	}
	ranges := make([]PageRange, 0, p.Parts)
	next := 1
	for i := 0; i < p.Parts; i++ {
		n := p.PagesPerPart
		if i == p.Parts-1 {
			n = p.LastPartSize
		}
		ranges = append(ranges, PageRange{Start: next, End: next + n - 1})
		next += n
	}
	return ranges
}
