// Package partition routes the pages of a document into per-size buckets and
// builds the reassembly report that describes where every page went.
package partition

import (
	"fmt"

	"notary-splitter/internal/logger"
	"notary-splitter/internal/pagesize"
)

// ClockwiseQuarterTurn is the rotation applied to landscape pages.
const ClockwiseQuarterTurn = 90

// PageSource is the read-only view of a document the engine needs.
// Page numbers are 1-based and sizes are in points.
type PageSource interface {
	PageCount() int
	PageSize(page int) (widthPts, heightPts float64, err error)
}

// PageRef is one page queued for a bucket, with the rotation to apply.
type PageRef struct {
	Page     int
	Rotation int
}

// Bucket holds the pages of one base size class in document order.
type Bucket struct {
	Class pagesize.SizeClass
	Pages []PageRef
}

// UnknownPage records the measured size of a page that matched no template.
type UnknownPage struct {
	Page     int
	Geometry pagesize.Geometry
}

// Totals counts pages per bucket.
type Totals struct {
	Letter  int
	Legal   int
	Tabloid int
	Unknown int
}

// Plan is the result of partitioning one document.
type Plan struct {
	PageCount int
	Classes   []pagesize.SizeClass // Classes[i] is the class of page i+1
	Runs      []pagesize.Run
	Unknown   []UnknownPage
	Warnings  []string
	Totals    Totals

	buckets map[pagesize.SizeClass]*Bucket
}

// Options tune the engine.
type Options struct {
	Tolerance float64
}

// Partition classifies every page of src and routes it into the bucket of its
// base class. Rotated pages are flagged for a clockwise quarter turn.
func Partition(src PageSource, opts Options) (*Plan, error) {
	n := src.PageCount()
	if n < 0 {
		return nil, fmt.Errorf("invalid page count %d", n)
	}

	plan := &Plan{
		PageCount: n,
		Classes:   make([]pagesize.SizeClass, 0, n),
		buckets:   make(map[pagesize.SizeClass]*Bucket),
	}

	var tracker pagesize.Tracker
	for page := 1; page <= n; page++ {
		g := plan.geometry(src, page)
		class := pagesize.Classify(g, opts.Tolerance)

		logger.Debug("page classified",
			logger.Int("page", page),
			logger.Float64("width", g.Width),
			logger.Float64("height", g.Height),
			logger.String("class", class.String()))

		if class == pagesize.Unknown {
			plan.Unknown = append(plan.Unknown, UnknownPage{Page: page, Geometry: g})
		}

		ref := PageRef{Page: page}
		if class.Rotated() {
			ref.Rotation = ClockwiseQuarterTurn
		}
		b := plan.bucket(class.Base())
		b.Pages = append(b.Pages, ref)
		plan.count(class.Base())
		plan.Classes = append(plan.Classes, class)
		tracker.Add(page, class)
	}
	plan.Runs = tracker.Close()

	return plan, nil
}

// geometry reads one page size, substituting the fallback size on failure.
func (p *Plan) geometry(src PageSource, page int) pagesize.Geometry {
	w, h, err := src.PageSize(page)
	if err != nil {
		g := pagesize.Geometry{Width: pagesize.FallbackWidth, Height: pagesize.FallbackHeight}
		p.warn(page, fmt.Sprintf("page %d: size unreadable (%v), using %.1f x %.1f inches", page, err, g.Width, g.Height))
		return g
	}

	g, ok := pagesize.FromPoints(w, h)
	if !ok {
		p.warn(page, fmt.Sprintf("page %d: size %v x %v is not a usable number, using %.1f x %.1f inches", page, w, h, g.Width, g.Height))
	}
	return g
}

func (p *Plan) warn(page int, msg string) {
	logger.Warn("page size fallback", logger.Int("page", page), logger.String("detail", msg))
	p.Warnings = append(p.Warnings, "Warning: "+msg)
}

func (p *Plan) bucket(class pagesize.SizeClass) *Bucket {
	b, ok := p.buckets[class]
	if !ok {
		b = &Bucket{Class: class}
		p.buckets[class] = b
	}
	return b
}

func (p *Plan) count(base pagesize.SizeClass) {
	switch base {
	case pagesize.Letter:
		p.Totals.Letter++
	case pagesize.Legal:
		p.Totals.Legal++
	case pagesize.Tabloid:
		p.Totals.Tabloid++
	default:
		p.Totals.Unknown++
	}
}

// Buckets returns the non-empty buckets in output order: letter, legal,
// tabloid, unknown.
func (p *Plan) Buckets() []Bucket {
	var out []Bucket
	for _, c := range pagesize.BaseClasses {
		if b, ok := p.buckets[c]; ok && len(b.Pages) > 0 {
			out = append(out, *b)
		}
	}
	return out
}

// Bucket returns the bucket for a base class and whether it has pages.
func (p *Plan) Bucket(class pagesize.SizeClass) (Bucket, bool) {
	b, ok := p.buckets[class.Base()]
	if !ok || len(b.Pages) == 0 {
		return Bucket{Class: class.Base()}, false
	}
	return *b, true
}
