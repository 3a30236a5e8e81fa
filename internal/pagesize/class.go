// Package pagesize classifies pages by their physical dimensions and groups
// consecutive pages of the same size into runs for reassembly reports.
package pagesize

import (
	"fmt"
	"math"
)

// PointsPerInch converts native page units to inches.
const PointsPerInch = 72.0

// DefaultTolerance is the allowed deviation, in inches, from a template dimension.
const DefaultTolerance = 1.0

// Fallback dimensions used when a page box cannot be converted.
const (
	FallbackWidth  = 8.5
	FallbackHeight = 11.0
)

// SizeClass is the size bucket a page belongs to.
type SizeClass int

const (
	Unknown SizeClass = iota
	Letter
	Legal
	Tabloid
	LetterRotated
	LegalRotated
	TabloidRotated
)

// BaseClasses lists the output buckets in the order files are written.
var BaseClasses = []SizeClass{Letter, Legal, Tabloid, Unknown}

// String returns the label used in reports.
func (c SizeClass) String() string {
	switch c {
	case Letter:
		return "letter"
	case Legal:
		return "legal"
	case Tabloid:
		return "tabloid"
	case LetterRotated:
		return "letterRot"
	case LegalRotated:
		return "legalRot"
	case TabloidRotated:
		return "tabloidRot"
	default:
		return "unknown"
	}
}

// Base maps a rotated class to its upright counterpart.
func (c SizeClass) Base() SizeClass {
	switch c {
	case LetterRotated:
		return Letter
	case LegalRotated:
		return Legal
	case TabloidRotated:
		return Tabloid
	case Letter, Legal, Tabloid:
		return c
	default:
		return Unknown
	}
}

// Rotated reports whether pages of this class are landscape and need turning.
func (c SizeClass) Rotated() bool {
	return c == LetterRotated || c == LegalRotated || c == TabloidRotated
}

// Suffix returns the output file suffix of the class's bucket.
func (c SizeClass) Suffix() string {
	return c.Base().String()
}

// Geometry is a page size in inches.
type Geometry struct {
	Width  float64
	Height float64
}

func (g Geometry) String() string {
	return fmt.Sprintf("width: %f, height: %f", g.Width, g.Height)
}

type template struct {
	class         SizeClass
	width, height float64
}

// templates is in priority order; the first match wins.
var templates = []template{
	{Letter, 8.5, 11.0},
	{Legal, 8.5, 14.0},
	{Tabloid, 11.0, 17.0},
	{LetterRotated, 11.0, 8.5},
	{LegalRotated, 14.0, 8.5},
	{TabloidRotated, 17.0, 11.0},
}

// Classify returns the size class of g. Both dimensions must lie within tol
// of a template. Pages matching nothing are Unknown.
func Classify(g Geometry, tol float64) SizeClass {
	for _, t := range templates {
		if within(g.Width, t.width, tol) && within(g.Height, t.height, tol) {
			return t.class
		}
	}
	return Unknown
}

func within(v, target, tol float64) bool {
	return v >= target-tol && v <= target+tol
}

// FromPoints converts a page box in points to inches. A dimension that is not
// a positive finite number is replaced by its fallback; ok is false when
// either value was substituted.
func FromPoints(widthPts, heightPts float64) (g Geometry, ok bool) {
	ok = true
	g.Width, g.Height = widthPts/PointsPerInch, heightPts/PointsPerInch
	if !valid(widthPts) {
		g.Width = FallbackWidth
		ok = false
	}
	if !valid(heightPts) {
		g.Height = FallbackHeight
		ok = false
	}
	return g, ok
}

func valid(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
