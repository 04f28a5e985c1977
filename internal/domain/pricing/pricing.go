package pricing

import (
	"errors"
	"sort"

	"github.com/okulab/okulab-api/internal/domain/catalog"
)

// Shape identifies which rule set priced a selection
type Shape string

const (
	ShapeSingle Shape = "single"
	ShapeBundle Shape = "bundle"
	ShapeSeries Shape = "series"
)

const (
	// Add-on classes in a bundle are charged this percentage of their course price
	bundleAddOnPct = 90
	// A whole-series purchase is charged this percentage of the summed course prices
	seriesPct = 80
)

var ErrNoClasses = errors.New("no classes to price")

// Quote is the price for one selection of classes. Main is the class of the
// lowest-level course; it anchors referral eligibility and promotion scope.
type Quote struct {
	Main       catalog.ClassWithCourse
	AddOns     []catalog.ClassWithCourse
	Shape      Shape
	TotalCents int64
}

// Calculate prices a selection of classes. The same input always produces
// the same quote: the main class is the one with the lowest course level,
// ties broken by earliest start time, then by class id.
//
// Rules: a single class costs its course price. A multi-class selection
// without the whole-series flag is a bundle, charging the main class in full
// and every add-on at a reduced rate. With the whole-series flag the summed
// course prices are charged at the series rate instead. Integer math rounds
// down and the result never goes below zero.
func Calculate(classes []catalog.ClassWithCourse, wholeSeries bool) (*Quote, error) {
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}

	sorted := make([]catalog.ClassWithCourse, len(classes))
	copy(sorted, classes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Level != sorted[j].Level {
			return sorted[i].Level < sorted[j].Level
		}
		if !sorted[i].StartsAt.Equal(sorted[j].StartsAt) {
			return sorted[i].StartsAt.Before(sorted[j].StartsAt)
		}
		return sorted[i].ClassID.String() < sorted[j].ClassID.String()
	})

	q := &Quote{
		Main:   sorted[0],
		AddOns: sorted[1:],
	}

	switch {
	case wholeSeries:
		q.Shape = ShapeSeries
		var sum int64
		for _, c := range sorted {
			sum += c.PriceCents
		}
		q.TotalCents = sum * seriesPct / 100
	case len(sorted) > 1:
		q.Shape = ShapeBundle
		total := q.Main.PriceCents
		for _, c := range q.AddOns {
			total += c.PriceCents * bundleAddOnPct / 100
		}
		q.TotalCents = total
	default:
		q.Shape = ShapeSingle
		q.TotalCents = q.Main.PriceCents
	}

	if q.TotalCents < 0 {
		q.TotalCents = 0
	}

	return q, nil
}
