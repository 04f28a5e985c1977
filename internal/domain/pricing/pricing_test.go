package pricing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/domain/catalog"
	"github.com/okulab/okulab-api/internal/domain/pricing"
)

func mkClass(id string, level int, priceCents int64, startsAt time.Time) catalog.ClassWithCourse {
	return catalog.ClassWithCourse{
		ClassID:    uuid.MustParse(id),
		CourseID:   uuid.New(),
		Level:      level,
		PriceCents: priceCents,
		StartsAt:   startsAt,
		EndsAt:     startsAt.Add(time.Hour),
	}
}

func TestCalculateSingle(t *testing.T) {
	c := mkClass("00000000-0000-0000-0000-000000000001", 2, 10000, time.Now())

	q, err := pricing.Calculate([]catalog.ClassWithCourse{c}, false)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if q.Shape != pricing.ShapeSingle {
		t.Fatalf("expected single shape, got %s", q.Shape)
	}
	if q.TotalCents != 10000 {
		t.Fatalf("expected 10000, got %d", q.TotalCents)
	}
	if q.Main.ClassID != c.ClassID {
		t.Fatalf("expected main %s, got %s", c.ClassID, q.Main.ClassID)
	}
}

func TestCalculateBundle(t *testing.T) {
	now := time.Now()
	main := mkClass("00000000-0000-0000-0000-000000000001", 1, 10000, now)
	addOn := mkClass("00000000-0000-0000-0000-000000000002", 2, 5000, now)

	q, err := pricing.Calculate([]catalog.ClassWithCourse{addOn, main}, false)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if q.Shape != pricing.ShapeBundle {
		t.Fatalf("expected bundle shape, got %s", q.Shape)
	}
	if q.Main.ClassID != main.ClassID {
		t.Fatalf("expected lowest level class as main, got %s", q.Main.ClassID)
	}
	// 10000 + 5000*90%
	if q.TotalCents != 14500 {
		t.Fatalf("expected 14500, got %d", q.TotalCents)
	}
}

func TestCalculateBundleFloorsAddOns(t *testing.T) {
	now := time.Now()
	main := mkClass("00000000-0000-0000-0000-000000000001", 1, 10000, now)
	addOn := mkClass("00000000-0000-0000-0000-000000000002", 2, 5555, now)

	q, err := pricing.Calculate([]catalog.ClassWithCourse{main, addOn}, false)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	// 5555*90/100 rounds down to 4999
	if q.TotalCents != 14999 {
		t.Fatalf("expected 14999, got %d", q.TotalCents)
	}
}

func TestCalculateSeries(t *testing.T) {
	now := time.Now()
	classes := []catalog.ClassWithCourse{
		mkClass("00000000-0000-0000-0000-000000000001", 1, 10000, now),
		mkClass("00000000-0000-0000-0000-000000000002", 2, 5000, now),
		mkClass("00000000-0000-0000-0000-000000000003", 3, 2500, now),
	}

	q, err := pricing.Calculate(classes, true)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if q.Shape != pricing.ShapeSeries {
		t.Fatalf("expected series shape, got %s", q.Shape)
	}
	// 17500 * 80%
	if q.TotalCents != 14000 {
		t.Fatalf("expected 14000, got %d", q.TotalCents)
	}
}

func TestCalculateSeriesSingleClass(t *testing.T) {
	c := mkClass("00000000-0000-0000-0000-000000000001", 1, 10000, time.Now())

	q, err := pricing.Calculate([]catalog.ClassWithCourse{c}, true)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if q.Shape != pricing.ShapeSeries {
		t.Fatalf("expected series shape for whole-series flag, got %s", q.Shape)
	}
	if q.TotalCents != 8000 {
		t.Fatalf("expected 8000, got %d", q.TotalCents)
	}
}

func TestCalculateMainSelectionDeterministic(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	// Same level: earlier start wins. Same level and start: lower id wins.
	a := mkClass("00000000-0000-0000-0000-00000000000a", 1, 1000, base.Add(time.Hour))
	b := mkClass("00000000-0000-0000-0000-00000000000b", 1, 2000, base)
	c := mkClass("00000000-0000-0000-0000-00000000000c", 2, 3000, base)

	orderings := [][]catalog.ClassWithCourse{
		{a, b, c},
		{c, b, a},
		{b, c, a},
	}

	var first *pricing.Quote
	for i, classes := range orderings {
		q, err := pricing.Calculate(classes, false)
		if err != nil {
			t.Fatalf("calculate failed: %v", err)
		}
		if q.Main.ClassID != b.ClassID {
			t.Fatalf("ordering %d: expected main %s, got %s", i, b.ClassID, q.Main.ClassID)
		}
		if first == nil {
			first = q
			continue
		}
		if q.TotalCents != first.TotalCents || q.Shape != first.Shape {
			t.Fatalf("ordering %d: quote differs: %d/%s vs %d/%s", i, q.TotalCents, q.Shape, first.TotalCents, first.Shape)
		}
	}
}

func TestCalculateMainTieBreakOnClassID(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	lo := mkClass("00000000-0000-0000-0000-000000000001", 1, 1000, base)
	hi := mkClass("00000000-0000-0000-0000-000000000002", 1, 2000, base)

	q, err := pricing.Calculate([]catalog.ClassWithCourse{hi, lo}, false)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if q.Main.ClassID != lo.ClassID {
		t.Fatalf("expected lowest class id as main, got %s", q.Main.ClassID)
	}
}

func TestCalculateEmpty(t *testing.T) {
	_, err := pricing.Calculate(nil, false)
	if !errors.Is(err, pricing.ErrNoClasses) {
		t.Fatalf("expected ErrNoClasses, got %v", err)
	}
}

func TestCalculateFreeClasses(t *testing.T) {
	c := mkClass("00000000-0000-0000-0000-000000000001", 1, 0, time.Now())

	q, err := pricing.Calculate([]catalog.ClassWithCourse{c}, false)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if q.TotalCents != 0 {
		t.Fatalf("expected 0, got %d", q.TotalCents)
	}
}
