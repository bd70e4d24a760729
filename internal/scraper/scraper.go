package scraper

import (
	"context"
	"fmt"

	"ShopScraper/internal/images"
	"ShopScraper/internal/models"
)

// Scraper defines the basic behavior for a listing-site scraper.
type Scraper interface {
	// ScrapePage fetches one listing page and returns the records it
	// produced. Failures are reported through the PageResult outcome so
	// the run can carry on.
	ScrapePage(ctx context.Context, pageNum int) PageResult
}

// FieldOutcome says how extraction of one fragment went.
type FieldOutcome int

const (
	FieldsExtracted FieldOutcome = iota // every field came from the markup
	FieldsDegraded                      // placeholder title or default price used
	FieldsFailed                        // fragment abandoned
)

func (o FieldOutcome) String() string {
	switch o {
	case FieldsExtracted:
		return "extracted"
	case FieldsDegraded:
		return "degraded"
	case FieldsFailed:
		return "failed"
	default:
		return fmt.Sprintf("FieldOutcome(%d)", int(o))
	}
}

// FragmentOutcome says what happened to one listing card.
type FragmentOutcome int

const (
	Recorded FragmentOutcome = iota
	SkippedUnchanged
	ExtractionFailed
)

func (o FragmentOutcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case SkippedUnchanged:
		return "skipped-unchanged"
	case ExtractionFailed:
		return "extraction-failed"
	default:
		return fmt.Sprintf("FragmentOutcome(%d)", int(o))
	}
}

// PageOutcome says whether a page was processed.
type PageOutcome int

const (
	PageDone PageOutcome = iota
	PageFailed
)

func (o PageOutcome) String() string {
	if o == PageDone {
		return "done"
	}
	return "failed"
}

// FragmentResult describes one listing card on a page.
type FragmentResult struct {
	Index   int
	Title   string
	Price   float64
	Fields  FieldOutcome
	Outcome FragmentOutcome
	// Image is only meaningful when Outcome is Recorded.
	Image images.Outcome
	Err   error
}

// PageResult is everything ScrapePage learned about one page.
type PageResult struct {
	Page      int
	URL       string
	Products  []models.Product
	Fragments []FragmentResult
	Outcome   PageOutcome
	Err       error
}

// Count returns how many fragments ended with outcome o.
func (r PageResult) Count(o FragmentOutcome) int {
	n := 0
	for _, f := range r.Fragments {
		if f.Outcome == o {
			n++
		}
	}
	return n
}
