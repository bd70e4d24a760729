package models

import "fmt"

// UnknownTitle stands in for a product whose title could not be extracted.
const UnknownTitle = "Unknown Product"

// Product is one scraped listing as written to the output file.
type Product struct {
	Title       string  `json:"product_title"`
	Price       float64 `json:"product_price"`
	PathToImage *string `json:"path_to_image"`
}

// NewProduct builds a Product, copying the image path so later edits by the
// caller cannot reach the record.
func NewProduct(title string, price float64, imagePath *string) Product {
	p := Product{Title: title, Price: price}
	if imagePath != nil {
		path := *imagePath
		p.PathToImage = &path
	}
	return p
}

// ScraperSettings is the per-run configuration supplied by the caller.
type ScraperSettings struct {
	PagesToScrape int     `json:"pages_to_scrape"`
	Proxy         *string `json:"proxy"`
}

// ProxyURL returns the configured proxy or "".
func (s ScraperSettings) ProxyURL() string {
	if s.Proxy == nil {
		return ""
	}
	return *s.Proxy
}

// Validate checks the settings before any network I/O happens.
func (s ScraperSettings) Validate() error {
	if s.PagesToScrape < 1 {
		return fmt.Errorf("pages_to_scrape must be a positive integer, got %d", s.PagesToScrape)
	}
	return nil
}

// ProductFilters holds the pagination parameters for listing stored products.
type ProductFilters struct {
	RunID  string
	Limit  int
	Offset int
}
