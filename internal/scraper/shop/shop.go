// Package shop scrapes the paginated WooCommerce shop listing.
package shop

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"ShopScraper/internal/cache"
	"ShopScraper/internal/fetcher"
	"ShopScraper/internal/images"
	"ShopScraper/internal/models"
	"ShopScraper/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

// svgPlaceholderPrefix is the lazy-load placeholder the shop serves before
// the real thumbnail loads.
const svgPlaceholderPrefix = "data:image/svg+xml"

// PageFetcher retrieves a listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// ImageAcquirer stores a product image locally.
type ImageAcquirer interface {
	Acquire(ctx context.Context, imageURL *string, title string) images.Result
}

// ShopScraper drives single listing pages: fetch, extract, consult the
// price cache, download images for new or changed products.
type ShopScraper struct {
	BaseURL string
	Fetcher PageFetcher
	Images  ImageAcquirer
	Cache   *cache.PriceCache
	// Workers bounds concurrent image downloads within a page.
	Workers int
}

var _ scraper.Scraper = (*ShopScraper)(nil)

// New creates a ShopScraper. baseURL is the listing prefix that page
// numbers are appended to, e.g. "https://example.com/shop/page/".
func New(baseURL string, f PageFetcher, img ImageAcquirer, c *cache.PriceCache, workers int) *ShopScraper {
	if workers < 1 {
		workers = 1
	}
	return &ShopScraper{
		BaseURL: baseURL,
		Fetcher: f,
		Images:  img,
		Cache:   c,
		Workers: workers,
	}
}

// PageURL returns the URL of listing page n.
func (s *ShopScraper) PageURL(n int) string {
	base := s.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s%d/", base, n)
}

type imageJob struct {
	index int
	url   *string
	title string
}

type imageResult struct {
	index  int
	result images.Result
}

// ScrapePage processes one listing page.
func (s *ShopScraper) ScrapePage(ctx context.Context, pageNum int) scraper.PageResult {
	pageURL := s.PageURL(pageNum)
	result := scraper.PageResult{Page: pageNum, URL: pageURL}
	log.Printf("Scraping page %d...", pageNum)

	page, err := s.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.Printf("Error scraping page %d: %v", pageNum, err)
		result.Outcome = scraper.PageFailed
		result.Err = err
		return result
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		log.Printf("Error parsing page %d: %v", pageNum, err)
		result.Outcome = scraper.PageFailed
		result.Err = fmt.Errorf("parse %s: %w", pageURL, err)
		return result
	}

	cards := doc.Find(CardSelector)
	result.Fragments = make([]scraper.FragmentResult, cards.Length())

	// Cache decisions are made in listing order before any download starts.
	var jobs []imageJob
	cards.Each(func(i int, card *goquery.Selection) {
		ex := Extract(card)
		frag := &result.Fragments[i]
		*frag = scraper.FragmentResult{Index: i, Title: ex.Title, Price: ex.Price, Fields: ex.Outcome}

		if ex.Outcome == scraper.FieldsFailed {
			frag.Outcome = scraper.ExtractionFailed
			frag.Err = ex.Err
			return
		}
		if !s.Cache.Observe(ex.Title, ex.Price) {
			log.Printf("Skipping %s (price not changed)", ex.Title)
			frag.Outcome = scraper.SkippedUnchanged
			return
		}

		frag.Outcome = scraper.Recorded
		imageURL := resolveImageURL(pageURL, ex.ImageURL)
		if imageURL == nil {
			frag.Image = images.Skipped
			return
		}
		jobs = append(jobs, imageJob{index: i, url: imageURL, title: ex.Title})
	})

	paths := make(map[int]*string, len(jobs))
	for _, r := range s.acquireImages(ctx, jobs) {
		result.Fragments[r.index].Image = r.result.Outcome
		if r.result.Err != nil && r.result.Outcome == images.Failed {
			result.Fragments[r.index].Err = r.result.Err
		}
		paths[r.index] = r.result.Path
	}

	for i, frag := range result.Fragments {
		if frag.Outcome != scraper.Recorded {
			continue
		}
		result.Products = append(result.Products, models.NewProduct(frag.Title, frag.Price, paths[i]))
	}

	log.Printf("Page %d: %d recorded, %d unchanged, %d failed", pageNum,
		result.Count(scraper.Recorded), result.Count(scraper.SkippedUnchanged), result.Count(scraper.ExtractionFailed))
	result.Outcome = scraper.PageDone
	return result
}

// acquireImages downloads images with at most s.Workers in flight.
func (s *ShopScraper) acquireImages(ctx context.Context, jobs []imageJob) []imageResult {
	if len(jobs) == 0 {
		return nil
	}
	numWorkers := s.Workers
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	jobCh := make(chan imageJob, len(jobs))
	results := make(chan imageResult, len(jobs))

	for w := 1; w <= numWorkers; w++ {
		go func() {
			for job := range jobCh {
				results <- imageResult{index: job.index, result: s.Images.Acquire(ctx, job.url, job.title)}
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	collected := make([]imageResult, 0, len(jobs))
	for i := 0; i < len(jobs); i++ {
		collected = append(collected, <-results)
	}
	return collected
}

// resolveImageURL drops the shop's SVG placeholder and makes relative
// image URLs absolute.
func resolveImageURL(pageURL string, imageURL *string) *string {
	if imageURL == nil {
		return nil
	}
	raw := *imageURL
	if strings.HasPrefix(raw, svgPlaceholderPrefix) {
		log.Printf("Skipping placeholder image: %.40s", raw)
		return nil
	}
	if images.IsInline(raw) {
		return &raw
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return &raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return &raw
	}
	resolved := base.ResolveReference(ref).String()
	return &resolved
}
