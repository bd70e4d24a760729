package shop

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"ShopScraper/internal/cache"
	"ShopScraper/internal/fetcher"
	"ShopScraper/internal/images"
	"ShopScraper/internal/models"
	"ShopScraper/internal/scraper"
	"ShopScraper/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://shop.example.com/shop/page/"

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetcher.Page, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return &fetcher.Page{URL: url, StatusCode: 200, Body: []byte(listingHTML())}, nil
	}
	return &fetcher.Page{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

type fakeAcquirer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (a *fakeAcquirer) Acquire(_ context.Context, imageURL *string, title string) images.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, *imageURL)
	if a.fail[*imageURL] {
		return images.Result{Outcome: images.Failed, Err: &images.ImageError{URL: *imageURL, Title: title, StatusCode: 500}}
	}
	if images.IsInline(*imageURL) {
		return images.Result{Outcome: images.Skipped}
	}
	path := filepath.Join("images", utils.SanitizeFilename(title))
	return images.Result{Path: &path, Outcome: images.Downloaded}
}

func strPtr(s string) *string { return &s }

func newTestScraper(pages map[string]string, acq *fakeAcquirer, workers int) *ShopScraper {
	return New(testBaseURL, &fakeFetcher{pages: pages}, acq, cache.New(), workers)
}

func TestPageURL(t *testing.T) {
	s := New("https://shop.example.com/shop/page", nil, nil, cache.New(), 0)
	assert.Equal(t, "https://shop.example.com/shop/page/3/", s.PageURL(3))
	assert.Equal(t, 1, s.Workers)
}

func TestScrapePageWidgetAndUnknown(t *testing.T) {
	acq := &fakeAcquirer{}
	s := newTestScraper(map[string]string{
		testBaseURL + "1/": listingHTML(
			cardHTML("Widget", "₹1,200", "https://cdn.example.com/widget.jpg"),
			cardHTML("", "", ""),
		),
	}, acq, 1)

	res := s.ScrapePage(context.Background(), 1)
	require.Equal(t, scraper.PageDone, res.Outcome)
	require.NoError(t, res.Err)

	want := []models.Product{
		{Title: "Widget", Price: 1200, PathToImage: strPtr("images/Widget.jpg")},
		{Title: models.UnknownTitle, Price: 0, PathToImage: nil},
	}
	if diff := cmp.Diff(want, res.Products); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"https://cdn.example.com/widget.jpg"}, acq.calls)
	assert.Equal(t, scraper.FieldsDegraded, res.Fragments[1].Fields)
	assert.Equal(t, images.Skipped, res.Fragments[1].Image)
}

func TestScrapePageSkipsUnchangedPrice(t *testing.T) {
	acq := &fakeAcquirer{}
	card := cardHTML("Widget", "₹1,200", "https://cdn.example.com/widget.jpg")
	s := newTestScraper(map[string]string{
		testBaseURL + "1/": listingHTML(card),
		testBaseURL + "2/": listingHTML(card),
	}, acq, 1)

	first := s.ScrapePage(context.Background(), 1)
	second := s.ScrapePage(context.Background(), 2)

	assert.Len(t, first.Products, 1)
	assert.Empty(t, second.Products)
	assert.Equal(t, scraper.SkippedUnchanged, second.Fragments[0].Outcome)
	assert.Len(t, acq.calls, 1, "image downloaded once")
}

func TestScrapePageRecordsChangedPrice(t *testing.T) {
	acq := &fakeAcquirer{}
	s := newTestScraper(map[string]string{
		testBaseURL + "1/": listingHTML(cardHTML("Widget", "₹1,200", "https://cdn.example.com/widget.jpg")),
		testBaseURL + "2/": listingHTML(cardHTML("Widget", "₹999", "https://cdn.example.com/widget.jpg")),
	}, acq, 1)

	first := s.ScrapePage(context.Background(), 1)
	second := s.ScrapePage(context.Background(), 2)

	require.Len(t, first.Products, 1)
	require.Len(t, second.Products, 1)
	assert.Equal(t, 999.0, second.Products[0].Price)
	assert.Len(t, acq.calls, 2)

	price, ok := s.Cache.Lookup("Widget")
	require.True(t, ok)
	assert.Equal(t, 999.0, price)
}

func TestScrapePageDuplicateWithinPage(t *testing.T) {
	acq := &fakeAcquirer{}
	s := newTestScraper(map[string]string{
		testBaseURL + "1/": listingHTML(
			cardHTML("Widget", "₹1,200", "https://cdn.example.com/a.jpg"),
			cardHTML("Widget", "₹1,200", "https://cdn.example.com/b.jpg"),
		),
	}, acq, 4)

	res := s.ScrapePage(context.Background(), 1)
	require.Len(t, res.Products, 1)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, acq.calls)
	assert.Equal(t, scraper.SkippedUnchanged, res.Fragments[1].Outcome)
}

func TestScrapePageFetchFailure(t *testing.T) {
	acq := &fakeAcquirer{}
	fetchErr := &fetcher.FetchError{URL: testBaseURL + "1/", Attempts: 3, Err: errors.New("boom")}
	s := New(testBaseURL, &fakeFetcher{errs: map[string]error{testBaseURL + "1/": fetchErr}}, acq, cache.New(), 1)

	res := s.ScrapePage(context.Background(), 1)
	assert.Equal(t, scraper.PageFailed, res.Outcome)
	assert.Empty(t, res.Products)

	var fe *fetcher.FetchError
	assert.ErrorAs(t, res.Err, &fe)
	assert.Empty(t, acq.calls)
}

func TestScrapePageImageFailureKeepsProduct(t *testing.T) {
	acq := &fakeAcquirer{fail: map[string]bool{"https://cdn.example.com/broken.jpg": true}}
	s := newTestScraper(map[string]string{
		testBaseURL + "1/": listingHTML(cardHTML("Broken", "₹10", "https://cdn.example.com/broken.jpg")),
	}, acq, 1)

	res := s.ScrapePage(context.Background(), 1)
	require.Len(t, res.Products, 1)
	assert.Nil(t, res.Products[0].PathToImage)
	assert.Equal(t, images.Failed, res.Fragments[0].Image)
	assert.Error(t, res.Fragments[0].Err)
}

func TestScrapePageSkipsSVGPlaceholderAndResolvesRelative(t *testing.T) {
	acq := &fakeAcquirer{}
	s := newTestScraper(map[string]string{
		testBaseURL + "1/": listingHTML(
			cardHTML("Placeholder", "₹10", "data:image/svg+xml,%3Csvg%3E"),
			cardHTML("Relative", "₹20", "/wp-content/uploads/relative.jpg"),
		),
	}, acq, 1)

	res := s.ScrapePage(context.Background(), 1)
	require.Len(t, res.Products, 2)
	assert.Nil(t, res.Products[0].PathToImage)
	assert.Equal(t, []string{"https://shop.example.com/wp-content/uploads/relative.jpg"}, acq.calls)
}

func TestScrapePageKeepsListingOrderWithWorkers(t *testing.T) {
	acq := &fakeAcquirer{}
	var cards []string
	var titles []string
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		cards = append(cards, cardHTML(title, "₹1", "https://cdn.example.com/"+title+".jpg"))
		titles = append(titles, title)
	}
	s := newTestScraper(map[string]string{testBaseURL + "1/": listingHTML(cards...)}, acq, 3)

	res := s.ScrapePage(context.Background(), 1)
	require.Len(t, res.Products, len(titles))
	for i, p := range res.Products {
		assert.Equal(t, titles[i], p.Title)
		require.NotNil(t, p.PathToImage)
		assert.Equal(t, "images/"+titles[i]+".jpg", *p.PathToImage)
	}
	assert.Len(t, acq.calls, len(titles))
}

func TestScrapePageEmptyListing(t *testing.T) {
	s := newTestScraper(nil, &fakeAcquirer{}, 1)
	res := s.ScrapePage(context.Background(), 7)
	assert.Equal(t, scraper.PageDone, res.Outcome)
	assert.Empty(t, res.Products)
	assert.Empty(t, res.Fragments)
}
