package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"ShopScraper/internal/cache"
	"ShopScraper/internal/database"
	"ShopScraper/internal/fetcher"
	"ShopScraper/internal/images"
	"ShopScraper/internal/models"
	"ShopScraper/internal/scraper"
	"ShopScraper/internal/scraper/shop"
	"ShopScraper/pkg/config"
	"ShopScraper/utils"
)

var (
	// ErrInvalidSettings is returned before any I/O when run settings are unusable.
	ErrInvalidSettings = errors.New("invalid scraper settings")
	// ErrSerialization is returned when the output file could not be written.
	ErrSerialization = errors.New("writing output file")
)

// App is the main application structure holding all dependencies.
type App struct {
	Config *config.Config
	// Repo records run history. It may be nil.
	Repo *database.DBRepository
	// Sleep is handed to the fetcher for its retry delay.
	Sleep fetcher.Sleeper

	mu           sync.Mutex
	processCache *cache.PriceCache
}

// Report is the full outcome of one run.
type Report struct {
	RunID    string
	Products []models.Product
	Pages    []scraper.PageResult
}

// New creates a new application instance. The run-history database is
// opened when cfg.Output.Database is set.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		Config:       cfg,
		Sleep:        fetcher.Sleep,
		processCache: cache.New(),
	}
	if cfg.Output.Database != "" {
		repo, err := database.InitDB(cfg.Output.Database)
		if err != nil {
			return nil, err
		}
		a.Repo = repo
	}
	return a, nil
}

// Close releases the database.
func (a *App) Close() {
	if a.Repo != nil {
		a.Repo.Close()
	}
}

// DefaultSettings returns run settings taken from the config file.
func (a *App) DefaultSettings() models.ScraperSettings {
	s := models.ScraperSettings{PagesToScrape: a.Config.Scraper.PagesToScrape}
	if a.Config.Scraper.Proxy != "" {
		proxy := a.Config.Scraper.Proxy
		s.Proxy = &proxy
	}
	return s
}

// Run scrapes pages 1..settings.PagesToScrape, overwrites the output file
// with everything collected and returns how many products that was.
func (a *App) Run(ctx context.Context, settings models.ScraperSettings) (int, error) {
	report, err := a.RunReport(ctx, settings)
	return len(report.Products), err
}

// RunReport is Run with the per-page detail kept.
func (a *App) RunReport(ctx context.Context, settings models.ScraperSettings) (Report, error) {
	if err := settings.Validate(); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	// One run at a time owns the cache, the images directory and the output file.
	a.mu.Lock()
	defer a.mu.Unlock()

	log.Println("--- Starting Product Scraping Task ---")

	s := shop.New(
		a.Config.Scraper.BaseURL,
		a.newFetcher(settings),
		images.New(images.Config{
			Dir:       a.Config.Images.Dir,
			Timeout:   a.Config.Images.Timeout,
			UserAgent: a.Config.Scraper.UserAgent,
		}),
		a.cacheForRun(),
		utils.GetOptimalWorkerCount(a.Config.Scraper.Workers),
	)

	report := Report{Products: []models.Product{}}
	report.RunID = a.startRun(settings)

	for pageNum := 1; pageNum <= settings.PagesToScrape; pageNum++ {
		if ctx.Err() != nil {
			break
		}
		res := s.ScrapePage(ctx, pageNum)
		report.Pages = append(report.Pages, res)
		report.Products = append(report.Products, res.Products...)
	}

	// A cancelled run keeps the previous output file.
	if err := ctx.Err(); err != nil {
		log.Printf("Scraping task cancelled after %d page(s): %v", len(report.Pages), err)
		a.finishRun(report.RunID, nil, database.RunFailed)
		return report, fmt.Errorf("scrape cancelled: %w", err)
	}
	log.Printf("Price cache holds %d titles", s.Cache.Len())

	if err := SaveToJSON(a.Config.Output.File, report.Products); err != nil {
		log.Printf("Failed to save products to %s: %v", a.Config.Output.File, err)
		a.finishRun(report.RunID, nil, database.RunFailed)
		return report, fmt.Errorf("%w %s: %v", ErrSerialization, a.Config.Output.File, err)
	}
	log.Printf("Scraped %d products and saved to %s.", len(report.Products), a.Config.Output.File)

	a.finishRun(report.RunID, report.Products, database.RunCompleted)
	log.Println("--- Product Scraping Task Finished ---")
	return report, nil
}

func (a *App) newFetcher(settings models.ScraperSettings) *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		Retries:           a.Config.Scraper.Retries,
		Delay:             a.Config.Scraper.RetryDelay,
		Timeout:           a.Config.Scraper.Timeout,
		UserAgent:         a.Config.Scraper.UserAgent,
		Proxy:             settings.ProxyURL(),
		RequestsPerSecond: a.Config.Scraper.RequestsPerSecond,
		Sleep:             a.Sleep,
	})
}

// cacheForRun returns a fresh cache for "run" scope and the shared one for "process" scope.
func (a *App) cacheForRun() *cache.PriceCache {
	if a.Config.Cache.Scope == config.CacheScopeProcess {
		return a.processCache
	}
	return cache.New()
}

// startRun and finishRun keep run history. Database trouble is logged and
// never fails the run.
func (a *App) startRun(settings models.ScraperSettings) string {
	if a.Repo == nil {
		return ""
	}
	runID, err := a.Repo.StartRun(settings, a.Config.Output.File)
	if err != nil {
		log.Printf("WARN: Could not record run start: %v", err)
		return ""
	}
	return runID
}

func (a *App) finishRun(runID string, products []models.Product, status string) {
	if a.Repo == nil || runID == "" {
		return
	}
	if status == database.RunCompleted {
		if err := a.Repo.SaveProducts(runID, products); err != nil {
			log.Printf("WARN: Could not save products for run %s: %v", runID, err)
			status = database.RunFailed
		}
	}
	if err := a.Repo.FinishRun(runID, len(products), status); err != nil {
		log.Printf("WARN: Could not record run finish for %s: %v", runID, err)
	}
}

// SaveToJSON writes products as an indented JSON array, replacing path.
func SaveToJSON(path string, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}
	data, err := json.MarshalIndent(products, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
