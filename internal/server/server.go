package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ShopScraper/internal/app"
	"ShopScraper/internal/database"
	"ShopScraper/internal/models"
	"ShopScraper/pkg/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Runner runs a scrape.
type Runner interface {
	Run(ctx context.Context, settings models.ScraperSettings) (int, error)
	DefaultSettings() models.ScraperSettings
}

// ProductStore serves products from the latest completed run.
type ProductStore interface {
	LatestRunID() (string, error)
	GetProducts(filters models.ProductFilters) ([]models.Product, error)
	CountProducts(runID string) (int, error)
}

// Start serves the trigger API until the listener fails.
func Start(a *app.App, cfg *config.Config) {
	if cfg.Server.ApiKey == "" {
		log.Fatalf("server.api_key must be set to start the API server")
	}

	var store ProductStore
	if a.Repo != nil {
		store = a.Repo
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(a, store, cfg.Server.ApiKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting API server on %s", cfg.Server.Addr)
	log.Printf("Endpoints: POST /scrape/, GET /products")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// NewRouter wires the API routes. Every route except /healthz requires
// "Authorization: Bearer <apiKey>". store may be nil.
func NewRouter(runner Runner, store ProductStore, apiKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(apiKey))
		r.Post("/scrape", scrapeHandler(runner))
		r.Post("/scrape/", scrapeHandler(runner))
		r.Get("/products", productsHandler(store))
	})
	return r
}

func requireBearer(apiKey string) func(http.Handler) http.Handler {
	expected := []byte("Bearer " + apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if apiKey == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Detail: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func scrapeHandler(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1. Start from configured defaults; the body overrides what it names.
		settings := runner.DefaultSettings()
		body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Detail: "could not read body"})
			return
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, &settings); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Detail: fmt.Sprintf("invalid settings: %v", err)})
				return
			}
		}

		// 2. Run to completion even if the caller goes away.
		count, err := runner.Run(context.WithoutCancel(r.Context()), settings)
		switch {
		case errors.Is(err, app.ErrInvalidSettings):
			writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Detail: err.Error()})
			return
		case err != nil:
			log.Printf("Scrape run failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, models.ScrapeResponse{
			Message: fmt.Sprintf("Scraped %d products and updated DB.", count),
		})
	}
}

func productsHandler(store ProductStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Detail: "run history is disabled"})
			return
		}

		// 1. Parse Pagination Parameters
		queryParams := r.URL.Query()
		page, _ := strconv.Atoi(queryParams.Get("page"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(queryParams.Get("limit"))
		if limit < 1 {
			limit = 20
		}
		offset := (page - 1) * limit

		// 2. Find the latest completed run
		runID, err := store.LatestRunID()
		if errors.Is(err, database.ErrNoRuns) {
			writeJSON(w, http.StatusOK, models.ProductsResponse{
				Data:       []models.Product{},
				Pagination: models.Pagination{TotalPages: 0, CurrentPage: page},
			})
			return
		}
		if err != nil {
			http.Error(w, "Failed to find latest run", http.StatusInternalServerError)
			return
		}

		// 3. Get Total Count for Pagination
		totalProducts, err := store.CountProducts(runID)
		if err != nil {
			http.Error(w, "Failed to count products", http.StatusInternalServerError)
			return
		}
		totalPages := int(math.Ceil(float64(totalProducts) / float64(limit)))

		// 4. Get Paginated Products
		products, err := store.GetProducts(models.ProductFilters{RunID: runID, Limit: limit, Offset: offset})
		if err != nil {
			http.Error(w, "Failed to get products", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, models.ProductsResponse{
			Data: products,
			Pagination: models.Pagination{
				TotalPages:  totalPages,
				CurrentPage: page,
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
