package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"ShopScraper/internal/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrNoRuns is returned when no run has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

// DBRepository keeps the history of scrape runs and the products each run produced.
// It is never read back into the price cache.
type DBRepository struct {
	DB *sql.DB
}

// InitDB opens (or creates) the sqlite file at filepath and ensures the schema exists.
func InitDB(filepath string) (*DBRepository, error) {
	db, err := sql.Open("sqlite", filepath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time keeps sqlite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	createRunsTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		"id" TEXT NOT NULL PRIMARY KEY,
		"started_at" TEXT NOT NULL,
		"finished_at" TEXT,
		"pages" INTEGER NOT NULL,
		"proxy" TEXT,
		"product_count" INTEGER DEFAULT 0,
		"output_file" TEXT,
		"status" TEXT DEFAULT 'running'
	);`
	if _, err = db.Exec(createRunsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	createProductsTableSQL := `
	CREATE TABLE IF NOT EXISTS products (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"run_id" TEXT NOT NULL REFERENCES runs(id),
		"position" INTEGER NOT NULL,
		"product_title" TEXT NOT NULL,
		"product_price" REAL NOT NULL,
		"path_to_image" TEXT,
		"scraped_at" TEXT NOT NULL
	);`
	if _, err = db.Exec(createProductsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating products table: %w", err)
	}
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS products_run_id ON products(run_id, position);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating products index: %w", err)
	}

	log.Println("Database and tables initialized successfully.")
	return &DBRepository{DB: db}, nil
}

// Close closes the database connection.
func (repo *DBRepository) Close() {
	repo.DB.Close()
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// StartRun records the beginning of a run and returns its id.
func (repo *DBRepository) StartRun(settings models.ScraperSettings, outputFile string) (string, error) {
	id := uuid.NewString()
	var proxy sql.NullString
	if settings.Proxy != nil {
		proxy = sql.NullString{String: *settings.Proxy, Valid: true}
	}
	_, err := repo.DB.Exec(
		`INSERT INTO runs (id, started_at, pages, proxy, output_file, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, now(), settings.PagesToScrape, proxy, outputFile, RunRunning,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// SaveProducts stores a run's products in order, in one transaction.
func (repo *DBRepository) SaveProducts(runID string, products []models.Product) error {
	tx, err := repo.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT INTO products (run_id, position, product_title, product_price, path_to_image, scraped_at)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	scrapedAt := now()
	for i, p := range products {
		var path sql.NullString
		if p.PathToImage != nil {
			path = sql.NullString{String: *p.PathToImage, Valid: true}
		}
		if _, err := stmt.Exec(runID, i, p.Title, p.Price, path, scrapedAt); err != nil {
			return fmt.Errorf("saving product %q: %w", p.Title, err)
		}
	}
	return tx.Commit()
}

// FinishRun stamps a run with its final status and product count.
func (repo *DBRepository) FinishRun(runID string, productCount int, status string) error {
	res, err := repo.DB.Exec(
		`UPDATE runs SET finished_at = ?, product_count = ?, status = ? WHERE id = ?`,
		now(), productCount, status, runID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// LatestRunID returns the id of the most recently finished run.
func (repo *DBRepository) LatestRunID() (string, error) {
	var id string
	err := repo.DB.QueryRow(`
		SELECT id FROM runs
		WHERE status = ?
		ORDER BY finished_at DESC, rowid DESC
		LIMIT 1`, RunCompleted).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	return id, err
}

// GetProducts retrieves a page of products from filters.RunID in listing order.
func (repo *DBRepository) GetProducts(filters models.ProductFilters) ([]models.Product, error) {
	query := `SELECT product_title, product_price, path_to_image FROM products WHERE run_id = ? ORDER BY position`
	args := []interface{}{filters.RunID}
	if filters.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := repo.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute products query: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var (
			title string
			price float64
			path  sql.NullString
		)
		if err := rows.Scan(&title, &price, &path); err != nil {
			log.Printf("Error scanning product row: %v", err)
			continue
		}
		var imagePath *string
		if path.Valid {
			imagePath = &path.String
		}
		products = append(products, models.NewProduct(title, price, imagePath))
	}
	return products, rows.Err()
}

// CountProducts returns the number of products stored for runID.
func (repo *DBRepository) CountProducts(runID string) (int, error) {
	var count int
	err := repo.DB.QueryRow("SELECT COUNT(*) FROM products WHERE run_id = ?", runID).Scan(&count)
	return count, err
}
