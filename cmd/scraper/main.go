package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ShopScraper/internal/app"
	"ShopScraper/internal/server"
	"ShopScraper/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Scrapes the shop listing into scraped_products.json and images/.",
	// main logs the error.
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	pages      int
	proxy      string
	printTable bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Runs one scrape over the configured number of listing pages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cfg, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		settings := application.DefaultSettings()
		if cmd.Flags().Changed("pages") {
			settings.PagesToScrape = pages
		}
		if cmd.Flags().Changed("proxy") {
			settings.Proxy = &proxy
			if proxy == "" {
				settings.Proxy = nil
			}
		}

		report, err := application.RunReport(cmd.Context(), settings)
		if printTable {
			printReport(os.Stdout, report)
		}
		if err != nil {
			return err
		}
		log.Printf("Task finished. Scraped %d products into %s.", len(report.Products), cfg.Output.File)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API that triggers scrapes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cfg, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		server.Start(application, cfg)
		return nil
	},
}

func newApp() (*app.App, *config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	application, err := app.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return application, cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yml", "path to the YAML config file")

	scrapeCmd.Flags().IntVar(&pages, "pages", 5, "number of listing pages to scrape (overrides config)")
	scrapeCmd.Flags().StringVar(&proxy, "proxy", "", "proxy URL for listing requests (overrides config)")
	scrapeCmd.Flags().BoolVar(&printTable, "table", false, "print a per-page summary table")

	rootCmd.AddCommand(scrapeCmd, serveCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
