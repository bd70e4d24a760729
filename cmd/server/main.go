package main

import (
	"flag"
	"log"

	"ShopScraper/internal/app"
	"ShopScraper/internal/server"
	"ShopScraper/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Error initializing app: %v", err)
	}
	defer application.Close()

	log.Println("Starting scrape API server...")
	server.Start(application, cfg)
}
