package utils

import (
	"log"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	maxImageWorkers      = 16
	fallbackImageWorkers = 2
)

// cpuCounts is swapped out in tests.
var cpuCounts = cpu.Counts

// GetOptimalWorkerCount turns the scraper.workers setting into a size for the
// image download pool. A positive number is used as is; "auto" (or anything
// unreadable) sizes the pool from the logical core count, capped at 16.
func GetOptimalWorkerCount(setting string) int {
	setting = strings.TrimSpace(setting)
	if n, err := strconv.Atoi(setting); err == nil && n > 0 {
		return n
	}
	if !strings.EqualFold(setting, "auto") {
		log.Printf("WARN: Invalid workers value '%s'. Sizing image workers automatically.", setting)
	}

	cores, err := cpuCounts(true)
	if err != nil || cores < 1 {
		log.Printf("WARN: Could not detect CPU cores (%v). Using %d image workers.", err, fallbackImageWorkers)
		return fallbackImageWorkers
	}
	workers := min(cores, maxImageWorkers)
	log.Printf("Detected %d logical cores, using %d image workers", cores, workers)
	return workers
}
