// Package models defines data structures for the scraper.
package models

import "time"

// Product is one fully extracted product detail page.
type Product struct {
	Name          string    `csv:"name" json:"name"`
	Country       string    `csv:"country" json:"country"`
	Article       string    `csv:"article" json:"article"`
	Color         string    `csv:"color" json:"color"`
	Type          string    `csv:"type" json:"type"`
	UpperMaterial string    `csv:"upper_material" json:"upper_material"`
	Size          string    `csv:"size" json:"size"`
	Season        string    `csv:"season" json:"season"`
	Price         int       `csv:"price" json:"price"`
	URL           string    `csv:"url" json:"url"`
	ScrapedAt     time.Time `csv:"scraped_at" json:"scraped_at"`
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	RunID        string
	Query        string
	StartTime    time.Time
	EndTime      time.Time
	LastPage     int
	PageCount    int
	URLCount     int
	RequestCount int
	ErrorCount   int
	SkippedLinks int
	ErrorsByType map[string]int
}
