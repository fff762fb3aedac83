// Package main provides a tool to seed the database with sample library data.
//
// It creates a handful of series and items with cached track lists and some
// listening progress, for manually testing the API and the app against a
// populated library.
//
// Usage:
//
//	STORAGE_PATH=~/Hoerspiel/data go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/id"
	"github.com/hoerspielapp/hoerspiel-server/internal/store"
)

var wipe = flag.Bool("wipe", false, "Delete existing items and series first")

type seedEpisode struct {
	title    string
	upc      string
	year     int
	episode  int
	chapters int
}

func main() {
	flag.Parse()

	basePath := os.Getenv("STORAGE_PATH")
	if basePath == "" {
		basePath = os.ExpandEnv("$HOME/Hoerspiel/data")
	}
	dbPath := filepath.Join(basePath, "db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *wipe {
		wipeLibrary(ctx, s)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	seriesItems := map[string][]seedEpisode{
		"Die drei ???": {
			{title: "Folge 1: Der Super-Papagei", upc: "886445123401", year: 1979, episode: 1, chapters: 8},
			{title: "Folge 3: Der Karpatenhund", upc: "886445123403", year: 1979, episode: 3, chapters: 7},
			{title: "Folge 100: Toteninsel", upc: "886445123500", year: 2001, episode: 100, chapters: 12},
		},
		"Die drei ??? Kids": {
			{title: "Folge 1: Panik im Paradies", upc: "886445200001", year: 1999, episode: 1, chapters: 6},
		},
		"TKKG": {
			{title: "Folge 1: Die Jagd nach den Millionendieben", upc: "886445300001", year: 1981, episode: 1, chapters: 9},
		},
	}

	for seriesName, episodes := range seriesItems {
		series, err := ensureSeries(ctx, s, seriesName)
		if err != nil {
			log.Fatalf("Failed to create series %q: %v", seriesName, err)
		}

		for _, ep := range episodes {
			if _, err := s.GetItemByUPC(ctx, ep.upc); err == nil {
				fmt.Printf("  Skipping %q, already in library\n", ep.title)
				continue
			}

			item, tracks := buildItem(series, ep, rng)
			if err := s.CreateItem(ctx, item); err != nil {
				log.Fatalf("Failed to create item %q: %v", ep.title, err)
			}
			if err := s.SetTracks(ctx, item.ID, tracks); err != nil {
				log.Fatalf("Failed to cache tracks for %q: %v", ep.title, err)
			}

			series.ItemCount++
			fmt.Printf("  Created %q (%d tracks, %.0fs)\n", ep.title, len(tracks), item.DurationSeconds)
		}

		series.Touch()
		if err := s.UpdateSeries(ctx, series); err != nil {
			log.Fatalf("Failed to update series %q: %v", seriesName, err)
		}
	}

	// Sprinkle some listening state over the library.
	items, err := s.ListItems(ctx)
	if err != nil {
		log.Fatalf("Failed to list items: %v", err)
	}
	for i, item := range items {
		switch i % 3 {
		case 0:
			// In progress, somewhere in the middle.
			offset := int(item.DurationSeconds * (0.2 + rng.Float64()*0.5))
			if _, err := s.ApplyProgress(ctx, item.ID, store.ProgressUpdate{
				PlayedUpToSeconds: offset,
				PlayedAt:          time.Now().Add(-time.Duration(rng.Intn(72)) * time.Hour),
			}); err != nil {
				log.Fatalf("Failed to apply progress: %v", err)
			}
		case 1:
			if err := s.SetUpNext(ctx, item.ID, true, time.Now()); err != nil {
				log.Fatalf("Failed to set up next: %v", err)
			}
		}
	}

	fmt.Printf("\nSeeded %d items\n", len(items))
}

func ensureSeries(ctx context.Context, s *store.Store, name string) (*domain.Series, error) {
	if series, err := s.GetSeriesByName(ctx, name); err == nil {
		return series, nil
	}

	series := &domain.Series{Name: name}
	series.ID = id.MustGenerate("ser")
	series.InitTimestamps()
	if err := s.CreateSeries(ctx, series); err != nil {
		return nil, err
	}
	fmt.Printf("Created series %q\n", name)
	return series, nil
}

func buildItem(series *domain.Series, ep seedEpisode, rng *rand.Rand) (*domain.Item, []domain.Track) {
	tracks := make([]domain.Track, 0, ep.chapters+1)
	tracks = append(tracks, domain.Track{
		Title:      "Inhaltsangabe",
		Duration:   45 + rng.Float64()*30,
		CatalogRef: fmt.Sprintf("seed-%s-0", ep.upc),
		Index:      0,
		Role:       domain.TrackRoleRecap,
	})
	for c := 1; c <= ep.chapters; c++ {
		tracks = append(tracks, domain.Track{
			Title:      fmt.Sprintf("Teil %d", c),
			Duration:   240 + rng.Float64()*240,
			CatalogRef: fmt.Sprintf("seed-%s-%d", ep.upc, c),
			Index:      c,
			Role:       domain.TrackRoleChapter,
		})
	}

	item := &domain.Item{
		Title:           fmt.Sprintf("%s %s", series.Name, ep.title),
		Artist:          series.Name,
		UPC:             ep.upc,
		ReleaseDate:     time.Date(ep.year, time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC),
		SeriesID:        series.ID,
		SeriesName:      series.Name,
		DurationSeconds: domain.TotalDuration(tracks),
	}
	item.ID = id.MustGenerate("itm")
	item.InitTimestamps()

	return item, tracks
}

func wipeLibrary(ctx context.Context, s *store.Store) {
	items, err := s.ListItems(ctx)
	if err != nil {
		log.Fatalf("Failed to list items: %v", err)
	}
	for _, item := range items {
		if err := s.DeleteItem(ctx, item.ID); err != nil {
			log.Fatalf("Failed to delete item %s: %v", item.ID, err)
		}
	}
	series, err := s.ListSeries(ctx)
	if err != nil {
		log.Fatalf("Failed to list series: %v", err)
	}
	for _, sr := range series {
		if err := s.DeleteSeries(ctx, sr.ID); err != nil {
			log.Fatalf("Failed to delete series %s: %v", sr.ID, err)
		}
	}
	fmt.Printf("Wiped %d items and %d series\n", len(items), len(series))
}
