// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes ranking results to their distributable formats:
// pretty-printed JSON with full category breakdowns, and a flat CSV for
// spreadsheets.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ovasilev/powerchart/pkg/types"
)

// WriteRankingsJSON writes results as indented JSON to path, atomically.
func WriteRankingsJSON(path string, results types.RankingResults) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing rankings: %w", err)
	}
	return writeAtomic(path, data)
}

// WriteRankingsCSV writes results as CSV to path, atomically. Columns:
// rank, identifier, artist, title, year, final_score, then one score column
// per category in the breakdown's order.
func WriteRankingsCSV(path string, results types.RankingResults) error {
	var categories []string
	if len(results.Rankings) > 0 {
		for _, cs := range results.Rankings[0].CategoryScores {
			categories = append(categories, cs.Category)
		}
	}

	header := []string{"rank", "identifier", "artist", "title", "year", "final_score"}
	header = append(header, categories...)

	rows := [][]string{header}
	for _, r := range results.Rankings {
		row := []string{
			strconv.Itoa(r.Rank),
			r.Track.Identifier(),
			r.Track.AllArtists(),
			r.Track.Title,
			strconv.Itoa(r.Track.Year),
			formatScore(r.FinalScore),
		}
		byCategory := make(map[string]float64, len(r.CategoryScores))
		for _, cs := range r.CategoryScores {
			byCategory[cs.Category] = cs.RawScore
		}
		for _, c := range categories {
			row = append(row, formatScore(byCategory[c]))
		}
		rows = append(rows, row)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating CSV temp file: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing CSV rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing CSV temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing CSV %s: %w", filepath.Base(path), err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
