// Package report summarizes the collected radar imagery on disk and
// prunes frames past their useful age.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

var imageExtensions = map[string]bool{".gif": true, ".png": true}

// ProductSummary describes one product directory's holdings.
type ProductSummary struct {
	Product    string
	LatestFile string
	Newest     time.Time
	Oldest     time.Time
	Files      int
	TotalBytes int64
}

// Summary is the whole collection: one entry per product directory,
// sorted by product name.
type Summary struct {
	Products   []ProductSummary
	Files      int
	TotalBytes int64
}

// Analyze walks every product directory under root and tallies image
// files. Directories without images are omitted.
func Analyze(root string) (Summary, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Summary{}, fmt.Errorf("reading %s: %w", root, err)
	}

	var summary Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ps, err := analyzeProduct(filepath.Join(root, entry.Name()), entry.Name())
		if err != nil {
			return Summary{}, err
		}
		if ps.Files == 0 {
			continue
		}
		summary.Products = append(summary.Products, ps)
		summary.Files += ps.Files
		summary.TotalBytes += ps.TotalBytes
	}
	sort.Slice(summary.Products, func(i, j int) bool {
		return summary.Products[i].Product < summary.Products[j].Product
	})
	return summary, nil
}

func analyzeProduct(dir, product string) (ProductSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ProductSummary{}, fmt.Errorf("reading %s: %w", dir, err)
	}

	ps := ProductSummary{Product: product}
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime()
		if ps.Files == 0 || mtime.After(ps.Newest) {
			ps.Newest = mtime
			ps.LatestFile = entry.Name()
		}
		if ps.Files == 0 || mtime.Before(ps.Oldest) {
			ps.Oldest = mtime
		}
		ps.Files++
		ps.TotalBytes += info.Size()
	}
	return ps, nil
}

// Render formats a Summary for terminal output.
func Render(s Summary) string {
	var out strings.Builder

	header := color.New(color.Bold)
	out.WriteString(header.Sprint("Radar Collection Report") + "\n")
	out.WriteString(strings.Repeat("─", 50) + "\n")
	out.WriteString(fmt.Sprintf("Total files:   %d\n", s.Files))
	out.WriteString(fmt.Sprintf("Total storage: %s\n", FormatSize(s.TotalBytes)))
	out.WriteString(fmt.Sprintf("Products:      %d\n", len(s.Products)))

	for _, ps := range s.Products {
		out.WriteString("\n")
		out.WriteString(color.New(color.FgBlue).Sprintf("%s", strings.ToUpper(ps.Product)) + "\n")
		out.WriteString(fmt.Sprintf("  files:  %d\n", ps.Files))
		out.WriteString(fmt.Sprintf("  size:   %s\n", FormatSize(ps.TotalBytes)))
		out.WriteString(fmt.Sprintf("  newest: %s (%s)\n", ps.Newest.Format("2006-01-02 15:04"), ps.LatestFile))
		out.WriteString(fmt.Sprintf("  oldest: %s\n", ps.Oldest.Format("2006-01-02 15:04")))
	}
	return out.String()
}

// FormatSize renders a byte count in human units.
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", size)
}

// CleanupResult reports what a cleanup pass removed.
type CleanupResult struct {
	Removed    int
	BytesFreed int64
}

// Cleanup removes image files under root older than keep, judged by
// modification time. Unremovable files are skipped.
func Cleanup(root string, keep time.Duration, now time.Time) (CleanupResult, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("reading %s: %w", root, err)
	}
	cutoff := now.Add(-keep)

	var result CleanupResult
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
				continue
			}
			info, err := file.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, file.Name())
			if err := os.Remove(path); err != nil {
				continue
			}
			result.Removed++
			result.BytesFreed += info.Size()
		}
	}
	return result, nil
}
