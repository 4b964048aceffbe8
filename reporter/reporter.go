// Package reporter orders score records and prints them for humans.
package reporter

import (
	"fmt"
	"io"
	"sort"

	"imagerank/types"

	"github.com/kr/pretty"
)

// Sort returns the records ordered by ascending score. Equal scores keep
// their insertion order. The input is not modified.
func Sort(records []types.ScoreRecord) []types.ScoreRecord {
	sorted := make([]types.ScoreRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score < sorted[j].Score
	})
	return sorted
}

// Print sorts the records and writes them as one pretty-printed list
func Print(w io.Writer, records []types.ScoreRecord) error {
	_, err := pretty.Fprintf(w, "%# v\n", Sort(records))
	return err
}

// PrintMatches writes the first limit hash matches, or all when limit is 0
func PrintMatches(w io.Writer, matches []types.HashMatch, limit int) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "No matches found.")
		return err
	}

	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}
	for i, m := range matches[:limit] {
		if _, err := fmt.Fprintf(w, "%d. Image: %s\n", i+1, m.FileName); err != nil {
			return err
		}
		if m.MBID != "" {
			fmt.Fprintf(w, "   MBID: %s\n", m.MBID)
		}
		if m.Folder != "" {
			fmt.Fprintf(w, "   Folder: %s\n", m.Folder)
		}
		fmt.Fprintf(w, "   pHash Distance: %d\n", m.PHashDistance)
		fmt.Fprintf(w, "   dHash Distance: %d\n", m.DHashDistance)
	}
	return nil
}
