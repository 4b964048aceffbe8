package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"imagerank/coverart"
	"imagerank/database"
	"imagerank/logging"
)

// CoverArtSource lists releases and fetches their front covers
type CoverArtSource interface {
	ReleaseCount(ctx context.Context) (int, error)
	Releases(ctx context.Context, page int) ([]string, error)
	FrontImageURLs(ctx context.Context, mbid, size string) ([]string, error)
	Download(ctx context.Context, imageURL, dir string) (string, error)
}

// DownloadCoverArt fetches the front covers of the releases on the requested
// search pages into the output directory and records their hashes by MBID.
// Without NumPages every page from PageOffset to the last is fetched. A page
// that cannot be listed stops the run; failures of single releases are
// counted and logged.
func DownloadCoverArt(ctx context.Context, db *sql.DB, source CoverArtSource, options DownloadOptions) (DownloadStats, error) {
	var stats DownloadStats

	pages := options.NumPages
	if pages <= 0 {
		count, err := source.ReleaseCount(ctx)
		if err != nil {
			return stats, fmt.Errorf("cannot count releases: %w", err)
		}
		pages = (count+coverart.PageLimit-1)/coverart.PageLimit - options.PageOffset
		if pages < 0 {
			pages = 0
		}
		logging.DebugLog("%d releases found, fetching %d pages from offset %d", count, pages, options.PageOffset)
	}

	folder := filepath.Clean(options.OutputDir)
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page := options.PageOffset + i
		mbids, err := source.Releases(ctx, page)
		if err != nil {
			return stats, fmt.Errorf("failed to list releases on page %d: %w", page, err)
		}
		for _, mbid := range mbids {
			downloadRelease(ctx, db, source, mbid, folder, options.ImageSize, &stats)
		}

		if options.Progress != nil {
			options.Progress(i+1, pages)
		}
	}
	return stats, nil
}

func downloadRelease(ctx context.Context, db *sql.DB, source CoverArtSource, mbid, folder, size string, stats *DownloadStats) {
	urls, err := source.FrontImageURLs(ctx, mbid, size)
	if errors.Is(err, coverart.ErrNoCoverArt) || (err == nil && len(urls) == 0) {
		logging.LogWarning("%s cover art not available", mbid)
		stats.Missing++
		return
	}
	if err != nil {
		logging.LogWarning("Cover art lookup failed for %s: %v", mbid, err)
		stats.Errors++
		return
	}

	for _, imageURL := range urls {
		filePath, err := source.Download(ctx, imageURL, folder)
		if err != nil {
			logging.LogWarning("Download failed for %s: %v", mbid, err)
			stats.Errors++
			continue
		}
		stats.Downloaded++
		logging.DebugLog("Downloaded %s -> %s", mbid, filePath)

		rec, err := buildHashRecord(nil, filePath, filepath.Base(filePath), folder)
		if err != nil {
			logging.LogImageProcessed(filePath, false, err.Error())
			stats.Errors++
			continue
		}
		rec.MBID = mbid

		updated, err := database.StoreRelease(db, rec)
		if err != nil {
			logging.LogWarning("Cannot store release %s: %v", mbid, err)
			stats.Errors++
			continue
		}
		if updated {
			logging.DebugLog("Updated %s", mbid)
			stats.Updated++
		} else {
			logging.DebugLog("Added new entry %s", mbid)
			stats.New++
		}
	}
}
