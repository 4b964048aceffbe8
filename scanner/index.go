package scanner

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"imagerank/database"
	"imagerank/imageprocessor"
	"imagerank/logging"
	"imagerank/types"
)

// IndexFolder hashes every image below the folder into the database.
// Per-file failures are counted and logged; only an unreadable root folder
// fails the run.
func IndexFolder(db *sql.DB, options IndexOptions) (IndexStats, error) {
	var stats IndexStats

	folder := filepath.Clean(options.FolderPath)
	info, err := os.Stat(folder)
	if err != nil {
		return stats, fmt.Errorf("cannot access folder: %w", err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("path is not a directory: %s", folder)
	}

	paths, err := collectImageFiles(folder)
	if err != nil {
		return stats, err
	}

	if options.DebugMode {
		logging.DebugLog("Starting index of %s: %d image files, force rewrite: %v",
			folder, len(paths), options.ForceRewrite)
	}

	// Metadata is optional; without exiftool the dimensions come from OpenCV.
	meta, err := imageprocessor.NewMetadataReader()
	if err != nil {
		logging.DebugLog("Indexing without exiftool metadata: %v", err)
		meta = nil
	} else {
		defer meta.Close()
	}

	for i, path := range paths {
		result := processAndStoreImage(db, meta, path, folder, options)
		switch {
		case result.Skipped:
			stats.Skipped++
		case result.Success:
			stats.Processed++
		default:
			stats.Errors++
		}

		errMsg := ""
		if result.Error != nil {
			errMsg = result.Error.Error()
		}
		logging.LogImageProcessed(result.Path, result.Success, errMsg)

		if options.Progress != nil {
			options.Progress(i+1, len(paths))
		}
	}

	return stats, nil
}

// collectImageFiles walks the folder and returns image files in lexical order
func collectImageFiles(folder string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == folder {
				return err
			}
			logging.LogWarning("Error accessing path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() && imageprocessor.IsImageFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk folder: %w", err)
	}
	return paths, nil
}

// processAndStoreImage hashes a single image and stores it in the database
func processAndStoreImage(db *sql.DB, meta *imageprocessor.MetadataReader, path, folder string, options IndexOptions) ProcessImageResult {
	result := ProcessImageResult{Path: path}

	fileName, err := filepath.Rel(folder, path)
	if err != nil {
		fileName = filepath.Base(path)
	}
	fileName = filepath.ToSlash(fileName)

	skip, exists := checkAndSkipIfUnchanged(db, path, fileName, folder, options)
	if skip != nil && (skip.Error != nil || !options.ForceRewrite) {
		return *skip
	}

	rec, err := buildHashRecord(meta, path, fileName, folder)
	if err != nil {
		result.Error = err
		return result
	}

	if err := database.StoreHashRecord(db, rec, options.ForceRewrite || exists); err != nil {
		result.Error = fmt.Errorf("cannot store data for %s: %w", path, err)
		return result
	}

	if options.DebugMode {
		logging.DebugLog("Indexed %s - pHash: %s, dHash: %s", path, rec.PerceptualHash, rec.DifferenceHash)
	}

	result.Success = true
	return result
}

// buildHashRecord decodes an image and fills in its hashes and file details
func buildHashRecord(meta *imageprocessor.MetadataReader, path, fileName, folder string) (types.HashRecord, error) {
	var rec types.HashRecord

	fileInfo, err := os.Stat(path)
	if err != nil {
		return rec, fmt.Errorf("cannot stat file %s: %w", path, err)
	}

	img, err := imageprocessor.LoadImage(path)
	defer img.Close()
	if err != nil {
		return rec, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	pHash, err := imageprocessor.ComputePerceptualHash(img)
	if err != nil {
		return rec, fmt.Errorf("cannot compute perceptual hash for %s: %w", path, err)
	}
	dHash, err := imageprocessor.ComputeDifferenceHash(img)
	if err != nil {
		return rec, fmt.Errorf("cannot compute difference hash for %s: %w", path, err)
	}

	rec = types.HashRecord{
		FileName:       fileName,
		Folder:         folder,
		Format:         string(imageprocessor.GetFileFormat(path)),
		Width:          img.Cols(),
		Height:         img.Rows(),
		Size:           fileInfo.Size(),
		ModifiedAt:     fileInfo.ModTime().UTC().Format(time.RFC3339),
		PerceptualHash: imageprocessor.FormatHash(pHash),
		DifferenceHash: imageprocessor.FormatHash(dHash),
	}

	if meta != nil {
		md, err := meta.Read(path)
		if err != nil {
			logging.LogWarning("Metadata unavailable for %s: %v", path, err)
		} else {
			rec.MIMEType = md.MIMEType
			if md.Width > 0 && md.Height > 0 {
				rec.Width, rec.Height = md.Width, md.Height
			}
		}
	}
	return rec, nil
}

// MatchQuery ranks the indexed images by hash distance to the query image
func MatchQuery(db *sql.DB, options MatchOptions) ([]types.HashMatch, error) {
	img, err := imageprocessor.LoadImage(options.QueryPath)
	defer img.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to load query image: %w", err)
	}

	pHash, err := imageprocessor.ComputePerceptualHash(img)
	if err != nil {
		return nil, fmt.Errorf("cannot compute perceptual hash: %w", err)
	}
	dHash, err := imageprocessor.ComputeDifferenceHash(img)
	if err != nil {
		return nil, fmt.Errorf("cannot compute difference hash: %w", err)
	}
	logging.DebugLog("Query image hashes - pHash: %s, dHash: %s",
		imageprocessor.FormatHash(pHash), imageprocessor.FormatHash(dHash))

	records, err := database.QueryHashRecords(db, options.Folder)
	if err != nil {
		return nil, err
	}

	matches := make([]types.HashMatch, 0, len(records))
	for _, rec := range records {
		recPHash, err := imageprocessor.ParseHash(rec.PerceptualHash)
		if err != nil {
			logging.LogWarning("Ignoring %s: %v", rec.FileName, err)
			continue
		}
		recDHash, err := imageprocessor.ParseHash(rec.DifferenceHash)
		if err != nil {
			logging.LogWarning("Ignoring %s: %v", rec.FileName, err)
			continue
		}

		m := types.HashMatch{
			MBID:          rec.MBID,
			FileName:      rec.FileName,
			Folder:        rec.Folder,
			PHashDistance: imageprocessor.HammingDistance(pHash, recPHash),
			DHashDistance: imageprocessor.HammingDistance(dHash, recDHash),
		}
		if m.PHashDistance <= options.MaxDistance {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.PHashDistance != b.PHashDistance {
			return a.PHashDistance < b.PHashDistance
		}
		if a.DHashDistance != b.DHashDistance {
			return a.DHashDistance < b.DHashDistance
		}
		return a.FileName < b.FileName
	})

	if options.Limit > 0 && len(matches) > options.Limit {
		matches = matches[:options.Limit]
	}
	return matches, nil
}
