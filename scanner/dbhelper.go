package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"imagerank/database"
	"imagerank/logging"
)

// checkAndSkipIfUnchanged returns a result when the image is already indexed
// and has not been modified since. The boolean reports whether a row exists.
func checkAndSkipIfUnchanged(db *sql.DB, path, fileName, folder string, options IndexOptions) (*ProcessImageResult, bool) {
	exists, storedModTime, err := database.CheckRecordExists(db, fileName, folder)
	if err != nil {
		return &ProcessImageResult{Path: path, Error: err}, false
	}
	if !exists {
		return nil, false
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return &ProcessImageResult{Path: path, Error: fmt.Errorf("cannot stat file %s: %w", path, err)}, true
	}

	storedTime, err := time.Parse(time.RFC3339, storedModTime)
	if err != nil {
		// Unparseable timestamps are re-indexed.
		logging.LogWarning("cannot parse stored time for %s: %v", path, err)
		return nil, true
	}

	if !fileInfo.ModTime().Truncate(time.Second).After(storedTime) {
		if options.DebugMode {
			logging.DebugLog("Skipping unchanged image: %s", path)
		}
		return &ProcessImageResult{Path: path, Success: true, Skipped: true}, true
	}
	return nil, true
}
