package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"imagerank/logging"
	"imagerank/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the database and creates the releases table
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS releases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mbid TEXT,
		file_name TEXT NOT NULL,
		folder TEXT NOT NULL DEFAULT '',
		format TEXT,
		width INTEGER,
		height INTEGER,
		mime_type TEXT,
		size INTEGER,
		modified_at TEXT,
		indexed_at TEXT,
		phash TEXT NOT NULL,
		dhash TEXT NOT NULL,
		UNIQUE(file_name, folder)
	);
	CREATE INDEX IF NOT EXISTS idx_releases_phash ON releases(phash);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}

	// Databases created before cover art downloads have no mbid column.
	if err := ensureColumn(db, "releases", "mbid", "TEXT"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_releases_mbid ON releases(mbid)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create mbid index: %w", err)
	}

	logging.DebugLog("Initialized hash index at %s", dbPath)
	return db, nil
}

func ensureColumn(db *sql.DB, table, column, columnType string) error {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return fmt.Errorf("cannot read schema of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("cannot read schema of %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	logging.DebugLog("Adding column %s to %s", column, table)
	if _, err := db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + columnType); err != nil {
		return fmt.Errorf("cannot add column %s: %w", column, err)
	}
	return nil
}

// OpenDatabase opens an existing database
func OpenDatabase(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	return sql.Open("sqlite3", dbPath)
}

// CheckRecordExists reports whether a file is indexed and returns its stored
// modification time
func CheckRecordExists(db *sql.DB, fileName, folder string) (bool, string, error) {
	var storedModTime string
	err := db.QueryRow("SELECT modified_at FROM releases WHERE file_name = ? AND folder = ?",
		fileName, folder).Scan(&storedModTime)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("database error for %s: %w", fileName, err)
	}
	return true, storedModTime, nil
}

// StoreHashRecord stores a hash record, updating an existing row only when
// forceRewrite is set. An update keeps the stored MBID unless rec has one.
func StoreHashRecord(db *sql.DB, rec types.HashRecord, forceRewrite bool) error {
	now := time.Now().Format(time.RFC3339)

	query := `INSERT OR IGNORE INTO releases (
			mbid, file_name, folder, format, width, height, mime_type, size, modified_at, indexed_at, phash, dhash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if forceRewrite {
		query = `INSERT INTO releases (
			mbid, file_name, folder, format, width, height, mime_type, size, modified_at, indexed_at, phash, dhash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_name, folder) DO UPDATE SET
			mbid = COALESCE(excluded.mbid, releases.mbid),
			format = excluded.format,
			width = excluded.width,
			height = excluded.height,
			mime_type = excluded.mime_type,
			size = excluded.size,
			modified_at = excluded.modified_at,
			indexed_at = excluded.indexed_at,
			phash = excluded.phash,
			dhash = excluded.dhash`
	}

	stmt, err := db.Prepare(query)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", rec.FileName, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		nullString(rec.MBID),
		rec.FileName,
		rec.Folder,
		rec.Format,
		rec.Width,
		rec.Height,
		rec.MIMEType,
		rec.Size,
		rec.ModifiedAt,
		now,
		rec.PerceptualHash,
		rec.DifferenceHash,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", rec.FileName, err)
	}
	return nil
}

// StoreRelease stores the cover art of a MusicBrainz release. The row that
// already carries the MBID is updated, otherwise a new row is added. The
// boolean reports an update.
func StoreRelease(db *sql.DB, rec types.HashRecord) (bool, error) {
	if rec.MBID == "" {
		return false, fmt.Errorf("cannot store release %s without an MBID", rec.FileName)
	}

	var id int64
	err := db.QueryRow("SELECT id FROM releases WHERE mbid = ? LIMIT 1", rec.MBID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, StoreHashRecord(db, rec, true)
	}
	if err != nil {
		return false, fmt.Errorf("database error for release %s: %w", rec.MBID, err)
	}

	_, err = db.Exec(`UPDATE releases SET
			file_name = ?, folder = ?, format = ?, width = ?, height = ?, mime_type = ?,
			size = ?, modified_at = ?, indexed_at = ?, phash = ?, dhash = ?
		WHERE id = ?`,
		rec.FileName, rec.Folder, rec.Format, rec.Width, rec.Height, rec.MIMEType,
		rec.Size, rec.ModifiedAt, time.Now().Format(time.RFC3339), rec.PerceptualHash, rec.DifferenceHash,
		id)
	if err != nil {
		return false, fmt.Errorf("cannot update release %s: %w", rec.MBID, err)
	}
	return true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// QueryHashRecords returns the indexed records, filtered by folder when set
func QueryHashRecords(db *sql.DB, folder string) ([]types.HashRecord, error) {
	query := `SELECT id, mbid, file_name, folder, format, width, height, mime_type, size,
		modified_at, indexed_at, phash, dhash FROM releases`
	var args []interface{}
	if folder != "" {
		query += " WHERE folder = ?"
		args = append(args, folder)
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var records []types.HashRecord
	for rows.Next() {
		var rec types.HashRecord
		var mbid, format, mime, modified, indexed sql.NullString
		var width, height, size sql.NullInt64
		if err := rows.Scan(&rec.ID, &mbid, &rec.FileName, &rec.Folder, &format, &width, &height,
			&mime, &size, &modified, &indexed, &rec.PerceptualHash, &rec.DifferenceHash); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		rec.MBID = mbid.String
		rec.Format = format.String
		rec.MIMEType = mime.String
		rec.ModifiedAt = modified.String
		rec.IndexedAt = indexed.String
		rec.Width = int(width.Int64)
		rec.Height = int(height.Int64)
		rec.Size = size.Int64
		records = append(records, rec)
	}
	return records, rows.Err()
}

// IndexStats contains statistics about indexed images
type IndexStats struct {
	TotalImages  int
	UniqueHashes int
}

// GetIndexStats counts indexed images and distinct perceptual hashes
func GetIndexStats(db *sql.DB, folder string) (*IndexStats, error) {
	var stats IndexStats

	where := ""
	var args []interface{}
	if folder != "" {
		where = " WHERE folder = ?"
		args = append(args, folder)
	}

	err := db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT phash) FROM releases"+where, args...).
		Scan(&stats.TotalImages, &stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get index stats: %w", err)
	}
	return &stats, nil
}
