package database

import (
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"imagerank/types"
)

func newTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "images.db")
}

func TestStoreAndQuery(t *testing.T) {
	db, err := InitDatabase(newTestDB(t))
	if err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	defer db.Close()

	recs := []types.HashRecord{
		{FileName: "a.jpg", Folder: "images", Format: "jpeg", Width: 500, Height: 500,
			ModifiedAt: "2024-01-01T00:00:00Z", PerceptualHash: "00000000000000ff", DifferenceHash: "0000000000000001"},
		{FileName: "b.png", Folder: "images", Format: "png",
			ModifiedAt: "2024-01-01T00:00:00Z", PerceptualHash: "00000000000000ff", DifferenceHash: "0000000000000002"},
		{FileName: "c.png", Folder: "other", Format: "png",
			ModifiedAt: "2024-01-01T00:00:00Z", PerceptualHash: "0000000000000000", DifferenceHash: "0000000000000003"},
	}
	for _, rec := range recs {
		if err := StoreHashRecord(db, rec, false); err != nil {
			t.Fatalf("StoreHashRecord(%s) failed: %v", rec.FileName, err)
		}
	}

	all, err := QueryHashRecords(db, "")
	if err != nil {
		t.Fatalf("QueryHashRecords failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("QueryHashRecords returned %d records, want 3", len(all))
	}
	if all[0].FileName != "a.jpg" || all[0].Width != 500 || all[0].IndexedAt == "" {
		t.Errorf("unexpected first record: %+v", all[0])
	}

	images, err := QueryHashRecords(db, "images")
	if err != nil {
		t.Fatalf("QueryHashRecords(images) failed: %v", err)
	}
	if len(images) != 2 {
		t.Errorf("folder filter returned %d records, want 2", len(images))
	}

	stats, err := GetIndexStats(db, "")
	if err != nil {
		t.Fatalf("GetIndexStats failed: %v", err)
	}
	if stats.TotalImages != 3 || stats.UniqueHashes != 2 {
		t.Errorf("stats = %+v, want 3 images and 2 unique hashes", stats)
	}
}

func TestStoreHashRecordForceRewrite(t *testing.T) {
	db, err := InitDatabase(newTestDB(t))
	if err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	defer db.Close()

	rec := types.HashRecord{FileName: "a.jpg", Folder: "images", ModifiedAt: "old",
		PerceptualHash: "0000000000000001", DifferenceHash: "0000000000000001"}
	if err := StoreHashRecord(db, rec, false); err != nil {
		t.Fatalf("StoreHashRecord failed: %v", err)
	}

	rec.ModifiedAt = "new"
	if err := StoreHashRecord(db, rec, false); err != nil {
		t.Fatalf("StoreHashRecord failed: %v", err)
	}
	_, mod, err := CheckRecordExists(db, "a.jpg", "images")
	if err != nil || mod != "old" {
		t.Errorf("insert-or-ignore replaced row: mod=%q err=%v", mod, err)
	}

	if err := StoreHashRecord(db, rec, true); err != nil {
		t.Fatalf("StoreHashRecord(force) failed: %v", err)
	}
	exists, mod, err := CheckRecordExists(db, "a.jpg", "images")
	if err != nil || !exists || mod != "new" {
		t.Errorf("force rewrite not applied: exists=%v mod=%q err=%v", exists, mod, err)
	}

	exists, _, err = CheckRecordExists(db, "missing.jpg", "images")
	if err != nil || exists {
		t.Errorf("CheckRecordExists(missing) = %v, %v", exists, err)
	}
}

func TestOpenDatabaseMissing(t *testing.T) {
	_, err := OpenDatabase(filepath.Join(t.TempDir(), "none.db"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("OpenDatabase error = %v, want fs.ErrNotExist", err)
	}
}

func TestStoreRelease(t *testing.T) {
	db, err := InitDatabase(newTestDB(t))
	if err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	defer db.Close()

	rec := types.HashRecord{MBID: "0b9e1d3c", FileName: "1001.jpg", Folder: "images",
		PerceptualHash: "0000000000000001", DifferenceHash: "0000000000000002"}
	updated, err := StoreRelease(db, rec)
	if err != nil || updated {
		t.Fatalf("first StoreRelease = %v, %v; want new row", updated, err)
	}

	rec.FileName = "1001-500.jpg"
	rec.PerceptualHash = "00000000000000ff"
	updated, err = StoreRelease(db, rec)
	if err != nil || !updated {
		t.Fatalf("second StoreRelease = %v, %v; want update", updated, err)
	}

	all, err := QueryHashRecords(db, "")
	if err != nil {
		t.Fatalf("QueryHashRecords failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
	if all[0].MBID != "0b9e1d3c" || all[0].FileName != "1001-500.jpg" || all[0].PerceptualHash != "00000000000000ff" {
		t.Errorf("unexpected row: %+v", all[0])
	}

	if _, err := StoreRelease(db, types.HashRecord{FileName: "x.jpg"}); err == nil {
		t.Error("expected error for a release without MBID")
	}
}

func TestForceRewriteKeepsMBID(t *testing.T) {
	db, err := InitDatabase(newTestDB(t))
	if err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	defer db.Close()

	if _, err := StoreRelease(db, types.HashRecord{MBID: "abc", FileName: "1.jpg", Folder: "images",
		PerceptualHash: "0000000000000001", DifferenceHash: "0000000000000001"}); err != nil {
		t.Fatalf("StoreRelease failed: %v", err)
	}

	// Re-indexing the folder knows nothing about releases.
	if err := StoreHashRecord(db, types.HashRecord{FileName: "1.jpg", Folder: "images",
		PerceptualHash: "0000000000000003", DifferenceHash: "0000000000000003"}, true); err != nil {
		t.Fatalf("StoreHashRecord failed: %v", err)
	}

	all, err := QueryHashRecords(db, "images")
	if err != nil {
		t.Fatalf("QueryHashRecords failed: %v", err)
	}
	if len(all) != 1 || all[0].MBID != "abc" || all[0].PerceptualHash != "0000000000000003" {
		t.Errorf("unexpected rows after rewrite: %+v", all)
	}
}

func TestInitDatabaseAddsMBIDColumn(t *testing.T) {
	path := newTestDB(t)
	old, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	_, err = old.Exec(`CREATE TABLE releases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL,
		folder TEXT NOT NULL DEFAULT '',
		format TEXT, width INTEGER, height INTEGER, mime_type TEXT, size INTEGER,
		modified_at TEXT, indexed_at TEXT,
		phash TEXT NOT NULL, dhash TEXT NOT NULL,
		UNIQUE(file_name, folder));
	INSERT INTO releases (file_name, folder, phash, dhash) VALUES ('a.jpg', 'images', '0000000000000001', '0000000000000001');`)
	old.Close()
	if err != nil {
		t.Fatalf("creating old schema failed: %v", err)
	}

	db, err := InitDatabase(path)
	if err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	defer db.Close()

	all, err := QueryHashRecords(db, "")
	if err != nil {
		t.Fatalf("QueryHashRecords failed: %v", err)
	}
	if len(all) != 1 || all[0].FileName != "a.jpg" || all[0].MBID != "" {
		t.Errorf("unexpected rows after migration: %+v", all)
	}
}
