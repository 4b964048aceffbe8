package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "images.db"
	}

	return filepath.Join(filepath.Dir(exePath), "images.db")
}

// ProgramName returns the base name the binary was invoked with
func ProgramName() string {
	if len(os.Args) == 0 {
		return "imagerank"
	}
	return filepath.Base(os.Args[0])
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage(w io.Writer) {
	name := ProgramName()
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s --first PATH\n", name)
	fmt.Fprintf(w, "  %s index --folder PATH [--database PATH] [--force]\n", name)
	fmt.Fprintf(w, "  %s match --image PATH [--database PATH] [--max-distance N] [--limit N]\n", name)
	fmt.Fprintf(w, "  %s download [-n PAGES] [-x OFFSET] [-o DIR] [-s small|large] [--database PATH]\n", name)
	fmt.Fprintf(w, "\nParameters:\n")
	fmt.Fprintf(w, "  -f, --first            : Reference image scored against every file in ./images\n")
	fmt.Fprintf(w, "  --folder               : Folder whose images are hashed into the database\n")
	fmt.Fprintf(w, "  --image                : Query image looked up in the database\n")
	fmt.Fprintf(w, "  --database             : Path to database file (default: %s)\n", GetDefaultDatabasePath())
	fmt.Fprintf(w, "  --force                : Re-hash images that are already indexed\n")
	fmt.Fprintf(w, "  --max-distance         : Largest pHash Hamming distance reported (0-64)\n")
	fmt.Fprintf(w, "  --limit                : Number of matches printed\n")
	fmt.Fprintf(w, "  -n, --num-pages        : MusicBrainz release pages to fetch (default: all)\n")
	fmt.Fprintf(w, "  -x, --page-offset      : First release page (default: 0)\n")
	fmt.Fprintf(w, "  -o, --output-directory : Directory cover art is saved to (default: images)\n")
	fmt.Fprintf(w, "  -s, --image-size       : Thumbnail size, small (250px) or large (500px)\n")
	fmt.Fprintf(w, "\nEnvironment:\n")
	fmt.Fprintf(w, "  IMAGERANK_CONFIG, IMAGERANK_DEBUG, IMAGERANK_LOGFILE,\n")
	fmt.Fprintf(w, "  IMAGERANK_DATABASE, IMAGERANK_SKIP_UNREADABLE, IMAGERANK_USER_AGENT\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s -f cover.jpg\n", name)
	fmt.Fprintf(w, "  %s index --folder /path/to/covers\n", name)
	fmt.Fprintf(w, "  %s download --num-pages 2 --image-size large\n", name)
	fmt.Fprintf(w, "  %s match --image scan.jpg --max-distance 12\n", name)
}

// ValidateDistance checks a Hamming distance bound for 64-bit hashes
func ValidateDistance(distance int) error {
	if distance < 0 || distance > 64 {
		return fmt.Errorf("invalid max distance %d, must be between 0 and 64", distance)
	}
	return nil
}
