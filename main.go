package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"imagerank/config"
	"imagerank/coverart"
	"imagerank/database"
	"imagerank/logging"
	"imagerank/reporter"
	"imagerank/scanner"
	"imagerank/signalhandler"
	"imagerank/utils"

	flag "github.com/spf13/pflag"
)

// candidateDir is scanned relative to the working directory
const candidateDir = "images"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		logging.LogError("Error loading configuration: %v", err)
		return exitError
	}

	if cfg.Debug {
		if err := logging.SetupLogger(cfg.LogFile); err != nil {
			logging.LogWarning("Failed to setup logging: %v", err)
		} else {
			logging.LogInfo("Debug mode enabled. Logging to: %s", cfg.LogFile)
		}
	}
	defer logging.CloseLogger()
	signalhandler.SetupHandler(nil)
	defer signalhandler.AddCleanup(logging.CloseLogger)()

	if len(args) > 0 {
		switch args[0] {
		case "index":
			return handleIndexCommand(args[1:], cfg)
		case "match":
			return handleMatchCommand(args[1:], cfg)
		case "download":
			return handleDownloadCommand(args[1:], cfg)
		}
	}
	return handleRankCommand(args, cfg)
}

// newFlagSet returns a flag set that leaves error and help output to the caller
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {}
	return fs
}

// parseFlags maps pflag outcomes to exit codes; ok is false when the
// command must stop with the returned code
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		utils.PrintUsage(os.Stdout)
		return exitOK, false
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		utils.PrintUsage(os.Stderr)
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		utils.PrintUsage(os.Stderr)
		return exitUsage, false
	}
	return exitOK, true
}

func usageError(message string) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	utils.PrintUsage(os.Stderr)
	return exitUsage
}

func handleRankCommand(args []string, cfg config.Config) int {
	fs := newFlagSet("imagerank")
	first := fs.StringP("first", "f", "", "reference image path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *first == "" {
		return usageError("missing reference image (use --first PATH)")
	}

	progress := scanner.NewProgressTracker("Scoring")
	records, err := scanner.RankDirectory(scanner.RankOptions{
		ReferencePath:  *first,
		CandidateDir:   candidateDir,
		SkipUnreadable: cfg.SkipUnreadable,
		Progress:       progress.Update,
	})
	progress.Stop()
	if err != nil {
		logging.LogError("Error ranking images: %v", err)
		return exitError
	}

	if err := reporter.Print(os.Stdout, records); err != nil {
		logging.LogError("Error writing report: %v", err)
		return exitError
	}
	return exitOK
}

func handleIndexCommand(args []string, cfg config.Config) int {
	fs := newFlagSet("index")
	folder := fs.String("folder", "", "folder of images to index")
	dbPath := fs.String("database", cfg.DatabasePath, "path to database file")
	force := fs.Bool("force", false, "re-hash images that are already indexed")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *folder == "" {
		return usageError("missing folder path (use --folder PATH)")
	}

	startTime := time.Now()

	db, err := database.InitDatabase(*dbPath)
	if err != nil {
		logging.LogError("Error initializing database: %v", err)
		return exitError
	}
	defer db.Close()
	defer signalhandler.AddCleanup(func() { db.Close() })()

	progress := scanner.NewProgressTracker("Indexing")
	stats, err := scanner.IndexFolder(db, scanner.IndexOptions{
		FolderPath:   *folder,
		ForceRewrite: *force,
		DebugMode:    cfg.Debug,
		Progress:     progress.Update,
	})
	progress.Stop()
	if err != nil {
		logging.LogError("Error indexing folder: %v", err)
		return exitError
	}

	fmt.Printf("Index completed in %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Database: %s\n", *dbPath)
	fmt.Printf("- Images processed: %d\n", stats.Processed)
	fmt.Printf("- Images unchanged: %d\n", stats.Skipped)
	fmt.Printf("- Errors: %d\n", stats.Errors)

	if summary, err := database.GetIndexStats(db, ""); err == nil {
		fmt.Printf("- Total indexed images: %d\n", summary.TotalImages)
		fmt.Printf("- Unique image hashes: %d\n", summary.UniqueHashes)
	}

	if stats.Errors > 0 {
		return exitError
	}
	return exitOK
}

func handleMatchCommand(args []string, cfg config.Config) int {
	fs := newFlagSet("match")
	image := fs.String("image", "", "query image path")
	dbPath := fs.String("database", cfg.DatabasePath, "path to database file")
	maxDistance := fs.Int("max-distance", cfg.MaxDistance, "largest pHash distance reported")
	limit := fs.Int("limit", cfg.MatchLimit, "number of matches printed")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *image == "" {
		return usageError("missing query image (use --image PATH)")
	}
	if err := utils.ValidateDistance(*maxDistance); err != nil {
		return usageError(err.Error())
	}

	db, err := database.OpenDatabase(*dbPath)
	if err != nil {
		logging.LogError("Error opening database (run index first): %v", err)
		return exitError
	}
	defer db.Close()
	defer signalhandler.AddCleanup(func() { db.Close() })()

	matches, err := scanner.MatchQuery(db, scanner.MatchOptions{
		QueryPath:   *image,
		MaxDistance: *maxDistance,
		Limit:       *limit,
	})
	if err != nil {
		logging.LogError("Error matching image: %v", err)
		return exitError
	}

	if err := reporter.PrintMatches(os.Stdout, matches, *limit); err != nil {
		logging.LogError("Error writing matches: %v", err)
		return exitError
	}
	return exitOK
}

func handleDownloadCommand(args []string, cfg config.Config) int {
	fs := newFlagSet("download")
	numPages := fs.IntP("num-pages", "n", 0, "number of release pages to fetch (default: all)")
	pageOffset := fs.IntP("page-offset", "x", 0, "first release page")
	outputDir := fs.StringP("output-directory", "o", candidateDir, "directory cover art is saved to")
	imageSize := fs.StringP("image-size", "s", "", "thumbnail size: small or large (default: full image)")
	dbPath := fs.String("database", cfg.DatabasePath, "path to database file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *numPages < 0 || *pageOffset < 0 {
		return usageError("page count and offset must not be negative")
	}
	if err := coverart.ValidateImageSize(*imageSize); err != nil {
		return usageError(err.Error())
	}

	startTime := time.Now()

	db, err := database.InitDatabase(*dbPath)
	if err != nil {
		logging.LogError("Error initializing database: %v", err)
		return exitError
	}
	defer db.Close()
	defer signalhandler.AddCleanup(func() { db.Close() })()

	client := coverart.NewClient(0)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	progress := scanner.NewProgressTracker("Downloading")
	stats, err := scanner.DownloadCoverArt(context.Background(), db, client, scanner.DownloadOptions{
		OutputDir:  *outputDir,
		NumPages:   *numPages,
		PageOffset: *pageOffset,
		ImageSize:  *imageSize,
		Progress:   progress.Update,
	})
	progress.Stop()
	if err != nil {
		logging.LogError("Error downloading cover art: %v", err)
		return exitError
	}

	fmt.Printf("Download completed in %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Database: %s\n", *dbPath)
	fmt.Printf("- Total downloaded: %d\n", stats.Downloaded)
	fmt.Printf("- New cover art: %d\n", stats.New)
	fmt.Printf("- Cover art updated: %d\n", stats.Updated)
	fmt.Printf("- Missing cover art: %d\n", stats.Missing)
	fmt.Printf("- Errors: %d\n", stats.Errors)

	if stats.Errors > 0 {
		return exitError
	}
	return exitOK
}
