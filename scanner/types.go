package scanner

// ProgressFunc is called after each file with the number of files handled
// so far and the total
type ProgressFunc func(done, total int)

// RankOptions defines the options for ranking a candidate directory
type RankOptions struct {
	ReferencePath  string
	CandidateDir   string
	SkipUnreadable bool
	Progress       ProgressFunc
}

// IndexOptions defines the options for indexing a folder into the hash index
type IndexOptions struct {
	FolderPath   string
	ForceRewrite bool
	DebugMode    bool
	Progress     ProgressFunc
}

// MatchOptions defines the options for a hash index query
type MatchOptions struct {
	QueryPath   string
	Folder      string
	MaxDistance int
	Limit       int
}

// IndexStats summarizes an indexing run
type IndexStats struct {
	Processed int
	Skipped   int
	Errors    int
}

// ProcessImageResult holds the result of indexing one image
type ProcessImageResult struct {
	Path    string
	Success bool
	Skipped bool
	Error   error
}

// DownloadOptions defines the options for a cover art download run
type DownloadOptions struct {
	OutputDir  string
	NumPages   int
	PageOffset int
	ImageSize  string
	Progress   ProgressFunc
}

// DownloadStats counts the outcome of a download run
type DownloadStats struct {
	Downloaded int
	New        int
	Updated    int
	Missing    int
	Errors     int
}
