package imageprocessor

import (
	"fmt"
	"os/exec"

	"imagerank/logging"

	"github.com/barasher/go-exiftool"
)

// Metadata holds the exiftool fields recorded in the hash index
type Metadata struct {
	MIMEType string
	Width    int
	Height   int
}

// MetadataReader wraps a long-running exiftool process
type MetadataReader struct {
	et *exiftool.Exiftool
}

// NewMetadataReader starts exiftool. It fails when the exiftool binary is
// not installed.
func NewMetadataReader() (*MetadataReader, error) {
	if _, err := exec.LookPath("exiftool"); err != nil {
		return nil, fmt.Errorf("exiftool not available: %w", err)
	}
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exiftool: %w", err)
	}
	return &MetadataReader{et: et}, nil
}

// Read extracts the MIME type and pixel dimensions of a file
func (r *MetadataReader) Read(path string) (Metadata, error) {
	var md Metadata

	fileInfos := r.et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return md, fmt.Errorf("no metadata extracted for %s", path)
	}
	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return md, fmt.Errorf("error extracting metadata for %s: %w", path, fileInfo.Err)
	}

	if mime, err := fileInfo.GetString("MIMEType"); err == nil {
		md.MIMEType = mime
	}
	if w, err := fileInfo.GetInt("ImageWidth"); err == nil {
		md.Width = int(w)
	}
	if h, err := fileInfo.GetInt("ImageHeight"); err == nil {
		md.Height = int(h)
	}

	logging.DebugLog("metadata for %s: %+v", path, md)
	return md, nil
}

// Close stops the exiftool process
func (r *MetadataReader) Close() error {
	return r.et.Close()
}
