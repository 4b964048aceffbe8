// Package coverart lists vinyl album releases on MusicBrainz and fetches their
// front covers from the Cover Art Archive.
package coverart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"imagerank/logging"

	"golang.org/x/time/rate"
)

const (
	DefaultMusicBrainzURL = "https://musicbrainz.org/ws/2/release"
	DefaultCoverArtURL    = "https://coverartarchive.org/release"
	DefaultUserAgent      = "imagerank/0.1"

	// PageLimit is the number of releases requested per search page
	PageLimit = 100

	defaultMaxRetries = 3
)

// ErrNoCoverArt is returned when the archive has no entry for a release
var ErrNoCoverArt = errors.New("cover art not available")

// Client talks to MusicBrainz and the Cover Art Archive. All requests share
// one rate limiter; MusicBrainz allows one request per second.
type Client struct {
	MusicBrainzURL string
	CoverArtURL    string
	UserAgent      string
	MaxRetries     int

	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client limited to one request per second
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithHTTP(&http.Client{Timeout: timeout}, rate.NewLimiter(rate.Every(time.Second), 1))
}

// NewClientWithHTTP uses a custom HTTP client and limiter
func NewClientWithHTTP(client *http.Client, limiter *rate.Limiter) *Client {
	return &Client{
		MusicBrainzURL: DefaultMusicBrainzURL,
		CoverArtURL:    DefaultCoverArtURL,
		UserAgent:      DefaultUserAgent,
		MaxRetries:     defaultMaxRetries,
		http:           client,
		limiter:        limiter,
	}
}

// ValidateImageSize accepts the full image ("") or a named thumbnail
func ValidateImageSize(size string) error {
	switch size {
	case "", "small", "large":
		return nil
	}
	return fmt.Errorf("invalid image size %q, must be small or large", size)
}

type releaseSearch struct {
	Count    int `json:"count"`
	Offset   int `json:"offset"`
	Releases []struct {
		ID string `json:"id"`
	} `json:"releases"`
}

type coverArtListing struct {
	Images []struct {
		Front      bool              `json:"front"`
		Image      string            `json:"image"`
		Thumbnails map[string]string `json:"thumbnails"`
	} `json:"images"`
}

// ReleaseCount returns the total number of releases the search matches
func (c *Client) ReleaseCount(ctx context.Context) (int, error) {
	search, err := c.search(ctx, 1, 0)
	if err != nil {
		return 0, err
	}
	return search.Count, nil
}

// Releases returns the MBIDs on one search page
func (c *Client) Releases(ctx context.Context, page int) ([]string, error) {
	search, err := c.search(ctx, PageLimit, page*PageLimit)
	if err != nil {
		return nil, err
	}
	mbids := make([]string, 0, len(search.Releases))
	for _, r := range search.Releases {
		if r.ID != "" {
			mbids = append(mbids, r.ID)
		}
	}
	return mbids, nil
}

func (c *Client) search(ctx context.Context, limit, offset int) (*releaseSearch, error) {
	params := url.Values{}
	params.Set("query", "*")
	params.Set("type", "album")
	params.Set("format", "Vinyl")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("fmt", "json")

	status, body, err := c.get(ctx, c.MusicBrainzURL+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("release search failed: status=%d, body=%s", status, truncate(body))
	}

	var search releaseSearch
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("cannot parse release search: %w", err)
	}
	return &search, nil
}

// FrontImageURLs returns the front cover URLs of a release. size selects a
// thumbnail; a release without that thumbnail falls back to the full image.
func (c *Client) FrontImageURLs(ctx context.Context, mbid, size string) ([]string, error) {
	status, body, err := c.get(ctx, c.CoverArtURL+"/"+url.PathEscape(mbid), "application/json")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoCoverArt, mbid)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("cover art lookup for %s failed: status=%d", mbid, status)
	}

	var listing coverArtListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("cannot parse cover art listing for %s: %w", mbid, err)
	}

	var urls []string
	for _, img := range listing.Images {
		if !img.Front {
			continue
		}
		if thumb := img.Thumbnails[size]; size != "" && thumb != "" {
			urls = append(urls, thumb)
			continue
		}
		if img.Image != "" {
			urls = append(urls, img.Image)
		}
	}
	return urls, nil
}

// Download stores the image under dir, named after the last URL path
// segment, and returns the file path
func (c *Client) Download(ctx context.Context, imageURL, dir string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %s: %w", imageURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("image URL has no file name: %s", imageURL)
	}

	status, body, err := c.get(ctx, imageURL, "image/*")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("download of %s failed: status=%d", imageURL, status)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}
	filePath := filepath.Join(dir, name)
	if err := os.WriteFile(filePath, body, 0644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", filePath, err)
	}
	return filePath, nil
}

// get performs a rate limited GET. Transport errors and 503 responses are
// retried up to MaxRetries times.
func (c *Client) get(ctx context.Context, target, accept string) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("cannot create request: %w", err)
		}
		req.Header.Set("User-Agent", c.UserAgent)
		req.Header.Set("Accept", accept)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", target, err)
			logging.LogWarning("Retry %d/%d: %v", attempt+1, c.MaxRetries, lastErr)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("cannot read response from %s: %w", target, err)
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable {
			lastErr = fmt.Errorf("rate limited by %s", stripQuery(target))
			logging.LogWarning("Retry %d/%d: %v", attempt+1, c.MaxRetries, lastErr)
			continue
		}
		return resp.StatusCode, body, nil
	}
	return 0, nil, lastErr
}

// stripQuery removes the query from a URL for log messages
func stripQuery(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	parsed.RawQuery = ""
	return parsed.String()
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
