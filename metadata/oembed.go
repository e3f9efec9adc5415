// Package metadata resolves album artwork for playing tracks through an oEmbed endpoint.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pthm-cable/inkflux/config"
)

// ErrUnsupportedTrack is returned for track URIs that do not name an album.
var ErrUnsupportedTrack = errors.New("track is not an album")

// AlbumID strips prefix from uri and returns the remaining album identifier.
func AlbumID(uri, prefix string) (string, error) {
	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTrack, uri)
	}
	return id, nil
}

// ResizeCover replaces the first "cover" path segment of a thumbnail URL with
// size. URLs without that segment are returned unchanged.
func ResizeCover(thumbnail, size string) string {
	i := strings.Index(thumbnail, "/cover/")
	if i < 0 {
		return thumbnail
	}
	return thumbnail[:i+1] + size + thumbnail[i+len("/cover"):]
}

type oembedResponse struct {
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client looks up cover art URLs.
type Client struct {
	http      *http.Client
	endpoint  string
	albumBase string
	coverSize string
}

// NewClient creates a client from the metadata config section.
func NewClient(cfg config.MetadataConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	return &Client{
		http:      &http.Client{Timeout: timeout},
		endpoint:  cfg.Endpoint,
		albumBase: cfg.AlbumBase,
		coverSize: cfg.CoverSize,
	}
}

// CoverURL returns the resized cover image URL for an album.
func (c *Client) CoverURL(ctx context.Context, albumID string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", c.albumBase+albumID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching oembed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching oembed: unexpected status %s", resp.Status)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding oembed: %w", err)
	}
	if body.ThumbnailURL == "" {
		return "", errors.New("oembed response has no thumbnail_url")
	}
	return ResizeCover(body.ThumbnailURL, c.coverSize), nil
}
