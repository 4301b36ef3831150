package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/logger"
	"github.com/oshokin/gtk-bootstrap/internal/system"
)

const (
	// acceptReleaseMetadata is the media type of the releases API.
	acceptReleaseMetadata = "application/vnd.github+json"
	// acceptBinary is requested for installer payloads.
	acceptBinary = "application/octet-stream"
)

// Fetcher downloads installer payloads.
type Fetcher struct {
	// sys performs the filesystem side of a download.
	sys system.System
	// client performs HTTP requests; the default client's timeouts apply.
	client *http.Client
	// userAgent is sent with every request.
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the identifying User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// New creates a Fetcher backed by sys.
func New(sys system.System, opts ...Option) *Fetcher {
	f := &Fetcher{
		sys:       sys,
		client:    http.DefaultClient,
		userAgent: "gtk-bootstrap",
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FetchStatic downloads rawURL into dest unless dest already exists.
// It reports whether a download took place.
func (f *Fetcher) FetchStatic(ctx context.Context, rawURL, dest string) (bool, error) {
	if _, err := f.sys.Stat(dest); err == nil {
		logger.InfoKV(ctx, "Installer already downloaded", "path", dest)
		return false, nil
	}

	logger.InfoKV(ctx, "Downloading", "url", rawURL)

	body, err := f.get(ctx, rawURL, acceptBinary)
	if err != nil {
		return false, err
	}

	if err = f.sys.WriteFile(dest, body); err != nil {
		return false, fmt.Errorf("%w: write %s: %w", provision.ErrFileIO, dest, err)
	}

	logger.InfoKV(ctx, "Download complete", "path", dest, "bytes", len(body))

	return true, nil
}

// LatestRelease fetches the metadata of the latest release of repository
// ("owner/name") from the API rooted at apiBase.
func (f *Fetcher) LatestRelease(ctx context.Context, apiBase, repository string) (*provision.Release, error) {
	endpoint, err := url.JoinPath(apiBase, "repos", repository, "releases", "latest")
	if err != nil {
		return nil, fmt.Errorf("%w: build releases url: %w", provision.ErrNetwork, err)
	}

	logger.DebugKV(ctx, "Querying latest release", "url", endpoint)

	body, err := f.get(ctx, endpoint, acceptReleaseMetadata)
	if err != nil {
		return nil, err
	}

	var release provision.Release
	if err = json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", provision.ErrResponseParse, endpoint, err)
	}

	return &release, nil
}

// SelectAsset returns the first asset whose name satisfies filter.
func SelectAsset(assets []provision.Asset, filter provision.AssetFilter) (provision.Asset, error) {
	for _, asset := range assets {
		if filter.Match(asset.Name) {
			return asset, nil
		}
	}

	return provision.Asset{}, fmt.Errorf("%w among %d assets", provision.ErrNoMatchingAsset, len(assets))
}

// FetchLatestAsset resolves the latest release of repository, selects the
// installer asset and downloads it into dir under the asset's own name,
// replacing any previous copy. It returns the written path.
func (f *Fetcher) FetchLatestAsset(
	ctx context.Context,
	apiBase, repository string,
	filter provision.AssetFilter,
	dir string,
) (string, error) {
	release, err := f.LatestRelease(ctx, apiBase, repository)
	if err != nil {
		return "", err
	}

	asset, err := SelectAsset(release.Assets, filter)
	if err != nil {
		return "", fmt.Errorf("release %s: %w", release.TagName, err)
	}

	if strings.TrimSpace(asset.DownloadURL) == "" {
		return "", fmt.Errorf("%w: asset %s has no download url", provision.ErrResponseParse, asset.Name)
	}

	logger.InfoKV(ctx, "Downloading installer", "asset", asset.Name, "release", release.TagName)

	body, err := f.get(ctx, asset.DownloadURL, acceptBinary)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(dir, filepath.Base(asset.Name))
	if err = f.sys.WriteFile(dest, body); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", provision.ErrFileIO, dest, err)
	}

	logger.InfoKV(ctx, "Download complete", "path", dest, "bytes", len(body))

	return dest, nil
}

// get performs a GET and buffers the full response body.
func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", provision.ErrNetwork, rawURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	response, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", provision.ErrNetwork, rawURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: get %s: unexpected status %s", provision.ErrNetwork, rawURL, response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %w", provision.ErrNetwork, rawURL, err)
	}

	return body, nil
}
