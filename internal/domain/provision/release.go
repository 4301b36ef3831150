package provision

import "strings"

// Asset is a downloadable file attached to a published release.
type Asset struct {
	// Name is the file name shown on the release page.
	Name string `json:"name"`
	// DownloadURL is the direct download location of the file.
	DownloadURL string `json:"browser_download_url"`
	// Size is the advertised size in bytes.
	Size int64 `json:"size"`
}

// Release is the subset of release metadata the fetcher relies on.
type Release struct {
	// TagName is the tag the release was published from.
	TagName string `json:"tag_name"`
	// Assets lists the files attached to the release.
	Assets []Asset `json:"assets"`
}

// AssetFilter selects installer assets by name.
type AssetFilter struct {
	// Contains must appear anywhere in the name (architecture marker).
	Contains string
	// Suffix must end the name (executable extension).
	Suffix string
	// ExcludeSuffix must not end the name (self-extracting archive marker).
	ExcludeSuffix string
}

// Match reports whether name satisfies the filter.
func (f AssetFilter) Match(name string) bool {
	if !strings.Contains(name, f.Contains) {
		return false
	}

	if !strings.HasSuffix(name, f.Suffix) {
		return false
	}

	if f.ExcludeSuffix != "" && strings.HasSuffix(name, f.ExcludeSuffix) {
		return false
	}

	return true
}
