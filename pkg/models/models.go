// Package models contains the platform API data types.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an opaque identifier. The API sends numbers, but nothing here does
// arithmetic on them, so they are kept as their decimal text.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Company is an entry of GET /companies.
type Company struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Project is an entry of GET /projects?company_id=.
type Project struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// FolderListing is the immediate content of one folder.
type FolderListing struct {
	Files   []FileEntry   `json:"files"`
	Folders []FolderEntry `json:"folders"`
}

// FileEntry is a document inside a folder.
type FileEntry struct {
	Name      string        `json:"name"`
	IsDeleted bool          `json:"is_deleted"`
	Versions  []FileVersion `json:"file_versions"`
}

// FileVersion is one revision of a file. URL is a signed download link.
type FileVersion struct {
	Number int     `json:"number"`
	URL    *string `json:"url"`
}

// FolderEntry is a subfolder reference inside a listing.
type FolderEntry struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	IsDeleted    bool   `json:"is_deleted"`
	IsRecycleBin bool   `json:"is_recycle_bin"`
}

// LatestVersion returns the version with the greatest number. On a tie the
// first one in listing order wins. ok is false when there are no versions.
func (f FileEntry) LatestVersion() (FileVersion, bool) {
	if len(f.Versions) == 0 {
		return FileVersion{}, false
	}
	latest := f.Versions[0]
	for _, v := range f.Versions[1:] {
		if v.Number > latest.Number {
			latest = v
		}
	}
	return latest, true
}

// DownloadURL resolves the signed URL of the latest version.
// ok is false when the file is deleted or has no usable version.
func (f FileEntry) DownloadURL() (string, bool) {
	if f.IsDeleted {
		return "", false
	}
	v, ok := f.LatestVersion()
	if !ok || v.URL == nil || *v.URL == "" {
		return "", false
	}
	return *v.URL, true
}

// Traversable reports whether a walk should descend into the folder.
func (f FolderEntry) Traversable() bool {
	return !f.IsDeleted && !f.IsRecycleBin
}

// DownloadTarget pairs a remote URL with the storage key it is written to.
type DownloadTarget struct {
	URL string
	Key string
}
