package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Folders media objects are written to.
const (
	RootFolder   = "car_inventory"
	FolderPhotos = RootFolder + "/photos"
	FolderVideos = RootFolder + "/videos"
)

var ErrBadMediaURL = errors.New("media url does not name a stored object")

// Object is one file handed to a MediaStore.
type Object struct {
	Folder      string
	Filename    string // original client file name, only its extension is kept
	ContentType string
	Body        io.Reader
}

// MediaStore persists media objects and hands out URLs for them. Delete
// takes the URL returned by Upload.
type MediaStore interface {
	Upload(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, mediaURL string) error
}

// NewKey returns a fresh object key under folder, keeping the file
// extension of filename.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return folder + "/" + uuid.NewString() + ext
}

// KeyFromURL derives the object key from a URL produced by a store whose
// public base is baseURL. URLs outside baseURL are accepted when their path
// contains the media root folder.
func KeyFromURL(baseURL, mediaURL string) (string, error) {
	var key string
	base := strings.TrimRight(baseURL, "/")
	if base != "" && strings.HasPrefix(mediaURL, base+"/") {
		key = strings.TrimPrefix(mediaURL, base+"/")
	} else {
		u, err := url.Parse(mediaURL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadMediaURL, err)
		}
		idx := strings.Index(u.Path, RootFolder+"/")
		if idx < 0 {
			return "", ErrBadMediaURL
		}
		key = u.Path[idx:]
	}

	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key, err := url.PathUnescape(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadMediaURL, err)
	}
	if !strings.HasPrefix(key, RootFolder+"/") || path.Clean(key) != key {
		return "", ErrBadMediaURL
	}
	return key, nil
}
