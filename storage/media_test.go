package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	k := NewKey(FolderPhotos, "IMG_001.JPG")
	assert.True(t, strings.HasPrefix(k, FolderPhotos+"/"))
	assert.True(t, strings.HasSuffix(k, ".jpg"))
	assert.NotEqual(t, k, NewKey(FolderPhotos, "IMG_001.JPG"))
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		url     string
		want    string
		wantErr bool
	}{
		{"under base", "https://cdn.example.com/media", "https://cdn.example.com/media/car_inventory/photos/a.jpg", "car_inventory/photos/a.jpg", false},
		{"relative local", "/uploads", "/uploads/car_inventory/videos/v.mp4", "car_inventory/videos/v.mp4", false},
		{"other host", "https://cdn.example.com", "https://bucket.s3.us-east-1.amazonaws.com/car_inventory/photos/a.jpg", "car_inventory/photos/a.jpg", false},
		{"query stripped", "", "https://x.io/car_inventory/photos/a.jpg?v=2", "car_inventory/photos/a.jpg", false},
		{"escaped", "/uploads", "/uploads/car_inventory/photos/a%20b.jpg", "car_inventory/photos/a b.jpg", false},
		{"outside root", "/uploads", "/uploads/etc/passwd", "", true},
		{"traversal", "/uploads", "/uploads/car_inventory/../secret", "", true},
		{"no folder", "", "https://x.io/a.jpg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyFromURL(tt.base, tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadMediaURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
