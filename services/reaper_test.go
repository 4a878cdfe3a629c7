package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMediaReaper_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	media := &fakeMedia{deleteErr: errors.New("timeout")}
	r := NewMediaReaper(media, zap.New(core))

	r.Release("a", "", "b")
	r.Release()
	r.Wait()

	assert.Equal(t, []string{"a", "b"}, media.deletedURLs())
	assert.Equal(t, 2, logs.FilterMessage("media delete failed").Len())
}
