package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/storage"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *testClock {
	return &testClock{t: time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type captureMailer struct {
	mu   sync.Mutex
	sent []utils.Mail
	err  error
}

func (m *captureMailer) Send(_ context.Context, mail utils.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *captureMailer) last(t *testing.T) utils.Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, mail utils.Mail) error {
	return m.Called(ctx, mail).Error(0)
}

// fakeMedia is an in-memory MediaStore that records deletions.
type fakeMedia struct {
	mu        sync.Mutex
	n         int
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeMedia) Upload(_ context.Context, obj storage.Object) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.Copy(io.Discard, obj.Body); err != nil {
		return "", err
	}
	f.n++
	u := "https://media.test/" + storage.NewKey(obj.Folder, obj.Filename)
	f.uploaded = append(f.uploaded, u)
	return u, nil
}

func (f *fakeMedia) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return f.deleteErr
}

func (f *fakeMedia) deletedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.deleted...)
}

func fileUpload(name, contentType, body string) Upload {
	return Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se), "not a service error: %v", err)
	require.Equal(t, kind, se.Kind, "error: %v", err)
	if msg != "" {
		require.Equal(t, msg, se.Message)
	}
}

func strp(s string) *string { return &s }
