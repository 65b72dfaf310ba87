package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickjm/pageshot/internal/browser"
)

func TestOpenUsesViewport(t *testing.T) {
	b := &browser.FakeBrowser{}
	sess, err := Open(context.Background(), b, 800, 600, 5*time.Second)
	require.NoError(t, err)
	defer sess.Close()

	page := b.Pages[0]
	assert.Equal(t, browser.Viewport{Width: 800, Height: 600}, page.Viewport)
	assert.Same(t, page, sess.Page())
}

func TestNavigatePassesTimeout(t *testing.T) {
	b := &browser.FakeBrowser{}
	sess, err := Open(context.Background(), b, 800, 600, 7*time.Second)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Navigate(context.Background(), "http://localhost:3000"))
	assert.Equal(t, "http://localhost:3000", b.Pages[0].URL)
	assert.Equal(t, []time.Duration{7 * time.Second}, b.Pages[0].Timeouts)
}

func TestNavigateError(t *testing.T) {
	refused := errors.New("connection refused")
	b := &browser.FakeBrowser{GotoErr: refused}
	sess, err := Open(context.Background(), b, 800, 600, time.Second)
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Navigate(context.Background(), "http://localhost:1")
	assert.ErrorIs(t, err, refused)
	assert.EqualError(t, err, "navigate to http://localhost:1: connection refused")
}

func TestOpenError(t *testing.T) {
	b := &browser.FakeBrowser{NewPageErr: errors.New("target closed")}
	_, err := Open(context.Background(), b, 800, 600, time.Second)
	assert.EqualError(t, err, "open page: target closed")
}

func TestCloseOnce(t *testing.T) {
	b := &browser.FakeBrowser{}
	sess, err := Open(context.Background(), b, 800, 600, time.Second)
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, b.Pages[0].CloseCount())
}
