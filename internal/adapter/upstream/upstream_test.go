package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbench/internal/domain"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("svc", nil))

	err := Classify("svc", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.NotErrorIs(t, err, domain.ErrUpstream)

	err = Classify("svc", errors.New("connection refused"))
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.NotErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestCheckStatus(t *testing.T) {
	ok := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}
	assert.NoError(t, CheckStatus("svc", ok))

	bad := &http.Response{StatusCode: 503, Body: io.NopCloser(strings.NewReader("overloaded"))}
	err := CheckStatus("svc", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 503, upErr.StatusCode)
	assert.Equal(t, "overloaded", upErr.Body)
}

func TestLimiterRespectsContext(t *testing.T) {
	l := NewLimiter(0.001)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background()))
}
