package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/pfrederiksen/keiba-results/internal/race"
)

func eucJP(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.EUCJP.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestGet(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
		wantCode   int
	}{
		{
			name:       "successful fetch decodes EUC-JP",
			statusCode: http.StatusOK,
			body:       `<html><body><h1>京都11R 宝塚記念</h1></body></html>`,
		},
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			wantErr:    true,
			wantCode:   http.StatusNotFound,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			wantErr:    true,
			wantCode:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, UserAgents[0], r.Header.Get("User-Agent"))
				// The declared charset is wrong on purpose; the body is still EUC-JP.
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write(eucJP(t, tt.body))
			}))
			defer server.Close()

			f := New(Options{BaseURL: server.URL})
			page, err := f.Get(context.Background(), server.URL+"/race/202408030211/")

			if tt.wantErr {
				require.Error(t, err)
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantCode, statusErr.Code)
				assert.Nil(t, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, page.Body)
		})
	}
}

func TestGet_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	f := New(Options{BaseURL: url, Timeout: time.Second})
	_, err := f.Get(context.Background(), url+"/race/list/20240605/")
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	f := New(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := f.Get(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestRandomUserAgent(t *testing.T) {
	seen := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("User-Agent")] = true
	}))
	defer server.Close()

	next := 0
	f := New(Options{
		BaseURL:         server.URL,
		RandomUserAgent: true,
		Pick: func(n int) int {
			i := next % n
			next++
			return i
		},
	})

	for range UserAgents {
		_, err := f.Get(context.Background(), server.URL)
		require.NoError(t, err)
	}

	assert.Len(t, seen, len(UserAgents))
	for _, ua := range UserAgents {
		assert.True(t, seen[ua], ua)
	}
}

func TestURLs(t *testing.T) {
	f := New(Options{BaseURL: "https://db.netkeiba.com/"})
	day := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "https://db.netkeiba.com/race/list/20240605/", f.RaceListURL(day))
	assert.Equal(t, "https://db.netkeiba.com/race/202408030211/", f.RaceURL(race.RaceID("202408030211")))
	assert.Equal(t, "https://db.netkeiba.com/horse/2019104462/", f.HorseURL(race.HorseID("2019104462")))
	assert.Equal(t, "https://db.netkeiba.com/horse/ped/2019104462/", f.PedigreeURL(race.HorseID("2019104462")))
}

func TestNew_Defaults(t *testing.T) {
	f := New(Options{})
	require.NotNil(t, f)
	assert.Equal(t, DefaultBaseURL, f.baseURL)
	assert.NotNil(t, f.client)
	assert.Equal(t, UserAgents[0], f.userAgent())
}
