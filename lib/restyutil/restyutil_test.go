package restyutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"courserank-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu    sync.Mutex
	dumps map[string]string
}

func (o *memoryOutput) Write(name, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dumps[name] = contents
}

func TestDumpName(t *testing.T) {
	cases := []struct {
		method   string
		url      string
		expected string
	}{
		{method: "GET", url: "https://catalog.wsu.edu/api/Data/GetCoursesByUcore/QUAN/General", expected: "0001-GET-GetCoursesByUcore-QUAN-General"},
		{method: "GET", url: "https://catalog.wsu.edu/general/Courses/", expected: "0001-GET-general-Courses"},
		{method: "POST", url: "https://example.com", expected: "0001-POST-root"},
		{method: "GET", url: "https://example.com/a b/c?x=1", expected: "0001-GET-a_b-c"},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, dumpName(1, c.method, c.url))
	}
}

func TestInstrumentClientDumps(t *testing.T) {
	telemetry.SetupForTesting(t, "test:lib/restyutil")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-test", "yes")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
		fmt.Fprint(w, strings.Repeat("a", maxDumpedBody+10))
	}))
	defer server.Close()

	out := &memoryOutput{dumps: make(map[string]string)}
	client := resty.New().SetBaseURL(server.URL)
	InstrumentClient(client, nil, out)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.R().SetContext(ctx).Get("/found")
	require.NoError(t, err)
	res, err := client.R().SetContext(ctx).Get("/missing")
	require.NoError(t, err)
	require.True(t, res.IsError())

	require.Len(t, out.dumps, 2)
	first := out.dumps["0001-GET-found"]
	require.Contains(t, first, "> GET "+server.URL+"/found")
	require.Contains(t, first, "X-Test: yes")
	require.Contains(t, first, "(10 bytes omitted)")
	require.Contains(t, out.dumps["0002-GET-missing"], "< 404 Not Found")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600))

	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	out.Write("0001-GET-x", "contents")

	entries, err := os.ReadDir(out.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	contents, err := os.ReadFile(filepath.Join(dir, "0001-GET-x.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}
