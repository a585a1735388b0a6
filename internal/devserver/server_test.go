package devserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rajubeparybd/gulp-compiler/internal/metrics"
	"github.com/rajubeparybd/gulp-compiler/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html>
<head><link rel="stylesheet" href="/assets/css/style.min.css"></head>
<body><h1>Hello</h1></body>
</html>
`

func startServer(t *testing.T, m *metrics.Metrics) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"index.html":               page,
		"about/index.html":         "<p>no body tag</p>",
		"assets/css/style.min.css": "h1{color:red}",
		"assets/js/script.min.js":  "console.log(1)",
	})

	ctx, _ := testutil.LogContext(t)
	s := New(m)
	require.NoError(t, s.Init(ctx, Config{BaseDir: dir, Host: "127.0.0.1", Port: 0}))
	t.Cleanup(func() { _ = s.Close(testutil.Context(t)) })
	return s, dir
}

func get(t *testing.T, url string) (int, http.Header, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(body)
}

func TestServer_InjectsClientIntoHTML(t *testing.T) {
	s, _ := startServer(t, nil)

	status, header, body := get(t, s.URL()+"/")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, header.Get("Content-Type"), "text/html")
	snip := `<script src="` + DefaultClientScriptURL + `"></script><script src="/__gulpc/client.js"></script>`
	assert.Contains(t, body, snip+"</body>")
	assert.Equal(t, 1, strings.Count(body, "/__gulpc/client.js"))

	_, _, about := get(t, s.URL()+"/about/")
	assert.True(t, strings.HasSuffix(about, "</script>"), "a page without </body> gets the client appended")
}

func TestServer_ServesAssetsUnchanged(t *testing.T) {
	s, _ := startServer(t, nil)

	status, _, body := get(t, s.URL()+"/assets/css/style.min.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "h1{color:red}", body)

	status, _, _ = get(t, s.URL()+"/missing.js")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_InternalRoutes(t *testing.T) {
	m := metrics.New()
	s, _ := startServer(t, m)

	status, _, body := get(t, s.URL()+"/__gulpc/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK\n", body)

	status, header, js := get(t, s.URL()+"/__gulpc/client.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, header.Get("Content-Type"), "javascript")
	assert.Contains(t, js, `socket.on("reload"`)
	assert.Equal(t, 1, strings.Count(js, "window.location.reload()"), "only the reload event reloads the page")

	status, _, text := get(t, s.URL()+"/__gulpc/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, text, "gulpc_devserver_clients")
}

func TestServer_ReloadChannel(t *testing.T) {
	// --- Arrange ---
	m := metrics.New()
	s, dir := startServer(t, m)
	browser := testutil.ConnectBrowser(t, s.URL())
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	ctx := testutil.Context(t)

	// --- Act ---
	// A watch rebuild streams its outputs, reloads, then notifies.
	s.Stream(ctx,
		filepath.Join(dir, "assets", "css", "style.min.css"),
		filepath.Join(dir, "assets", "css", "style.min.css.map"),
		filepath.Join(t.TempDir(), "elsewhere.css"),
	)
	s.Reload(ctx)
	s.Notify(ctx, "Gulp is Watching, Happy Coding!")

	// --- Assert ---
	require.Eventually(t, func() bool { return len(browser.Events()) == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"stream", "reload", "notify"}, eventNames(browser.Events()))

	streams := browser.Received("stream")
	require.Len(t, streams, 1)
	require.NotEmpty(t, streams[0].Args)
	assert.Equal(t, []any{"/assets/css/style.min.css"}, streams[0].Args[0])

	notes := browser.Received("notify")
	require.Len(t, notes, 1)
	assert.Equal(t, []any{"Gulp is Watching, Happy Coding!"}, notes[0].Args)

	browser.Close()
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_BackToBackEventsArriveInOrder(t *testing.T) {
	// --- Arrange ---
	s, _ := startServer(t, nil)
	first := testutil.ConnectBrowser(t, s.URL())
	second := testutil.ConnectBrowser(t, s.URL())
	require.Eventually(t, func() bool { return s.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)
	ctx := testutil.Context(t)

	// --- Act ---
	var want []string
	for i := 0; i < 5; i++ {
		s.Reload(ctx)
		s.Notify(ctx, fmt.Sprintf("build %d", i))
		want = append(want, "reload", "notify")
	}

	// --- Assert ---
	for _, browser := range []*testutil.Browser{first, second} {
		require.Eventually(t, func() bool { return len(browser.Events()) == len(want) }, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, want, eventNames(browser.Events()))
		notes := browser.Received("notify")
		assert.Equal(t, []any{"build 0"}, notes[0].Args)
		assert.Equal(t, []any{"build 4"}, notes[4].Args)
	}
}

func eventNames(events []testutil.Event) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	return names
}

func TestServer_BeforeInit(t *testing.T) {
	s := New(nil)
	ctx := testutil.Context(t)

	assert.False(t, s.Started())
	assert.NotPanics(t, func() {
		s.Reload(ctx)
		s.Stream(ctx, "style.min.css")
		s.Notify(ctx, "hello")
	})
	assert.Equal(t, "", s.URL())
	assert.NoError(t, s.Close(ctx))
}

func TestServer_InitErrors(t *testing.T) {
	s, _ := startServer(t, nil)
	assert.ErrorContains(t, s.Init(testutil.Context(t), Config{}), "already started")

	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	other := New(nil)
	err = other.Init(testutil.Context(t), Config{BaseDir: t.TempDir(), Host: "127.0.0.1", Port: p})
	assert.ErrorContains(t, err, "failed to listen")
	assert.False(t, other.Started())
}

func TestInject(t *testing.T) {
	snip := []byte("<x>")
	assert.Equal(t, "<body>a</body><p><x></BODY>", string(inject([]byte("<body>a</body><p></BODY>"), snip)))
	assert.Equal(t, "plain<x>", string(inject([]byte("plain"), snip)))
}
