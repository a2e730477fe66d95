package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/TrendPulse/internal/models"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Sample</title>
  <item>
    <title>Growth strategy for small teams</title>
    <link>https://example.com/a</link>
    <description>&lt;p&gt;How to &lt;b&gt;grow&lt;/b&gt; the market&lt;/p&gt;</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    <enclosure url="https://example.com/a.jpg" type="image/jpeg" length="10"/>
  </item>
  <item>
    <title>Untouched weather</title>
    <link>https://example.com/b</link>
  </item>
</channel>
</rss>`

func rssServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedFetcherParsesItems(t *testing.T) {
	srv := rssServer(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	f := NewFeedFetcher(testCatalog(t, srv.URL+"/ok.xml"), 5*time.Second, nil)
	f.now = func() time.Time { return now }

	res := f.Fetch(context.Background(), "business")
	require.Equal(t, models.FetchOK, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Articles, 2)

	// 按发布时间倒序：没有日期的条目取当前时间，排在前面
	undated, dated := res.Articles[0], res.Articles[1]

	assert.Equal(t, "Untouched weather", undated.Title)
	assert.Equal(t, noSummary, undated.Summary)
	assert.True(t, undated.PublishDate.Equal(now))
	assert.Equal(t, 0, undated.RelevanceScore)

	assert.Equal(t, "Growth strategy for small teams", dated.Title)
	assert.Equal(t, "How to grow the market", dated.Summary)
	assert.Equal(t, "https://example.com/a", dated.Link)
	assert.Equal(t, "business", dated.Topic)
	assert.Equal(t, "https://example.com/a.jpg", dated.ImageURL)
	assert.Equal(t, 2006, dated.PublishDate.Year())
	// growth + strategy + market
	assert.Equal(t, 3, dated.RelevanceScore)
	assert.Equal(t, hostOf(srv.URL), dated.Source)
}

func TestFeedFetcherPartialFailureStillSucceeds(t *testing.T) {
	srv := rssServer(t)
	f := NewFeedFetcher(testCatalog(t, srv.URL+"/broken.xml", srv.URL+"/ok.xml"), 5*time.Second, nil)

	res := f.Fetch(context.Background(), "business")
	assert.Equal(t, models.FetchOK, res.Status)
	assert.NoError(t, res.Err)
	assert.Len(t, res.Articles, 2)
}

func TestFeedFetcherAllFeedsFailed(t *testing.T) {
	srv := rssServer(t)
	f := NewFeedFetcher(testCatalog(t, srv.URL+"/broken.xml", srv.URL+"/missing.xml"), 5*time.Second, nil)

	res := f.Fetch(context.Background(), "business")
	assert.Equal(t, models.FetchFailed, res.Status)
	assert.Error(t, res.Err)
	assert.Empty(t, res.Articles)
	assert.False(t, res.Succeeded())
}

func TestFeedFetcherHonoursCancelledContext(t *testing.T) {
	srv := rssServer(t)
	f := NewFeedFetcher(testCatalog(t, srv.URL+"/ok.xml"), 5*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.Fetch(ctx, "business")
	assert.Equal(t, models.FetchFailed, res.Status)
}
