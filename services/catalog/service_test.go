package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"anidata-backend/lib/sink"
	"anidata-backend/lib/throttle"

	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, siteUrl string) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewService(Options{
		SiteUrl:   siteUrl,
		UserAgent: "test-agent",
		OutputDir: dir,
		Sleeper:   throttle.Nop{},
	})
	require.NoError(t, err)
	return svc, dir
}

func detailPage(siteUrl string, id int) string {
	return fmt.Sprintf(`<html><body>
<p itemprop="description">A story about %[2]d.</p>
<a href="%[1]s/anime/%[2]d/stats">Stats</a>
<a href="%[1]s/anime/%[2]d/userrecs">Recommendations</a>
<a href="%[1]s/anime/%[2]d/reviews">Reviews</a>
</body></html>`, siteUrl, id)
}

func statsPage(name string) string {
	return fmt.Sprintf(`<html><body>
<h1 class="title-name">%s</h1>
<span itemprop="ratingValue">8.11</span>
</body></html>`, name)
}

func reviewsPage() string {
	return `<html><body>
<div class="tags">Recommended Funny</div>
<div class="text">Loved it.</div>
</body></html>`
}

func TestScrapeTitlePersistsRecordAndReviews(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/anime/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage(server.URL, 5))
	})
	mux.HandleFunc("/anime/5/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsPage("Cowboy Bebop"))
	})
	mux.HandleFunc("/anime/5/userrecs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	})
	mux.HandleFunc("/anime/5/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reviewsPage())
	})

	svc, dir := newService(t, server.URL)
	require.NoError(t, svc.ScrapeTitle(context.Background(), 5))

	names, err := sink.ReadColumn(filepath.Join(dir, InfoFile), "Name")
	require.NoError(t, err)
	require.Equal(t, []string{"Cowboy Bebop"}, names)

	tags, err := sink.ReadColumn(filepath.Join(dir, ReviewsFile), "Tags")
	require.NoError(t, err)
	require.Equal(t, []string{"Recommended, Funny"}, tags)

	// nothing failed, so the ledger stays empty (not even a header)
	info, err := os.Stat(filepath.Join(dir, LedgerFile))
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestScrapeTitleLedgersDeniedTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	svc, dir := newService(t, server.URL)
	require.NoError(t, svc.ScrapeTitle(context.Background(), 40028))

	ids, err := sink.ReadColumn(filepath.Join(dir, LedgerFile), "MAL_Id")
	require.NoError(t, err)
	require.Equal(t, []string{"40028"}, ids)

	urls, err := sink.ReadColumn(filepath.Join(dir, LedgerFile), "URL")
	require.NoError(t, err)
	require.Equal(t, []string{server.URL + "/anime/40028"}, urls)

	// the denied title produced no detail row
	info, err := os.Stat(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestScrapeTitleLedgersDeniedSubPage(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/anime/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage(server.URL, 5))
	})
	mux.HandleFunc("/anime/5/stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/anime/5/userrecs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	})
	mux.HandleFunc("/anime/5/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reviewsPage())
	})

	svc, dir := newService(t, server.URL)
	require.NoError(t, svc.ScrapeTitle(context.Background(), 5))

	// the record still goes out, with the stats fields left at the sentinel
	names, err := sink.ReadColumn(filepath.Join(dir, InfoFile), "Name")
	require.NoError(t, err)
	require.Equal(t, []string{"?"}, names)

	// but the denied stats page lands in the ledger for a later run
	ids, err := sink.ReadColumn(filepath.Join(dir, LedgerFile), "MAL_Id")
	require.NoError(t, err)
	require.Equal(t, []string{"5"}, ids)

	urls, err := sink.ReadColumn(filepath.Join(dir, LedgerFile), "URL")
	require.NoError(t, err)
	require.Equal(t, []string{server.URL + "/anime/5/stats"}, urls)
}

func TestScrapeTitlesResumesFromOffset(t *testing.T) {
	var fetched []string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	for _, id := range []int{1, 2, 3} {
		id := id
		mux.HandleFunc(fmt.Sprintf("/anime/%d", id), func(w http.ResponseWriter, r *http.Request) {
			fetched = append(fetched, r.URL.Path)
			fmt.Fprintf(w, `<html><body><p itemprop="description">Entry %d.</p></body></html>`, id)
		})
	}

	svc, dir := newService(t, server.URL)
	listPath := filepath.Join(dir, TopFile)
	require.NoError(t, sink.WriteTable(listPath,
		[]string{"Id", "Rank"},
		[][]string{{"1", "1"}, {"2", "2"}, {"3", "3"}}))

	processed, err := svc.ScrapeTitles(context.Background(), listPath, 1)
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.Equal(t, []string{"/anime/2", "/anime/3"}, fetched)

	ids, err := sink.ReadColumn(filepath.Join(dir, InfoFile), "MAL_Id")
	require.NoError(t, err)
	require.Equal(t, []string{"2", "3"}, ids)
}
