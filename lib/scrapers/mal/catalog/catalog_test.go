package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/throttle"

	"github.com/stretchr/testify/require"
)

func rankingRow(rank int, score string) string {
	id := 1000 + rank
	return fmt.Sprintf(`
<tr class="ranking-list">
  <td class="rank ac"><span>%d</span></td>
  <td class="title al va-t word-break">
    <a id="#area%d" href="https://example.com/anime/%d/Title_%d">
      <img data-src="https://cdn.example.com/images/%d.jpg">
    </a>
    <div class="detail">
      <div class="di-ib clearfix"><a class="hoverinfo_trigger" href="https://example.com/anime/%d">Title %d</a></div>
      <div class="information di-ib mt4">
        TV (24 eps)
        Apr 2009 - Jul 2010
        1,234,567 members
      </div>
    </div>
  </td>
  <td class="score ac fs14"><span>%s</span></td>
</tr>`, rank, id, id, id, id, id, id, score)
}

// page builds a listing page of 50 rows starting at rank start+1;
// sentinelRow (1-based, 0 = none) renders with an N/A score.
func page(start, sentinelRow int) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><table>`)
	for i := 1; i <= 50; i++ {
		score := "8.55"
		if i == sentinelRow {
			score = "N/A"
		}
		sb.WriteString(rankingRow(start+i, score))
	}
	sb.WriteString(`</table></body></html>`)
	return sb.String()
}

func TestScrapeStopsAtFirstUnscoredRow(t *testing.T) {
	var mu sync.Mutex
	var offsets []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("limit"))
		mu.Unlock()

		switch r.URL.Query().Get("limit") {
		case "0":
			fmt.Fprint(w, page(0, 0))
		case "50":
			fmt.Fprint(w, page(50, 13))
		default:
			t.Errorf("walker polled past the sentinel page: limit=%s", r.URL.Query().Get("limit"))
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	coreClient, err := core.NewClient(core.ClientOptions{
		BaseUrl:   server.URL,
		UserAgent: "test-agent",
		Sleeper:   throttle.Nop{},
	})
	require.NoError(t, err)

	records, err := NewClient(coreClient).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 63)
	require.Equal(t, []string{"0", "50"}, offsets)

	first := records[0]
	require.Equal(t, "1001", first.Id)
	require.Equal(t, "1", first.Rank)
	require.Equal(t, "Title 1001", first.Title)
	require.Equal(t, "8.55", first.Rating)
	require.Equal(t, "https://cdn.example.com/images/1001.jpg", first.ImageUrl)
	require.Equal(t, "TV", first.Type)
	require.Equal(t, "24", first.Episodes)
	require.Equal(t, "Apr 2009 - Jul 2010", first.Dates)
	require.Equal(t, "1234567", first.Members)

	// the unscored row that terminated the walk is still included
	last := records[62]
	require.Equal(t, Unscored, last.Rating)
	require.Equal(t, "63", last.Rank)
}

func TestScrapeRetriesFlakyListingPage(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, page(0, 1))
	}))
	defer server.Close()

	coreClient, err := core.NewClient(core.ClientOptions{
		BaseUrl:   server.URL,
		UserAgent: "test-agent",
		Sleeper:   throttle.Nop{},
	})
	require.NoError(t, err)

	records, err := NewClient(coreClient).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 3, hits)
}
