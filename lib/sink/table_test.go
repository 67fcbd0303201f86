package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = Delimiter
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestTableHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	header := []string{"Username", "Anime_Id", "Rating_Score"}

	table, err := OpenTable(path, header)
	require.NoError(t, err)
	require.NoError(t, table.Append([]string{"alice", "5114", "9"}))
	require.NoError(t, table.Close())

	// a second run appends rows only
	table, err = OpenTable(path, header)
	require.NoError(t, err)
	require.NoError(t, table.Append([]string{"bob", "1535", "7"}))
	require.NoError(t, table.Close())

	rows := readRows(t, path)
	require.Equal(t, [][]string{
		header,
		{"alice", "5114", "9"},
		{"bob", "1535", "7"},
	}, rows)
}

func TestTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	header := []string{
		"Username", "User_Id", "Anime_Id", "Anime_Title", "Rating_Status",
		"Rating_Score", "Num_Epi_Watched", "Is_Rewatching", "Updated", "Start_Date",
	}
	values := []string{
		"alice", "0", "5114", "Fullmetal Alchemist: Brotherhood", "completed",
		"10", "64", "false", "2021-08-01T12:00:00+00:00", "2021-06-11",
	}

	table, err := OpenTable(path, header)
	require.NoError(t, err)
	require.NoError(t, table.Append(values))
	require.NoError(t, table.Close())

	rows := readRows(t, path)
	require.Equal(t, values, rows[1])
}

func TestTableSanitizesDelimiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")

	table, err := OpenTable(path, []string{"MAL_Id", "Review", "Tags"})
	require.NoError(t, err)
	require.NoError(t, table.Append([]string{
		"21", "great|show\nwould watch\r\nagain", "Recommended",
	}))
	require.NoError(t, table.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	require.Equal(t, "great show would watch  again", rows[1][1])
}

func TestWriteTableOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.csv")
	header := []string{"Id", "Rank", "Title"}

	require.NoError(t, WriteTable(path, header, [][]string{{"1", "1", "old"}}))
	require.NoError(t, WriteTable(path, header, [][]string{
		{"5114", "1", "Fullmetal Alchemist: Brotherhood"},
		{"9253", "2", "Steins;Gate"},
	}))

	rows := readRows(t, path)
	require.Equal(t, 3, len(rows))
	require.Equal(t, "5114", rows[1][0])
}

func TestReadColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.csv")
	require.NoError(t, WriteTable(
		path,
		[]string{"Id", "Rank", "Title"},
		[][]string{{"5114", "1", "a"}, {"9253", "2", "b"}},
	))

	ids, err := ReadColumn(path, "Id")
	require.NoError(t, err)
	require.Equal(t, []string{"5114", "9253"}, ids)

	_, err = ReadColumn(path, "Nope")
	require.Error(t, err)
}

func TestLedgerAppendsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log_id.csv")

	ledger, err := OpenLedger(path, []string{"MAL_Id", "URL"})
	require.NoError(t, err)
	require.NoError(t, ledger.Record("44", "https://example.com/anime/44"))
	require.NoError(t, ledger.Record("44", "https://example.com/anime/44"))
	require.NoError(t, ledger.Close())

	rows := readRows(t, path)
	// repeat failures produce repeat entries
	require.Len(t, rows, 3)
	require.Equal(t, rows[1], rows[2])
}

func TestListReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usernames.csv")

	names, err := ReadList(path)
	require.NoError(t, err)
	require.Empty(t, names)

	list, err := OpenList(path)
	require.NoError(t, err)
	require.NoError(t, list.Append("alice"))
	require.NoError(t, list.Append("bob"))
	require.NoError(t, list.Close())

	names, err = ReadList(path)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, names)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// single column, no header
	require.Equal(t, "alice\nbob\n", strings.ReplaceAll(string(raw), "\r\n", "\n"))
}
