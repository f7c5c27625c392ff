package roster

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/kozan-lab/landgain/internal/cache"
)

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("TOPIX")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func buildCodeList(t *testing.T, csvBody string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("EdinetcodeDlInfo.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// codeListCSV builds a minimal filer registry CSV: two header rows, then data
// rows with the registry code in column 0 and the securities code in column 11.
func codeListCSV(pairs map[string]string) string {
	body := "metadata row\ncol0,col1,col2,col3,col4,col5,col6,col7,col8,col9,col10,col11\n"
	for edinetCode, secCode := range pairs {
		body += edinetCode + ",a,b,c,d,e,f,g,h,i,j," + secCode + "\n"
	}
	return body
}

func openTestCache(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"TOPIX構成銘柄", "", ""},
		{"2026/08/31", "7203", "Toyota Motor"},
		{"2026/08/31", "4746", "Token Keisan"},
		{"2026/08/31", "7203", "Toyota Motor"}, // duplicate row
		{"", "", ""},
	})

	entities, err := parseWorkbook(data, 0)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "7203", entities[0].Code)
	assert.Equal(t, "Toyota Motor", entities[0].Name)
	assert.Equal(t, "4746", entities[1].Code)
}

func TestParseWorkbookHonorsLimit(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"2026/08/31", "1111", "First"},
		{"2026/08/31", "2222", "Second"},
		{"2026/08/31", "3333", "Third"},
	})

	entities, err := parseWorkbook(data, 2)
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}

func TestParseWorkbookEmpty(t *testing.T) {
	data := buildWorkbook(t, [][]string{{"header only"}})
	_, err := parseWorkbook(data, 0)
	assert.Error(t, err)
}

func TestParseRegistry(t *testing.T) {
	archive := buildCodeList(t, codeListCSV(map[string]string{
		"E02144": "72030",
		"E05041": "47460",
	}))

	registry, err := parseRegistry(archive)
	require.NoError(t, err)
	assert.Equal(t, "E02144", registry["7203"])
	assert.Equal(t, "E05041", registry["4746"])
}

func TestParseRegistrySkipsUnlistedFilers(t *testing.T) {
	body := "metadata\nheader\n" +
		"E11111,a,b,c,d,e,f,g,h,i,j,\n" + // no securities code
		"E05041,a,b,c,d,e,f,g,h,i,j,47460\n"
	registry, err := parseRegistry(buildCodeList(t, body))
	require.NoError(t, err)
	assert.Len(t, registry, 1)
	assert.Equal(t, "E05041", registry["4746"])
}

func TestLoadJoinsWorkbookAndRegistry(t *testing.T) {
	workbook := buildWorkbook(t, [][]string{
		{"2026/08/31", "7203", "Toyota Motor"},
		{"2026/08/31", "4746", "Token Keisan"},
	})
	codeList := buildCodeList(t, codeListCSV(map[string]string{"E05041": "47460"}))

	mux := http.NewServeMux()
	mux.HandleFunc("/weights.xlsx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(workbook)
	})
	mux.HandleFunc("/codes.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(codeList)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewSource(srv.URL+"/weights.xlsx", srv.URL+"/codes.zip", 0, openTestCache(t))
	entities, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, entities, 2)
	assert.Empty(t, entities[0].EDINETCode) // not in the registry fixture
	assert.Equal(t, "E05041", entities[1].EDINETCode)
}

func TestLoadServesCacheOnSecondCall(t *testing.T) {
	workbook := buildWorkbook(t, [][]string{{"2026/08/31", "4746", "Token Keisan"}})
	codeList := buildCodeList(t, codeListCSV(map[string]string{"E05041": "47460"}))

	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/weights.xlsx", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(workbook)
	})
	mux.HandleFunc("/codes.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(codeList)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewSource(srv.URL+"/weights.xlsx", srv.URL+"/codes.zip", 0, openTestCache(t))
	ctx := context.Background()

	_, err := src.Load(ctx)
	require.NoError(t, err)
	_, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestLoadFallsBackWhenFetchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewSource(srv.URL+"/weights.xlsx", srv.URL+"/codes.zip", 5, openTestCache(t))
	entities, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, entities, 5)
	assert.Equal(t, "7203", entities[0].Code)
	assert.Equal(t, "E02144", entities[0].EDINETCode)
}

func TestFallbackRosterCopy(t *testing.T) {
	a := fallbackRoster(0)
	b := fallbackRoster(0)
	a[0].Name = "mutated"
	assert.NotEqual(t, a[0].Name, b[0].Name)
	assert.Len(t, fallbackRoster(3), 3)
}
