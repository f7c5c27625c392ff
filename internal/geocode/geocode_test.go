package geocode

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/pkg/geocode"
)

type fakeClient struct {
	results map[string]*geocode.Result
	calls   []string
}

func (f *fakeClient) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	f.calls = append(f.calls, address)
	if r, ok := f.results[address]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func newTestResolver(t *testing.T, client geocode.Client) *Resolver {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewResolver(client, store)
}

func TestResolveHit(t *testing.T) {
	client := &fakeClient{results: map[string]*geocode.Result{
		"神奈川県川崎市中原区市ノ坪150": {Latitude: 35.57, Longitude: 139.66, Matched: true},
	}}
	r := newTestResolver(t, client)

	coord, err := r.Resolve(context.Background(), "神奈川県川崎市中原区市ノ坪150")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.InDelta(t, 35.57, coord.Lat, 1e-9)
	assert.InDelta(t, 139.66, coord.Lng, 1e-9)
}

func TestResolveCachesPermanently(t *testing.T) {
	client := &fakeClient{results: map[string]*geocode.Result{
		"東京都千代田区1-1": {Latitude: 35.68, Longitude: 139.75, Matched: true},
	}}
	r := newTestResolver(t, client)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "東京都千代田区1-1")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "東京都千代田区1-1")
	require.NoError(t, err)

	assert.Len(t, client.calls, 1)
}

func TestResolveNormalizesBeforeCaching(t *testing.T) {
	client := &fakeClient{results: map[string]*geocode.Result{
		"東京都千代田区1-1": {Latitude: 35.68, Longitude: 139.75, Matched: true},
	}}
	r := newTestResolver(t, client)
	ctx := context.Background()

	// Full-width form narrows to the same key as the half-width form.
	_, err := r.Resolve(ctx, "東京都千代田区１-１")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "東京都千代田区1-1")
	require.NoError(t, err)

	assert.Len(t, client.calls, 1)
}

func TestResolveRetriesSimplifiedAddress(t *testing.T) {
	client := &fakeClient{results: map[string]*geocode.Result{
		"神奈川県川崎市中原区市ノ坪": {Latitude: 35.57, Longitude: 139.66, Matched: true},
	}}
	r := newTestResolver(t, client)

	coord, err := r.Resolve(context.Background(), "神奈川県川崎市中原区市ノ坪150-1")
	require.NoError(t, err)
	require.NotNil(t, coord)
	require.Len(t, client.calls, 2)
	assert.Equal(t, "神奈川県川崎市中原区市ノ坪", client.calls[1])
}

func TestResolveNoMatchReturnsNil(t *testing.T) {
	client := &fakeClient{}
	r := newTestResolver(t, client)

	coord, err := r.Resolve(context.Background(), "存在しない住所")
	require.NoError(t, err)
	assert.Nil(t, coord)
}

func TestResolveEmptyAddress(t *testing.T) {
	client := &fakeClient{}
	r := newTestResolver(t, client)

	coord, err := r.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, coord)
	assert.Empty(t, client.calls)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "東京都港区芝公園4-2-8", Normalize("東京都港区芝公園４-２-８"))
	assert.Equal(t, "東京都港区", Normalize(" 東京都 港区 "))

	// Katakana place names pass through unchanged.
	assert.Equal(t, "神奈川県川崎市中原区市ノ坪150", Normalize("神奈川県川崎市中原区市ノ坪150"))
	assert.Equal(t, "東京都千代田区霞ヶ関1-1", Normalize("東京都千代田区霞ヶ関１-１"))
	// Half-width katakana folds to the regular form.
	assert.Equal(t, "神奈川県川崎市中原区市ノ坪150", Normalize("神奈川県川崎市中原区市ﾉ坪150"))
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"神奈川県川崎市市ノ坪150-1", "神奈川県川崎市市ノ坪"},
		{"東京都港区芝公園4-2-8", "東京都港区芝公園"},
		{"東京都新宿区西新宿2丁目8番1号", "東京都新宿区西新宿2丁目"},
		{"大阪府大阪市北区", "大阪府大阪市北区"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Simplify(tt.in), tt.in)
	}
}
