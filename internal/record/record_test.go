package record

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/provtrack/internal/apperr"
)

type colour int

func (c colour) String() string { return [...]string{"red", "green"}[c] }

type opaque struct{ A int }

func TestNewLocation(t *testing.T) {
	dir := t.TempDir()
	rel, err := filepath.Rel(mustWd(t), filepath.Join(dir, "a", "..", "b.cnt"))
	require.NoError(t, err)

	loc := NewLocation(rel)
	require.Equal(t, filepath.Join(dir, "b.cnt"), loc.String())
	require.False(t, loc.IsURL())
	require.Equal(t, ".cnt", loc.Ext())

	url := NewLocation("http://example.org/data/T1.PAR")
	require.Equal(t, Location("http://example.org/data/T1.PAR"), url)
	require.True(t, url.IsURL())
	require.Equal(t, ".par", url.Ext())

	_, ok := url.Path()
	require.False(t, ok)

	require.Equal(t, Location(""), NewLocation("  "))
}

func TestLocationURL(t *testing.T) {
	require.Equal(t, "file:///data/JB.cnt", Location("/data/JB.cnt").URL())

	p, ok := Location("file:///data/JB.cnt").Path()
	require.True(t, ok)
	require.Equal(t, filepath.FromSlash("/data/JB.cnt"), p)
}

func TestEncode(t *testing.T) {
	acquired := time.Date(2015, 3, 9, 14, 30, 0, 0, time.UTC)
	r := Record{
		FieldLocation: "/data/JB.cnt",
		FieldAcquired: acquired,
		FieldDuration: 90 * time.Second,
		FieldParents:  []string{"/data/raw.cnt"},
		"colour":      colour(1),
		"nested":      []any{opaque{A: 1}, map[string]any{"c": colour(0)}},
		"dims":        []int{2, 3},
	}

	got := Encode(r)
	require.Equal(t, "2015-03-09T14:30:00Z", got[FieldAcquired])
	require.Equal(t, 90.0, got[FieldDuration])
	require.Equal(t, []any{"/data/raw.cnt"}, got[FieldParents])
	require.Equal(t, "green", got["colour"])
	require.Equal(t, []any{"{1}", map[string]any{"c": "red"}}, got["nested"])
	require.Equal(t, []any{int64(2), int64(3)}, got["dims"])
}

func TestMarshalRoundTrip(t *testing.T) {
	r := Record{
		FieldLocation:          "/data/JB.cnt",
		FieldAcquired:          time.Date(2015, 3, 9, 14, 30, 0, 0, time.UTC),
		FieldCreated:           time.Date(2016, 1, 2, 3, 4, 5, 600, time.UTC),
		FieldDuration:          1500 * time.Millisecond,
		FieldSubject:           "JB",
		FieldSize:              int64(2048),
		FieldSamplingFrequency: 250.5,
		FieldTransient:         false,
		FieldParents:           []string{"/a", "/b"},
		FieldKwargs:            map[string]any{"k": int64(1)},
	}

	data, err := Marshal(r)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)

	require.True(t, Equal(r, back))
	d, ok := back.Duration(FieldDuration)
	require.True(t, ok)
	require.Equal(t, 1500*time.Millisecond, d)
	n, ok := back.Int(FieldSize)
	require.True(t, ok)
	require.Equal(t, int64(2048), n)
	require.Equal(t, []string{"/a", "/b"}, back.Parents())
}

func TestUnmarshalZonelessTimestamp(t *testing.T) {
	r, err := Unmarshal([]byte(`{"location":"/x","acquired":"2015-03-09T14:30:00.5"}`))
	require.NoError(t, err)
	got, ok := r.Time(FieldAcquired)
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2015, 3, 9, 14, 30, 0, 5e8, time.Local)), got)
}

func TestUnmarshalMalformed(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`null`,
		`{"acquired":"yesterday"}`,
		`{"acquired":12}`,
		`{"duration":"long"}`,
		`{"parents":"x"}`,
	} {
		_, err := Unmarshal([]byte(in))
		require.Error(t, err, in)
		require.True(t, errors.Is(err, apperr.ErrMalformed), in)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := Record{FieldParents: []string{"/a"}, FieldKwargs: map[string]any{"k": 1}}
	c := r.Clone()
	c.Parents()[0] = "/b"
	c[FieldKwargs].(map[string]any)["k"] = 2

	require.Equal(t, []string{"/a"}, r.Parents())
	require.Equal(t, 1, r[FieldKwargs].(map[string]any)["k"])
}

func TestEqualNumbersByValue(t *testing.T) {
	require.True(t, Equal(Record{"n": 3}, Record{"n": int64(3)}))
	require.True(t, Equal(Record{"n": 3.0}, Record{"n": uint8(3)}))
	require.False(t, Equal(Record{"n": 3}, Record{"n": 4}))
	require.False(t, Equal(Record{"n": 3}, Record{"m": 3}))
}

func mustWd(t *testing.T) string {
	t.Helper()
	wd, err := filepath.Abs(".")
	require.NoError(t, err)
	return wd
}
