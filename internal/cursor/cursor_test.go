package cursor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/social-backend/internal/apperr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	score := 12.345678901234
	asOf := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	keys := []Key{
		{T: time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC), ID: uuid.New()},
		{T: time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), ID: uuid.New(), Score: &score, AsOf: &asOf},
	}
	for _, k := range keys {
		got, err := Decode(Encode(k))
		require.NoError(t, err)
		assert.True(t, k.T.Equal(got.T))
		assert.Equal(t, k.ID, got.ID)
		if k.Score != nil {
			require.NotNil(t, got.Score)
			assert.Equal(t, *k.Score, *got.Score)
			assert.True(t, k.AsOf.Equal(*got.AsOf))
		} else {
			assert.Nil(t, got.Score)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"!!!", "bm90LWpzb24", Encode(Key{ID: uuid.New()}), Encode(Key{T: time.Now()})} {
		_, err := Decode(in)
		assert.True(t, apperr.IsKind(err, apperr.KindBadRequest), in)
	}
}

func TestPageNormalize(t *testing.T) {
	limit, k, err := Page{}.Normalize(100)
	require.NoError(t, err)
	assert.Equal(t, DefaultFirst, limit)
	assert.Nil(t, k)

	limit, _, err = Page{First: 5000}.Normalize(100)
	require.NoError(t, err)
	assert.Equal(t, 100, limit)

	_, _, err = Page{First: -1}.Normalize(100)
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	_, _, err = Page{First: 10, After: "garbage*"}.Normalize(100)
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	want := Key{T: time.Now().UTC(), ID: uuid.New()}
	_, k, err = Page{First: 10, After: Encode(want)}.Normalize(100)
	require.NoError(t, err)
	assert.Equal(t, want.ID, k.ID)
}

func TestBuild(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	type row struct {
		at time.Time
		id uuid.UUID
	}
	rows := []row{{base.Add(3 * time.Minute), uuid.New()}, {base.Add(2 * time.Minute), uuid.New()}, {base.Add(time.Minute), uuid.New()}}
	keyOf := func(r row) Key { return Key{T: r.at, ID: r.id} }
	toNode := func(r row) uuid.UUID { return r.id }

	conn := Build(rows, 2, keyOf, toNode)
	require.Len(t, conn.Edges, 2)
	assert.True(t, conn.PageInfo.HasNextPage)
	require.NotNil(t, conn.PageInfo.EndCursor)
	assert.Equal(t, conn.Edges[1].Cursor, *conn.PageInfo.EndCursor)

	conn = Build(rows, 3, keyOf, toNode)
	assert.False(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, []uuid.UUID{rows[0].id, rows[1].id, rows[2].id}, conn.Nodes())

	empty := Build([]row{}, 10, keyOf, toNode)
	assert.Empty(t, empty.Edges)
	assert.Nil(t, empty.PageInfo.EndCursor)
	assert.False(t, empty.PageInfo.HasNextPage)
}

func TestBefore(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")
	k := Key{T: at, ID: high}

	assert.True(t, Before(k, at.Add(-time.Second), high))
	assert.True(t, Before(k, at, low))
	assert.False(t, Before(k, at, high))
	assert.False(t, Before(k, at.Add(time.Second), low))
}
