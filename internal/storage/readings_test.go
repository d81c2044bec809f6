package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/rfid-ingest/internal/model"
)

func TestInsertOneSQL(t *testing.T) {
	want := "INSERT INTO rfid_readings (tag_id, device_id, read_at, latitude, longitude, altitude) " +
		"VALUES ($1, $2, $3, $4, $5, $6) RETURNING " + returningColumns
	assert.Equal(t, want, insertOneSQL)
}

func TestInsertBatchSQL(t *testing.T) {
	assert.Contains(t, insertBatchSQL, "WITH ORDINALITY")
	assert.Contains(t, insertBatchSQL, "RETURNING "+returningColumns)
	assert.True(t, strings.HasSuffix(insertBatchSQL, "ORDER BY input.ord"))
	assert.NotContains(t, insertBatchSQL, "$7", "the statement takes one array per column")
}

func TestBatchArgs(t *testing.T) {
	ts := "2024-01-01T00:00:00Z"
	lat, alt := 12.5, 300.0
	args := batchArgs([]model.Reading{
		{TagID: "T1", DeviceID: "D1", Timestamp: &ts, Latitude: &lat},
		{TagID: "T2", DeviceID: "D2", Altitude: &alt},
	})

	require.Len(t, args, 6)
	assert.Equal(t, []string{"T1", "T2"}, args[0])
	assert.Equal(t, []string{"D1", "D2"}, args[1])
	assert.Equal(t, []*string{&ts, nil}, args[2])
	assert.Equal(t, []*float64{&lat, nil}, args[3])
	assert.Equal(t, []*float64{nil, nil}, args[4])
	assert.Equal(t, []*float64{nil, &alt}, args[5])
}

func TestByOrdinal(t *testing.T) {
	row := func(ord int64, tag string) orderedRow {
		return orderedRow{ord: ord, row: model.InsertedRow{ID: 100 + ord, Reading: model.Reading{TagID: tag}}}
	}

	t.Run("places rows by ordinal regardless of return order", func(t *testing.T) {
		got, err := byOrdinal(3, []orderedRow{row(3, "c"), row(1, "a"), row(2, "b")})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].TagID)
		assert.Equal(t, "b", got[1].TagID)
		assert.Equal(t, "c", got[2].TagID)
		assert.Equal(t, int64(101), got[0].ID)
	})

	tests := []struct {
		name    string
		n       int
		rows    []orderedRow
		wantErr string
	}{
		{name: "too few rows", n: 2, rows: []orderedRow{row(1, "a")}, wantErr: "1 rows returned for 2 readings"},
		{name: "ordinal out of range", n: 2, rows: []orderedRow{row(1, "a"), row(3, "c")}, wantErr: "outside 1..2"},
		{name: "zero ordinal", n: 1, rows: []orderedRow{row(0, "a")}, wantErr: "outside 1..1"},
		{name: "duplicate ordinal", n: 2, rows: []orderedRow{row(2, "a"), row(2, "b")}, wantErr: "returned twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := byOrdinal(tt.n, tt.rows)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReadingArgs(t *testing.T) {
	lat, lon := 12.5, -3.25
	ts := "2024-01-01T00:00:00Z"
	args := readingArgs(model.Reading{
		TagID:     "T1",
		DeviceID:  "D1",
		Timestamp: &ts,
		Latitude:  &lat,
		Longitude: &lon,
	})

	assert.Len(t, args, 6)
	assert.Equal(t, "T1", args[0])
	assert.Equal(t, "D1", args[1])
	assert.Equal(t, &ts, args[2])
	assert.Equal(t, &lat, args[3])
	assert.Equal(t, &lon, args[4])
	assert.Nil(t, args[5].(*float64))
}
