package solutionlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

func sampleRecords() []Record {
	return []Record{
		{Timestamp: t0, PacketID: "p0", Index: 0, Kind: "NORMAL", IntervalStart: t0, IntervalEnd: t0.Add(2 * time.Hour), Fitness: 12, Feasible: true, Trucks: []string{"TA01"}},
		{Timestamp: t0.Add(time.Hour), PacketID: "p1", Index: 1, Kind: "PATCH", IntervalStart: t0.Add(time.Hour), IntervalEnd: t0.Add(2 * time.Hour), Fitness: 7, Feasible: true, Trucks: []string{"TB01"}},
		{Timestamp: t0.Add(2 * time.Hour), PacketID: "p2", Index: 2, Kind: "EMERGENCY", IntervalStart: t0.Add(2 * time.Hour), IntervalEnd: t0.Add(4 * time.Hour)},
	}
}

func TestQueryMatch(t *testing.T) {
	recs := sampleRecords()
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{}, []string{"p0", "p1", "p2"}},
		{"kind", Query{Kind: "PATCH"}, []string{"p1"}},
		{"truck", Query{TruckCode: "TA01"}, []string{"p0"}},
		{"window", Query{Start: t0.Add(30 * time.Minute), End: t0.Add(90 * time.Minute)}, []string{"p1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, r := range recs {
				if tc.q.Match(r) {
					got = append(got, r.PacketID)
				}
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJSONLStore_AppendQuery(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "packets.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	for _, r := range sampleRecords() {
		require.NoError(t, store.Append(context.Background(), r))
	}
	out, err := store.Query(context.Background(), Query{Kind: "NORMAL"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "p0", out[0].PacketID)
	assert.True(t, out[0].Timestamp.Equal(t0))
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packets.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	payload, _ := json.Marshal(map[string]string{"pad": string(make([]byte, 64*1024))})
	rec := Record{Timestamp: t0, PacketID: "big", Kind: "NORMAL", Packet: payload}
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "packets*.jsonl"))
	assert.Greater(t, len(files), 1)

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:solutionlog_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	for _, r := range sampleRecords() {
		require.NoError(t, store.Append(context.Background(), r))
	}
	out, err := store.Query(context.Background(), Query{TruckCode: "TB01"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "PATCH", out[0].Kind)

	out, err = store.Query(context.Background(), Query{Start: t0.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "p2", out[0].PacketID)
}

func TestNew(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = New(Config{Backend: "jsonl"})
	assert.Error(t, err)

	_, err = New(Config{Backend: "parquet", Path: "x"})
	assert.ErrorContains(t, err, "unknown module type")

	s, err = New(Config{Backend: "rotating", Path: filepath.Join(t.TempDir(), "p.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	_ = s.Close()
}
