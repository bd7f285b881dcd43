package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/glpdispatch/core/metrics"
	"github.com/kilianp07/glpdispatch/core/model"
)

type influxRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (r *influxRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, strings.TrimSpace(string(data)))
		r.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSinkRecordPacket(t *testing.T) {
	rec := &influxRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordPacket(coremetrics.PacketRecord{
		PacketID:      "p1",
		Index:         4,
		Kind:          "NORMAL",
		IntervalStart: start,
		IntervalEnd:   start.Add(2 * time.Hour),
		Fitness:       123.45678,
		Trucks:        3,
		Orders:        5,
		Delivered:     2,
		Blockages:     1,
	}))

	p := write.NewPointWithMeasurement("solution_packet").
		AddTag("kind", "NORMAL").
		AddTag("packet_id", "p1").
		AddField("index", 4).
		AddField("fitness", 123.457).
		AddField("trucks", 3).
		AddField("orders", 5).
		AddField("delivered", 2).
		AddField("blockages", 1).
		AddField("interval_minutes", 120.0).
		SetTime(start)
	assert.Equal(t, []string{line(p)}, rec.bodies)
}

func TestInfluxSinkRecordBreakdownAndOptimization(t *testing.T) {
	rec := &influxRecorder{}
	sink := NewInfluxSink(rec.server(t).URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordBreakdown(coremetrics.BreakdownRecord{TruckCode: "TA01", Incident: model.IncidentTI2, Discarded: 2, Released: 3, Time: now}))
	require.NoError(t, sink.RecordOptimization(coremetrics.OptimizationRecord{Purpose: "breakdown", Fitness: 10, Evaluations: 70, Generations: 5, Duration: 1500 * time.Millisecond, Time: now}))

	bd := write.NewPointWithMeasurement("truck_breakdown").
		AddTag("truck", "TA01").
		AddTag("incident", "TI2").
		AddField("discarded", 2).
		AddField("released", 3).
		SetTime(now)
	opt := write.NewPointWithMeasurement("optimization_run").
		AddTag("purpose", "breakdown").
		AddTag("failed", "false").
		AddField("fitness", 10.0).
		AddField("evaluations", 70).
		AddField("generations", 5).
		AddField("duration_ms", 1500.0).
		SetTime(now)
	assert.Equal(t, []string{line(bd), line(opt)}, rec.bodies)
}

func TestInfluxSinkRecordTruckStateBatches(t *testing.T) {
	rec := &influxRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a, err := model.NewTruck("TA01", model.ClassTA, model.Coordinate{X: 12, Y: 8})
	require.NoError(t, err)
	b, err := model.NewTruck("TD01", model.ClassTD, model.Coordinate{X: 3, Y: 4})
	require.NoError(t, err)
	b.State = model.StateOutOfFuel
	recs := []coremetrics.TruckStateRecord{{Truck: a, Time: now}, {Truck: b, Time: now}}

	require.NoError(t, sink.RecordTruckState(recs))
	require.NoError(t, sink.RecordTruckState(nil))

	want := line(truckPoint(recs[0])) + "\n" + line(truckPoint(recs[1]))
	assert.Equal(t, []string{want}, rec.bodies)
	assert.Contains(t, want, "state=OUT_OF_FUEL")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called)
}
