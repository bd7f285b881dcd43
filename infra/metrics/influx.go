package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/glpdispatch/core/metrics"
	"github.com/kilianp07/glpdispatch/infra/logger"
)

// InfluxSink writes simulation records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordPacket writes one solution_packet point.
func (s *InfluxSink) RecordPacket(rec coremetrics.PacketRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("solution_packet").
		AddTag("kind", rec.Kind).
		AddTag("packet_id", rec.PacketID).
		AddField("index", rec.Index).
		AddField("fitness", round3(rec.Fitness)).
		AddField("trucks", rec.Trucks).
		AddField("orders", rec.Orders).
		AddField("delivered", rec.Delivered).
		AddField("blockages", rec.Blockages).
		AddField("interval_minutes", rec.IntervalEnd.Sub(rec.IntervalStart).Minutes()).
		SetTime(rec.IntervalStart)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOptimization writes an optimization_run point.
func (s *InfluxSink) RecordOptimization(rec coremetrics.OptimizationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization_run").
		AddTag("purpose", rec.Purpose).
		AddTag("failed", strconv.FormatBool(rec.Failed)).
		AddField("fitness", round3(rec.Fitness)).
		AddField("evaluations", rec.Evaluations).
		AddField("generations", rec.Generations).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBreakdown writes a truck_breakdown point.
func (s *InfluxSink) RecordBreakdown(rec coremetrics.BreakdownRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("truck_breakdown").
		AddTag("truck", rec.TruckCode).
		AddTag("incident", string(rec.Incident)).
		AddField("discarded", rec.Discarded).
		AddField("released", rec.Released).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTruckState writes one truck_state point per truck in a single request.
func (s *InfluxSink) RecordTruckState(recs []coremetrics.TruckStateRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(recs))
	for _, r := range recs {
		points = append(points, truckPoint(r))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func truckPoint(r coremetrics.TruckStateRecord) *write.Point {
	t := r.Truck
	return write.NewPointWithMeasurement("truck_state").
		AddTag("truck", t.Code).
		AddTag("class", string(t.Class)).
		AddTag("state", t.State.String()).
		AddField("x", t.Position.X).
		AddField("y", t.Position.Y).
		AddField("fuel", round3(t.FuelCurrent)).
		AddField("glp", round3(t.GLPCurrent)).
		SetTime(r.Time)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
