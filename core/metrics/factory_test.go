package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/glpdispatch/core/factory"
	metrics "github.com/kilianp07/glpdispatch/core/metrics"
	_ "github.com/kilianp07/glpdispatch/infra/metrics"
)

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "missing"}})
	assert.ErrorContains(t, err, "metrics sink 1 (missing)")
}

func TestSinkTypes(t *testing.T) {
	assert.Subset(t, metrics.SinkTypes(), []string{"influx", "nop", "prometheus"})
	assert.Error(t, metrics.RegisterMetricsSink("nop", func(map[string]any) (metrics.MetricsSink, error) {
		return metrics.NopSink{}, nil
	}))
}

func TestMetricsConfigDecode(t *testing.T) {
	var fromYAML metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte("sinks:\n  - type: nop\n  - type: nop\n"), &fromYAML))
	fromYAML.SetDefaults()
	require.NoError(t, fromYAML.Validate())
	s, err := metrics.NewMetricsSink(fromYAML.Sinks)
	require.NoError(t, err)
	assert.IsType(t, &metrics.MultiSink{}, s)

	var fromJSON metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}],"prometheus_port":"9100"}`), &fromJSON))
	assert.ErrorContains(t, fromJSON.Validate(), `unknown type "missing"`)
	_, err = metrics.NewMetricsSink(fromJSON.Sinks)
	assert.Error(t, err)
}

func TestMetricsConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  metrics.Config
		want string
	}{
		{"empty type", metrics.Config{Sinks: []factory.ModuleConfig{{}}, PrometheusPort: "9090"}, "type is required"},
		{"port text", metrics.Config{PrometheusPort: "metrics"}, "prometheus_port"},
		{"port range", metrics.Config{PrometheusPort: "70000"}, "prometheus_port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorContains(t, tc.cfg.Validate(), tc.want)
		})
	}
	ok := metrics.Config{Sinks: []factory.ModuleConfig{{Type: "prometheus"}}}
	ok.SetDefaults()
	assert.NoError(t, ok.Validate())
}
