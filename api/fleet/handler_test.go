package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corefleet "github.com/kilianp07/glpdispatch/core/fleet"
	"github.com/kilianp07/glpdispatch/core/model"
)

type staticSource corefleet.State

func (s staticSource) Fleet() corefleet.State { return corefleet.State(s) }

func testSource() staticSource {
	at := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	return staticSource{
		Trucks: []model.Truck{
			{Code: "TA01", Class: model.ClassTA, State: model.StateAvailable},
			{Code: "TB01", Class: model.ClassTB, State: model.StateRelocating},
			{Code: "TB02", Class: model.ClassTB, State: model.StateAvailable},
		},
		Depots: []model.Depot{{Code: "CENTRAL", Central: true}},
		Orders: []model.Order{
			{Code: "O1", State: model.OrderRegistered},
			{Code: "O2", State: model.OrderDelivered},
		},
		Breakdowns: []model.Breakdown{
			{ID: "b1", TruckCode: "TB01", Incident: model.IncidentTI2, OccurredAt: at},
		},
	}
}

func get(t *testing.T, h http.Handler, target string, out any) int {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
	}
	return rr.Code
}

func TestStatusHandlerTrucks(t *testing.T) {
	h := NewStatusHandler(testSource())

	var all []model.Truck
	require.Equal(t, http.StatusOK, get(t, h, "/api/fleet/trucks", &all))
	assert.Len(t, all, 3)

	var tb []model.Truck
	require.Equal(t, http.StatusOK, get(t, h, "/api/fleet/trucks?class=tb&state=AVAILABLE", &tb))
	require.Len(t, tb, 1)
	assert.Equal(t, "TB02", tb[0].Code)
}

func TestStatusHandlerOrdersAndBreakdowns(t *testing.T) {
	h := NewStatusHandler(testSource())

	var open []model.Order
	require.Equal(t, http.StatusOK, get(t, h, "/api/fleet/orders?state=REGISTERED", &open))
	require.Len(t, open, 1)
	assert.Equal(t, "O1", open[0].Code)

	var bds []model.Breakdown
	require.Equal(t, http.StatusOK, get(t, h, "/api/fleet/breakdowns?truck=TB01", &bds))
	require.Len(t, bds, 1)
	assert.Equal(t, model.IncidentTI2, bds[0].Incident)

	require.Equal(t, http.StatusOK, get(t, h, "/api/fleet/breakdowns?truck=TA01", &bds))
	assert.Empty(t, bds)

	var depots []model.Depot
	require.Equal(t, http.StatusOK, get(t, h, "/api/fleet/depots", &depots))
	assert.Len(t, depots, 1)
}

func TestStatusHandlerRejectsWrites(t *testing.T) {
	h := NewStatusHandler(testSource())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/fleet/trucks", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
