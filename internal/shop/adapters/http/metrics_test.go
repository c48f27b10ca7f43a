package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestWithMetricsLabelsByRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	r := chi.NewRouter()
	r.Use(WithMetrics(metrics))
	r.Get("/v1/orders/{orderID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/v1/missing/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "nope")
	})

	for _, path := range []string{"/v1/orders/a", "/v1/orders/b", "/v1/missing/c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(t.Context(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	counts := map[string]int64{}
	var inFlight int64 = -1
	var histogramPoints int
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "http_requests_total":
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatal("expected Sum[int64] data type")
				}
				for _, dp := range sum.DataPoints {
					route, _ := dp.Attributes.Value(attribute.Key("route"))
					status, _ := dp.Attributes.Value(attribute.Key("status_code"))
					counts[route.AsString()+"/"+status.Emit()] = dp.Value
				}
			case "http_request_duration_seconds":
				histogram, ok := m.Data.(metricdata.Histogram[float64])
				if !ok {
					t.Fatal("expected Histogram[float64] data type")
				}
				histogramPoints = len(histogram.DataPoints)
			case "http_requests_in_flight":
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatal("expected Sum[int64] data type")
				}
				inFlight = 0
				for _, dp := range sum.DataPoints {
					inFlight += dp.Value
				}
			}
		}
	}

	if counts["/v1/orders/{orderID}/200"] != 2 {
		t.Errorf("expected 2 requests on the order route, got %v", counts)
	}
	if counts["/v1/missing/{id}/404"] != 1 {
		t.Errorf("expected 1 not found request, got %v", counts)
	}
	if histogramPoints != 2 {
		t.Errorf("expected 2 duration series, got %d", histogramPoints)
	}
	if inFlight != 0 {
		t.Errorf("expected no requests in flight, got %d", inFlight)
	}
}

func TestWithRecoveryReturns500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := WithRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
