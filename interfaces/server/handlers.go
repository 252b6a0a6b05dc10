package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/felixgeelhaar/hoopstats/application"
	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
)

// EmptyMessageReply answers a chat request without a message.
const EmptyMessageReply = "Please provide a message."

// maxRequestBody bounds chat request bodies.
const maxRequestBody = 64 << 10

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Chart    string `json:"chart,omitempty"`
	ChartRef string `json:"chart_ref,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Add(logging.Component("server")).Add(logging.ErrorField(err)).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.asker.Ask(r.Context(), req.Message)
	switch {
	case errors.Is(err, application.ErrEmptyQuery):
		writeJSON(w, http.StatusOK, ChatResponse{Reply: EmptyMessageReply})
		return
	case err != nil:
		logging.Error().
			Add(logging.Component("server")).
			Add(logging.ErrorField(err)).
			Msg("chat request failed")
		writeJSON(w, http.StatusOK, ChatResponse{Reply: application.ErrorReply(err)})
		return
	}

	resp := ChatResponse{Reply: reply.Answer, Chart: reply.ChartBase64()}
	if reply.ChartRef != nil {
		resp.ChartRef = reply.ChartRef.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		writeError(w, http.StatusNotFound, "chart storage disabled")
		return
	}
	ref := artifact.Ref{ID: r.PathValue("id")}
	if !ref.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid chart id")
		return
	}

	rc, err := s.artifacts.Retrieve(r.Context(), ref)
	switch {
	case errors.Is(err, artifact.ErrArtifactNotFound), errors.Is(err, artifact.ErrInvalidRef):
		writeError(w, http.StatusNotFound, "chart not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "chart unavailable")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/png")
	if _, err := io.Copy(w, rc); err != nil {
		logging.Warn().Add(logging.Component("server")).Add(logging.ErrorField(err)).Msg("failed to stream chart")
	}
}

// MetricPoint is one data point in the metrics snapshot.
type MetricPoint struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

// Metric is one instrument in the metrics snapshot.
type Metric struct {
	Name   string        `json:"name"`
	Unit   string        `json:"unit,omitempty"`
	Points []MetricPoint `json:"points"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	rm, err := s.source.Collect(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]Metric{"metrics": flatten(rm)})
}

// flatten reduces sums to values and histograms to sum and count.
func flatten(rm metricdata.ResourceMetrics) []Metric {
	var out []Metric
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			metric := Metric{Name: m.Name, Unit: m.Unit}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					metric.Points = append(metric.Points, MetricPoint{Attributes: attrs(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					metric.Points = append(metric.Points, MetricPoint{Attributes: attrs(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					metric.Points = append(metric.Points, MetricPoint{Attributes: attrs(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			default:
				continue
			}
			out = append(out, metric)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func attrs(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	m := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}
