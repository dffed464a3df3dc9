package api

import (
	"log/slog"
	"net/http"

	"github.com/intervox-ai/intervox/internal/metrics"
	"github.com/intervox-ai/intervox/internal/rategate"
)

// RateLimit enforces the per-requester request rate in front of the
// interview endpoints. The gate records before it counts, so a rejected
// request still burns a slot. On Redis errors it fails open.
func RateLimit(gate *rategate.Gate, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rategate.RequesterKey(r)

			hits, err := gate.Record(r.Context(), key, r.URL.Path)
			if err != nil {
				slog.Warn("rate gate: redis error, failing open", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if hits > limit {
				metrics.RateGateRejectionsTotal.Inc()
				HandleError(w, ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
