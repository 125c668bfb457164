package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the aggregated status of mon as JSON. Unhealthy systems
// answer 503 so load balancers and probes can act on the code alone.
func Handler(mon *Monitor, systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := mon.Check(systemName)

		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
}
