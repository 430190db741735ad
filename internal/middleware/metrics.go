package middleware

import (
	"net/http"
	"time"

	"github.com/share-pet/share-pet/pkg/metrics"
)

// Metrics reports every request to Prometheus, labelled by the matched
// route pattern so path parameters do not explode the label set.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := newStatusRecorder(w)

		next.ServeHTTP(recorder, r)

		// ServeMux fills in Pattern on the request it was handed.
		metrics.RecordHTTPRequest(r.Pattern, r.Method, recorder.Status(), time.Since(start))
	})
}
