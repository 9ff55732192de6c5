package observability

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

const panicBody = `{"detail":"Internal server error"}` + "\n"

// RecoverPanic logs a recovered panic on logger, tagged with task. Call it
// directly in a defer; the panic is not re-raised.
func RecoverPanic(logger *Logger, task string) {
	if r := recover(); r != nil {
		logPanic(logger, task, r)
	}
}

func logPanic(logger *Logger, task string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic":   fmt.Sprint(r),
		"stack":   string(debug.Stack()),
		"context": task,
	}).Error("PANIC recovered")
}

// RecoveryMiddleware turns a handler panic into a 500 response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logPanic(FromContext(r.Context()), r.Method+" "+r.URL.Path, rec)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(panicBody))
		}()
		next.ServeHTTP(w, r)
	})
}
