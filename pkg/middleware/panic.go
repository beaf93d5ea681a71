package middleware

import (
	"net/http"

	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
)

const panicMiddlewareMethodName = "PanicMiddleware"

// PanicRecovery recovers from a handler panic, reports it to the logger,
// the error tracker and the metrics provider, and answers 500 with a failed
// response.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rcv := recover(); rcv != nil {
				metrics.GetProvider().RecordPanic(panicMiddlewareMethodName)
				err := logger.HandlePanic(panicMiddlewareMethodName, rcv)
				writeFailure(w, http.StatusInternalServerError, err.Error())
			}
		}()
		next.ServeHTTP(w, r)
	})
}
