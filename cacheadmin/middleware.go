/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cacheadmin

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/acronis/go-cachekit/log"
)

const headerRequestID = "X-Request-ID"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyLogger
)

// RequestIDFromContext returns the id of the request the context belongs to.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func loggerFromContext(ctx context.Context) log.FieldLogger {
	if logger, ok := ctx.Value(ctxKeyLogger).(log.FieldLogger); ok {
		return logger
	}
	return log.NewDisabledLogger()
}

// requestIDAndLogging reads X-Request-ID (generating a new xid if it's empty), returns it in the response,
// puts a logger with the request id into the request context and logs every finished request.
func requestIDAndLogging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(headerRequestID)
			if requestID == "" {
				requestID = xid.New().String()
			}
			rw.Header().Set(headerRequestID, requestID)

			reqLogger := logger.With(log.String("request_id", requestID))
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
			ctx = context.WithValue(ctx, ctxKeyLogger, reqLogger)

			startTime := time.Now()
			ww := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLogger.Info("admin request handled",
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
				log.Int("status", status),
				log.Int("bytes_sent", ww.BytesWritten()),
				log.DurationIn(time.Since(startTime), time.Millisecond),
			)
		})
	}
}

const recoveryStackSize = 8192

// recovery responds with 500 and logs the panic value with a part of the stack.
// http.ErrAbortHandler is propagated as is.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			logger := loggerFromContext(r.Context())
			if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
				logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
				panic(p)
			}
			stack := make([]byte, recoveryStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			logger.Error(fmt.Sprintf("panic: %+v", p), log.String("stack", string(stack)))
			respondError(rw, http.StatusInternalServerError, ErrCodeInternalError, "internal error", logger)
		}()
		next.ServeHTTP(rw, r)
	})
}
