package core

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bodySize   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.bodySize += n
	return n, err
}

// Flush lets streamed MCP responses through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	return h.Hijack()
}

func loggingHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		log.Printf("[INFO] %s | RequestID: %s | Incoming Request: %s %s | From: %s | User-Agent: %s",
			start.Format(time.RFC3339),
			requestID,
			r.Method,
			r.URL.Path,
			r.RemoteAddr,
			r.Header.Get("User-Agent"),
		)

		handler.ServeHTTP(wrapped, r)

		log.Printf("[INFO] %s | RequestID: %s | Response Sent: %s %s | Status: %d | Duration: %v | Response Size: %d bytes",
			time.Now().Format(time.RFC3339),
			requestID,
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			time.Since(start),
			wrapped.bodySize,
		)
	})
}

// accessLog wraps handler with request logging when debug is set. Outside
// debug mode only errors are logged, by the handlers themselves.
func accessLog(debug bool, handler http.Handler) http.Handler {
	if !debug {
		return handler
	}
	return loggingHandler(handler)
}
