package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dukerupert/vor/internal/domain"
)

// Common limit values
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize is the default maximum request body size (10MB).
	// Batch payloads are the largest requests this API accepts.
	DefaultMaxBodySize = 10 * MB

	// DefaultTimeout is the default request timeout (30 seconds)
	DefaultTimeout = 30 * time.Second

	// LongTimeout is for synchronous batch requests, which pace one
	// provider call per record (2 minutes)
	LongTimeout = 2 * time.Minute
)

// MaxBodySize limits the size of request bodies.
// Requests whose body exceeds maxBytes are rejected with a 413 JSON
// error before reaching the handler.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				respondWithError(w, r, domain.Errorf(domain.ETOOLARGE, "", "Request body too large"))
				return
			}

			// Wrap the body so chunked requests are bounded too
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds request processing. Handlers that do not complete in
// time get their context cancelled and the client receives a 503 JSON
// error, provided nothing has been written yet.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})

			// Wrap the response writer to detect if we've started writing
			tw := &timeoutWriter{ResponseWriter: w}

			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()

				tw.timedOut = true
				if !tw.wroteHeader {
					// Only respond if the handler hasn't started; a
					// partially written response cannot be salvaged.
					tw.wroteHeader = true
					respondWithError(w, r, domain.Errorf(domain.EUNAVAILABLE, "", "Request timed out"))
				}
			}
		})
	}
}

// timeoutWriter wraps http.ResponseWriter so a late handler cannot
// touch the response once the timeout reply has gone out.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.wroteHeader || tw.timedOut {
		return
	}
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, context.DeadlineExceeded
	}
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}
