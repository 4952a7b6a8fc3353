package rest

import (
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/paralympics/authapi/internal/server/respond"
	"golang.org/x/time/rate"
)

// exposeRequestID echoes the id assigned by middleware.RequestID.
func exposeRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a handler panic into a JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error(r.Context(), "panic in handler",
					"panic", rec,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				respond.Message(w, http.StatusInternalServerError, messageInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// loginRateLimiter enforces a per-client token bucket keyed on the remote
// address. X-Forwarded-For is ignored so clients cannot pick their key.
func loginRateLimiter(perSecond float64, burst int, now func() time.Time) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}

	var (
		clients   sync.Map // map[string]*clientLimiter
		lastSweep atomic.Int64
	)

	sweep := func(t time.Time) {
		prev := lastSweep.Load()
		if t.UnixNano()-prev < int64(limiterIdleTTL) || !lastSweep.CompareAndSwap(prev, t.UnixNano()) {
			return
		}
		clients.Range(func(key, value any) bool {
			if t.UnixNano()-value.(*clientLimiter).lastSeen.Load() > int64(limiterIdleTTL) {
				clients.Delete(key)
			}
			return true
		})
	}

	getLimiter := func(ip string, t time.Time) *rate.Limiter {
		v, _ := clients.LoadOrStore(ip, &clientLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)})
		cl := v.(*clientLimiter)
		cl.lastSeen.Store(t.UnixNano())
		return cl.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := now()
			sweep(t)

			reservation := getLimiter(clientIP(r), t).ReserveN(t, 1)
			if !reservation.OK() {
				writeTooManyRequests(w, 0)
				return
			}
			if delay := reservation.DelayFrom(t); delay > 0 {
				reservation.CancelAt(t)
				writeTooManyRequests(w, int(math.Ceil(delay.Seconds())))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	respond.Message(w, http.StatusTooManyRequests, "too many login attempts, try again later")
}
