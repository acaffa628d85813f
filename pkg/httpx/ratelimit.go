package httpx

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/folio/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// with at most Burst tokens banked.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// String renders the config in the form ParseRateLimit accepts.
func (c RateLimitConfig) String() string {
	return fmt.Sprintf("%d/%s,%d", c.RequestsPerWindow, c.Window, c.Burst)
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Tiers used by the builder routes. Each can be replaced at startup with
// RATELIMIT_<TIER>, e.g. RATELIMIT_STRICT=10/1m,10.
var (
	// StrictLimit covers calls that fan out to paid collaborators: AI
	// generation and image uploads.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers draft creation, publishing and event streams.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers field edits and step navigation, which the UI
	// sends often.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers the public viewer and health checks.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = rateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = rateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = rateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = rateLimitFromEnv("PUBLIC", PublicLimit)
}

func rateLimitFromEnv(tier string, def RateLimitConfig) RateLimitConfig {
	return ParseRateLimit(os.Getenv("RATELIMIT_"+tier), def)
}

// ParseRateLimit reads "<requests>/<window>[,<burst>]", for example
// "20/1m" or "100/30s,150". Burst defaults to the request count. Anything
// malformed or non-positive yields def unchanged.
func ParseRateLimit(s string, def RateLimitConfig) RateLimitConfig {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}

	spec, burstStr, hasBurst := strings.Cut(s, ",")
	reqStr, windowStr, ok := strings.Cut(spec, "/")
	if !ok {
		return def
	}

	requests, err := strconv.Atoi(strings.TrimSpace(reqStr))
	if err != nil || requests <= 0 {
		return def
	}
	window, err := time.ParseDuration(strings.TrimSpace(windowStr))
	if err != nil || window <= 0 {
		return def
	}

	burst := requests
	if hasBurst {
		burst, err = strconv.Atoi(strings.TrimSpace(burstStr))
		if err != nil || burst <= 0 {
			return def
		}
	}

	return RateLimitConfig{RequestsPerWindow: requests, Window: window, Burst: burst}
}

// KeyExtractor names the bucket a request draws from. An empty key skips
// limiting for that request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserIDKeyExtractor uses the authenticated subject, or nothing.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// userOrIPKey buckets authenticated callers per user wherever they connect
// from, and everyone else per address.
func userOrIPKey(r *http.Request) string {
	if id := UserIDKeyExtractor(r); id != "" {
		return "user:" + id
	}
	return "ip:" + IPKeyExtractor(r)
}

// limiterIdleTTL is how long an untouched bucket is kept. After that it
// would be full again anyway.
const limiterIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one bucket per key and evicts idle ones as it goes.
type limiterSet struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{
		cfg:       cfg,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > limiterIdleTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.cfg.limit(), s.cfg.Burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// RateLimitMiddleware rejects requests over cfg with 429, a Retry-After
// header and a transient error body.
func RateLimitMiddleware(cfg RateLimitConfig, key KeyExtractor) Middleware {
	set := newLimiterSet(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request, not limiting")
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			limiter := set.get(k, now)
			if limiter.AllowN(now, 1) {
				next.ServeHTTP(w, r)
				return
			}

			res := limiter.ReserveN(now, 1)
			retryAfter := max(int(res.DelayFrom(now).Round(time.Second).Seconds()), 1)
			res.CancelAt(now)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteError(w, http.StatusTooManyRequests, ErrorBody{
				Kind:    "transient",
				Message: "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits per authenticated user, falling back to the client
// address for anonymous requests.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, userOrIPKey)
}
