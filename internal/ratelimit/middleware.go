package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/internal/httpx"
	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

var ErrTooManyAttempts = errors.New("too many attempts, please try again later")

// IPResolver finds the client address of a request. X-Forwarded-For is only
// read when the socket peer is a trusted proxy; a nil resolver trusts none.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses trusted proxy addresses, given as IPs or CIDRs.
func NewIPResolver(proxies []string) (*IPResolver, error) {
	res := &IPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid address", p)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			p = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		res.trusted = append(res.trusted, n)
	}
	return res, nil
}

// ResolverFromEnv reads TRUSTED_PROXIES, a comma separated list.
func ResolverFromEnv() (*IPResolver, error) {
	return NewIPResolver(strings.Split(utilities.EnvString("TRUSTED_PROXIES", ""), ","))
}

func (res *IPResolver) trusts(ip string) bool {
	if res == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range res.trusted {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the socket peer, or when that peer is trusted, the
// rightmost X-Forwarded-For hop that is not itself a trusted proxy.
func (res *IPResolver) ClientIP(r *http.Request) string {
	ip := remoteHost(r)
	if !res.trusts(ip) {
		return ip
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			break
		}
		ip = hop
		if !res.trusts(hop) {
			break
		}
	}
	return ip
}

// ClientIP returns the socket peer address and ignores forwarding headers.
func ClientIP(r *http.Request) string { return remoteHost(r) }

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429. Limiter errors let
// the request through; an unavailable counter store must not lock users out.
func Middleware(l Limiter, ips *IPResolver, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Check(r.Context(), ips.ClientIP(r))
			if err != nil {
				logger.Warnw("rate limiter unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				httpx.WriteError(w, httpx.TooMany(ErrTooManyAttempts))
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
