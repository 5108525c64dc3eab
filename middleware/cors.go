package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the origins a cross-domain request may come from.
	// "*" allows all origins. Default: ["*"].
	AllowOrigins []string

	// AllowMethods lists the methods the client may use.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"].
	AllowMethods []string

	// AllowHeaders lists the headers the client may send.
	// Default: ["Content-Type", "Authorization"].
	AllowHeaders []string

	// AllowCredentials indicates whether the request may include credentials.
	AllowCredentials bool

	// MaxAge is how long (in seconds) a preflight result may be cached.
	MaxAge int
}

// CORS returns an HTTP middleware that answers preflight requests and sets
// CORS headers. Pass nil for a permissive development configuration.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &CORSConfig{}
	}
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := strings.Join(defaulted(cfg.AllowMethods, []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}), ", ")
	headers := strings.Join(defaulted(cfg.AllowHeaders, []string{"Content-Type", "Authorization"}), ", ")
	wildcard := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard && cfg.AllowCredentials && origin != "":
				// The CORS spec forbids "*" together with credentials;
				// echo the requesting origin instead.
				w.Header().Set("Access-Control-Allow-Origin", origin)
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func defaulted(vs, fallback []string) []string {
	if len(vs) == 0 {
		return fallback
	}
	return vs
}
