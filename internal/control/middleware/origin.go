// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// SameOriginGuard rejects state-changing requests that a browser sent from a
// foreign page. Requests without Origin or Referer come from non-browser
// clients (curl, scripts) and pass.
func SameOriginGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		origin := requestOrigin(r)
		if origin == "" || origin == sameOrigin(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":  "forbidden",
			"detail": "cross-origin request rejected",
		})
	})
}

// requestOrigin returns the normalised Origin, falling back to the Referer's
// origin. "null" origins (sandboxed frames, file://) never match.
func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		if n, ok := normalizeOrigin(o); ok {
			return n
		}
		return o
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ref
	}
	n, _ := normalizeOrigin(u.Scheme + "://" + u.Host)
	return n
}

func sameOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	n, _ := normalizeOrigin(scheme + "://" + r.Host)
	return n
}

func normalizeOrigin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port == "" {
		if strings.Contains(host, ":") {
			return scheme + "://[" + host + "]", true
		}
		return scheme + "://" + host, true
	}
	return scheme + "://" + net.JoinHostPort(host, port), true
}
