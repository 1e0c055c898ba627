// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Scheme is the custom media URL scheme.
const Scheme = "vhs"

const schemePrefix = Scheme + "://"

var (
	// ErrInvalidScheme is returned for URLs outside the vhs scheme.
	ErrInvalidScheme = errors.New("invalid protocol scheme")
	// ErrInvalidPath is returned when the path part cannot be decoded.
	ErrInvalidPath = errors.New("invalid media path")
)

// MediaURL builds the vhs URL for an absolute filesystem path.
func MediaURL(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return schemePrefix + (&url.URL{Path: p}).EscapedPath()
}

// MediaHTTPURL is the loopback form of MediaURL served by the /vhs route,
// used by helpers that cannot speak the vhs scheme.
func MediaHTTPURL(baseURL, absPath string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + Scheme + strings.TrimPrefix(MediaURL(absPath), schemePrefix)
}

// ResolveMediaPath maps a vhs URL to an absolute filesystem path.
//
// Everything after "vhs://" is the path; a missing leading slash is added so
// "vhs://home/a.mp4" and "vhs:///home/a.mp4" name the same file. Query and
// fragment are dropped and percent-escapes decoded. On Windows the slash in
// front of a drive letter ("/C:/...") is removed.
func ResolveMediaPath(rawURL string) (string, error) {
	rest, ok := strings.CutPrefix(rawURL, schemePrefix)
	if !ok {
		return "", ErrInvalidScheme
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}

	u, err := url.Parse("file://" + rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	p := u.Path
	if p == "" || p == "/" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: NUL byte", ErrInvalidPath)
	}

	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}
