// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"strings"
)

// SplitURL splits an absolute "scheme://host/path" URL into its host
// and path. The scheme is ignored: the connection decides the security
// of the transport. The host is everything between "://" and the next
// '/', and the path is the remainder including that '/' (query string
// included), so host+path always reproduces the URL after "://".
func SplitURL(rawURL string) (host, path string, err error) {
	schemeEnd := strings.Index(rawURL, "://")
	if schemeEnd == -1 {
		return "", "", fmt.Errorf("%w: %q has no scheme separator", ErrInvalidURL, rawURL)
	}
	remainder := rawURL[schemeEnd+3:]

	pathStart := strings.IndexByte(remainder, '/')
	if pathStart == -1 {
		return "", "", fmt.Errorf("%w: %q has no path", ErrInvalidURL, rawURL)
	}
	return remainder[:pathStart], remainder[pathStart:], nil
}
