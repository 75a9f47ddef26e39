// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckTLSConfig reports whether TLS should be enabled. Both paths must be
// set together and must load as a certificate/key pair.
func CheckTLSConfig(certPath, keyPath string) (bool, error) {
	if certPath == "" && keyPath == "" {
		return false, nil
	}
	if certPath == "" || keyPath == "" {
		return false, fmt.Errorf("both tls_cert and tls_key must be specified (got cert=%q, key=%q)", certPath, keyPath)
	}

	certPath = expandPath(certPath)
	keyPath = expandPath(keyPath)

	if _, err := os.Stat(certPath); err != nil {
		return false, fmt.Errorf("tls_cert file not found: %s", certPath)
	}
	if _, err := os.Stat(keyPath); err != nil {
		return false, fmt.Errorf("tls_key file not found: %s", keyPath)
	}
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		return false, fmt.Errorf("load TLS key pair: %w", err)
	}
	return true, nil
}

// expandPath expands a leading ~/ to the home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
