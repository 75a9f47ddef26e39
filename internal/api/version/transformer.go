// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import "sync"

// Transformer rewrites response data for an older API version.
type Transformer func(data interface{}) interface{}

var (
	mu           sync.RWMutex
	transformers = map[string]map[string]Transformer{} // version -> endpoint -> transformer
)

// Transform applies the transformer registered for version and endpoint
// (e.g. "cases.list"). Data is returned unchanged when none is registered.
func Transform(version, endpoint string, data interface{}) interface{} {
	if version == LatestVersion {
		return data
	}

	mu.RLock()
	t, ok := transformers[version][endpoint]
	mu.RUnlock()
	if !ok {
		return data
	}
	return t(data)
}

// RegisterTransformer adds a transformer for a version and endpoint. It is
// normally called from init.
func RegisterTransformer(version, endpoint string, t Transformer) {
	mu.Lock()
	defer mu.Unlock()
	if transformers[version] == nil {
		transformers[version] = make(map[string]Transformer)
	}
	transformers[version][endpoint] = t
}
