// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	_ "embed"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// DefaultYAML returns the embedded default catalog document. Useful for
// bootstrapping a server without an external catalog file and as a test
// fixture.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultCatalogYAML))
	copy(out, defaultCatalogYAML)
	return out
}

// LoadDefault loads the embedded default catalog.
func LoadDefault(ctx context.Context) (*CatalogConfig, error) {
	return Load(ctx, defaultCatalogYAML)
}
