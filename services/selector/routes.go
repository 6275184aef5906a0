// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selector

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all selector routes with the router group.
//
// Description:
//
//	Registers the /select/* endpoints under the given group (typically
//	/v1). The group should already carry any required middleware.
//
// Endpoints:
//
//	POST /v1/select/run - Run one selection
//	GET  /v1/select/catalog - Summarize the installed catalog
//	POST /v1/select/catalog/reload - Reload the catalog file
//	GET  /v1/select/health - Health check
//	GET  /v1/select/ready - Readiness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sel := rg.Group("/select")
	{
		sel.POST("/run", handlers.HandleRun)

		sel.GET("/catalog", handlers.HandleCatalog)
		sel.POST("/catalog/reload", handlers.HandleReloadCatalog)

		sel.GET("/health", handlers.HandleHealth)
		sel.GET("/ready", handlers.HandleReady)
	}
}
