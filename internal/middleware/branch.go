package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hmarroquin/labtrack-api/internal/tenant"
)

// BranchHeader selects the branch a request operates in. The query
// parameter is a fallback for clients that cannot set headers.
const (
	BranchHeader = "X-Branch-ID"
	branchQuery  = "branch_id"
)

// Branch resolves the active branch for the request and stores it on the
// request context, where every repository reads it. Missing or malformed
// values fall back to the default branch instead of failing the request.
func Branch() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(BranchHeader)
		if raw == "" {
			raw = c.Query(branchQuery)
		}

		branchID := tenant.DefaultBranchID
		if raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
				branchID = parsed
			}
		}

		ctx := tenant.WithBranch(c.Request.Context(), branchID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
