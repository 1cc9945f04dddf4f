package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
)

// AuditContextMiddleware carries the authenticated operator to the audit
// trail. It runs after AdminAuthRequired.
func AuditContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := principalFromContext(c)
		info := auditdomain.RequestInfo{
			ActorType: string(auditdomain.ActorTypeAdmin),
			ActorID:   principal.Actor,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		ctx := auditdomain.WithRequestInfo(c.Request.Context(), info)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var req auditdomain.ListAuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
