package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salestax/internal/reference"
)

// ListCanadianProvinces backs the province picker on checkout forms.
func (s *Server) ListCanadianProvinces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": reference.CanadianProvinces()})
}
