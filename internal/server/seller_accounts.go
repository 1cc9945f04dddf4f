package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	sellerdomain "github.com/smallbiznis/salestax/internal/seller/domain"
)

type registerSellerAccountRequest struct {
	Country   string `json:"country"`
	TaxExempt bool   `json:"tax_exempt"`
}

func (s *Server) RegisterSellerAccount(c *gin.Context) {
	var req registerSellerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sellerSvc.Register(c.Request.Context(), sellerdomain.RegisterRequest{
		SellerID:  c.Param("seller_id"),
		Processor: c.Param("processor"),
		Country:   req.Country,
		TaxExempt: req.TaxExempt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
