package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
)

type calculateProduct struct {
	ID             string `json:"id"`
	SellerID       string `json:"seller_id"`
	Name           string `json:"name"`
	IsPhysical     bool   `json:"is_physical"`
	IsEpublication bool   `json:"is_epublication"`
	TaxCode        string `json:"tax_code"`
}

type calculateRequest struct {
	Product       *calculateProduct       `json:"product"`
	PriceCents    int64                   `json:"price_cents"`
	ShippingCents int64                   `json:"shipping_cents"`
	Quantity      int64                   `json:"quantity"`
	BuyerLocation taxdomain.BuyerLocation `json:"buyer_location"`
	BusinessVatID string                  `json:"business_vat_id"`
}

type calculationResponse struct {
	PriceCents               int64                   `json:"price_cents"`
	TaxCents                 int64                   `json:"tax_cents"`
	Tax                      decimal.Decimal         `json:"tax"`
	Rate                     *taxdomain.RateResponse `json:"rate,omitempty"`
	VatStatus                taxdomain.VatStatus     `json:"business_vat_status,omitempty"`
	UsedTaxAPI               bool                    `json:"used_tax_api"`
	IsMarketplaceFacilitator bool                    `json:"is_marketplace_facilitator"`
	IsQuebec                 bool                    `json:"is_quebec"`
	Reason                   taxdomain.Reason        `json:"reason"`
	Summary                  taxdomain.Summary       `json:"summary"`
}

func (s *Server) CalculateSalesTax(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var product *taxdomain.Product
	if req.Product != nil {
		id, err := parseID(req.Product.ID)
		if err != nil {
			AbortWithError(c, newValidationError("product.id", "invalid_id", "invalid product id"))
			return
		}
		sellerID, err := parseID(req.Product.SellerID)
		if err != nil {
			AbortWithError(c, newValidationError("product.seller_id", "invalid_id", "invalid seller id"))
			return
		}
		product = &taxdomain.Product{
			ID:             id,
			SellerID:       sellerID,
			Name:           strings.TrimSpace(req.Product.Name),
			IsPhysical:     req.Product.IsPhysical,
			IsEpublication: req.Product.IsEpublication,
			TaxCode:        strings.TrimSpace(req.Product.TaxCode),
		}
	}

	calc, err := s.taxSvc.Calculate(c.Request.Context(), taxdomain.CalculateRequest{
		Product:       product,
		Price:         req.PriceCents,
		ShippingCost:  req.ShippingCents,
		Quantity:      req.Quantity,
		BuyerLocation: req.BuyerLocation,
		BuyerVatID:    strings.TrimSpace(req.BusinessVatID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.toCalculationResponse(calc)})
}

func (s *Server) toCalculationResponse(calc *taxdomain.Calculation) calculationResponse {
	policy := s.taxSvc.Policy()
	resp := calculationResponse{
		PriceCents:               calc.Price,
		TaxCents:                 calc.TaxCents(),
		Tax:                      calc.Tax,
		VatStatus:                calc.VatStatus,
		UsedTaxAPI:               calc.UsedTaxAPI,
		IsMarketplaceFacilitator: calc.IsMarketplaceFacilitator,
		IsQuebec:                 calc.IsQuebec,
		Reason:                   calc.Reason,
		Summary:                  calc.ToSummary(policy),
	}
	if calc.Rate != nil {
		rate := calc.Rate.ToResponse()
		resp.Rate = &rate
	}
	return resp
}

// parseID treats an empty value as the zero id so the engine can reject it.
func parseID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return snowflake.ParseString(trimmed)
}
