package api

import (
	"net/http"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RefundRequest struct {
	Reference string `json:"reference" binding:"required,uuid"`
	Note      string `json:"note"`
}

type RefundResponse struct {
	Reference string `json:"reference"`
	Refunded  int    `json:"refunded"`
}

// GetCredits returns the tenant's balance for the current period. The unit
// defaults to image credits.
func GetCredits(c *gin.Context) {
	unit := types.UnitType(c.DefaultQuery("unit", string(types.UnitImage)))
	if unit != types.UnitImage && unit != types.UnitText {
		badRequest(c, "unknown credit unit")
		return
	}

	balance, err := getApp(c).Gate.Balance(c.Request.Context(), c.Param("tenant"), unit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func RefundCredits(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "a valid reference is required")
		return
	}

	entries, err := getApp(c).Gate.Refund(c.Request.Context(), uuid.MustParse(req.Reference), req.Note)
	if err != nil {
		abortWithError(c, err)
		return
	}

	refunded := 0
	for _, entry := range entries {
		refunded += entry.Amount
	}

	c.JSON(http.StatusOK, RefundResponse{Reference: req.Reference, Refunded: refunded})
}
