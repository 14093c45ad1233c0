package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plasmx/referral-ledger/metrics"
	"github.com/plasmx/referral-ledger/service"
)

type SwapHandler struct {
	svc *service.AccrualService
}

func NewSwapHandler(svc *service.AccrualService) *SwapHandler {
	return &SwapHandler{svc: svc}
}

type trackSwapRequest struct {
	TxHash         string      `json:"txHash"`
	UserAddress    string      `json:"userAddress"`
	GrossAmountWei looseString `json:"grossAmountWei"`
}

// POST /api/track-swap
func (h *SwapHandler) TrackSwap(c *gin.Context) {
	var req trackSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.RecordSwap(c.Request.Context(), service.SwapReport{
		TxHash:         req.TxHash,
		UserAddress:    req.UserAddress,
		GrossAmountWei: string(req.GrossAmountWei),
	})
	if err != nil {
		metrics.SwapsTotal.WithLabelValues(string(service.KindOf(err))).Inc()
		respondError(c, err)
		return
	}

	result := "credited"
	if res.Duplicate {
		result = "duplicate"
	}
	metrics.SwapsTotal.WithLabelValues(result).Inc()

	body := gin.H{
		"success":          true,
		"referrerEarnings": res.ReferrerCut,
		"platformFee":      res.PlatformFee,
		"duplicate":        res.Duplicate,
	}
	if res.ReferrerAddress != "" {
		body["referrer"] = res.ReferrerAddress
	}
	c.JSON(http.StatusOK, body)
}
