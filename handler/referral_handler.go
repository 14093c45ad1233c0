package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plasmx/referral-ledger/metrics"
	"github.com/plasmx/referral-ledger/service"
)

type ReferralHandler struct {
	svc *service.ReferralService
}

func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{svc: svc}
}

type bindCodeRequest struct {
	UserAddress  string `json:"userAddress"`
	ReferralCode string `json:"referralCode"`
}

type bindAddressRequest struct {
	UserAddress     string `json:"userAddress"`
	ReferrerAddress string `json:"referrerAddress"`
}

type createCodeRequest struct {
	WalletAddress string `json:"walletAddress"`
	ReferralCode  string `json:"referralCode"`
}

// POST /api/bind-by-code, POST /api/referrals/bind-code
func (h *ReferralHandler) BindByCode(c *gin.Context) {
	var req bindCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.svc.BindByCode(c.Request.Context(), req.UserAddress, req.ReferralCode)
	h.respondBind(c, res, err)
}

// POST /api/referrals/bind
func (h *ReferralHandler) BindByAddress(c *gin.Context) {
	var req bindAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.svc.BindByAddress(c.Request.Context(), req.UserAddress, req.ReferrerAddress)
	h.respondBind(c, res, err)
}

func (h *ReferralHandler) respondBind(c *gin.Context, res *service.BindResult, err error) {
	if err != nil {
		metrics.BindingsTotal.WithLabelValues(string(service.KindOf(err))).Inc()
		respondError(c, err)
		return
	}
	if !res.Bound {
		metrics.BindingsTotal.WithLabelValues("already_bound").Inc()
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Already bound to a referrer",
			"binding": res.Binding,
		})
		return
	}
	metrics.BindingsTotal.WithLabelValues("bound").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"binding":  res.Binding,
		"referrer": res.Binding.ReferrerAddress,
	})
}

// POST /api/create-referral-code
func (h *ReferralHandler) CreateCode(c *gin.Context) {
	var req createCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rc, err := h.svc.CreateCode(c.Request.Context(), req.WalletAddress, req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "referralCode": rc.Code})
}

// GET /api/referral-stats/:address
func (h *ReferralHandler) Stats(c *gin.Context) {
	stats, err := h.svc.GetCodeAndStats(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/referrals/binding/:address
func (h *ReferralHandler) Binding(c *gin.Context) {
	b, err := h.svc.GetBinding(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user has no referrer"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/referral-code/:code
func (h *ReferralHandler) ResolveCode(c *gin.Context) {
	rc, err := h.svc.ResolveCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referralCode": rc.Code, "ownerAddress": rc.OwnerAddress})
}
