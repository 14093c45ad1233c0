package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plasmx/referral-ledger/metrics"
	"github.com/plasmx/referral-ledger/service"
)

type VoucherHandler struct {
	svc *service.VoucherService
}

func NewVoucherHandler(svc *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{svc: svc}
}

type signVoucherRequest struct {
	Referrer string      `json:"referrer"`
	Token    string      `json:"token"`
	Amount   looseString `json:"amount"`
	Deadline looseString `json:"deadline"`
}

// POST /api/sign-voucher
func (h *VoucherHandler) SignVoucher(c *gin.Context) {
	var req signVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	claim := service.ClaimRequest{
		Referrer: req.Referrer,
		Token:    req.Token,
		Amount:   string(req.Amount),
	}
	if req.Deadline != "" {
		d, err := strconv.ParseInt(string(req.Deadline), 10, 64)
		if err != nil {
			metrics.VouchersTotal.WithLabelValues(string(service.KindInvalidDeadline)).Inc()
			respondError(c, &service.Error{Kind: service.KindInvalidDeadline, Message: "deadline must be unix seconds"})
			return
		}
		claim.Deadline = &d
	}

	v, err := h.svc.SignVoucher(c.Request.Context(), claim)
	if err != nil {
		metrics.VouchersTotal.WithLabelValues(string(service.KindOf(err))).Inc()
		respondError(c, err)
		return
	}
	metrics.VouchersTotal.WithLabelValues("issued").Inc()
	c.JSON(http.StatusOK, v)
}

// GET /api/vault-info
func (h *VoucherHandler) VaultInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.VaultInfo())
}
