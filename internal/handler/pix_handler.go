package handler

import (
	"net/http"
	"time"

	"pixcharge/internal/models"
	"pixcharge/internal/service"
	"pixcharge/pkg/pix"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PixHandler struct {
	charges *service.ChargeService
}

func NewPixHandler(charges *service.ChargeService) *PixHandler {
	return &PixHandler{charges: charges}
}

type createChargeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	CPF    string          `json:"cpf" binding:"required,len=11,numeric"`
	Name   string          `json:"name" binding:"required,max=200"`
	Email  string          `json:"email" binding:"omitempty,email,max=254"`
}

type paymentResponse struct {
	Txid          string    `json:"txid"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	AmountCents   int64     `json:"amount_cents"`
	UserCPF       *string   `json:"user_cpf"`
	PixCopiaECola string    `json:"pixCopiaECola"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		Txid:          p.Txid,
		Status:        string(p.Status),
		Amount:        pix.CentsToAmount(p.AmountCents),
		AmountCents:   p.AmountCents,
		UserCPF:       p.UserCPF,
		PixCopiaECola: p.PixCopiaECola,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Create issues a charge at the PSP and stores it.
func (h *PixHandler) Create(c *gin.Context) {
	var req createChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	p, err := h.charges.CreateCharge(c.Request.Context(), service.CreateChargeInput{
		Amount:     req.Amount,
		PayerTaxID: req.CPF,
		PayerName:  req.Name,
		PayerEmail: req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(p))
}

// Get returns the stored record only.
func (h *PixHandler) Get(c *gin.Context) {
	p, err := h.charges.GetPayment(c.Request.Context(), c.Param("txid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

// Check polls the PSP and reconciles the stored status.
func (h *PixHandler) Check(c *gin.Context) {
	p, err := h.charges.RefreshStatus(c.Request.Context(), c.Param("txid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

// List proxies the PSP listing; inicio and fim use YYYY-MM-DD-HH-MM-SS.
func (h *PixHandler) List(c *gin.Context) {
	list, err := h.charges.ListCharges(c.Request.Context(), c.Query("inicio"), c.Query("fim"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
