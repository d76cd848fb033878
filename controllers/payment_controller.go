package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	"github.com/yashrajoria/bike-store/services"
)

// PaymentController handles the checkout endpoints.
type PaymentController struct {
	payments services.PaymentService
}

func NewPaymentController(payments services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreatePaymentIntent handles POST /create-payment-intent.
func (pc *PaymentController) CreatePaymentIntent(c *gin.Context) {
	var req models.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price value. Price must be a positive number."})
		return
	}

	resp, err := pc.payments.CreateIntent(c.Request.Context(), req.Price)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordPayment handles POST /payments.
func (pc *PaymentController) RecordPayment(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := pc.payments.RecordPayment(c.Request.Context(), doc)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ConfirmPayment handles PATCH /payments/:id/:email/:confirmation.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	res, err := pc.payments.ConfirmPayment(c.Request.Context(), c.Param("id"), c.Param("email"), c.Param("confirmation"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListPayments handles GET /payments.
func (pc *PaymentController) ListPayments(c *gin.Context) {
	docs, err := pc.payments.ListPayments(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// PaymentsByEmail handles GET /payments/:email.
func (pc *PaymentController) PaymentsByEmail(c *gin.Context) {
	docs, err := pc.payments.PaymentsByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}
