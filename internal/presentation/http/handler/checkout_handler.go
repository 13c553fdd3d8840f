package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vistaoptics/pos-api/internal/application/service"
	"github.com/vistaoptics/pos-api/internal/domain/enum"
	"github.com/vistaoptics/pos-api/internal/presentation/http/dto/request"
	"github.com/vistaoptics/pos-api/internal/presentation/http/dto/response"
)

// CheckoutHandler handles the payment-collection HTTP requests
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Open handles binding the operator to a sale
func (h *CheckoutHandler) Open(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.OpenCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	snapshot, err := h.checkoutService.Open(c.Request.Context(), userID, GetBranchID(c), req.SaleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Checkout opened successfully", snapshot)
}

// Get handles fetching the operator's active checkout
func (h *CheckoutHandler) Get(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	snapshot, err := h.checkoutService.Current(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Checkout retrieved successfully", snapshot)
}

// Close handles tearing down the operator's active checkout
func (h *CheckoutHandler) Close(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.checkoutService.Close(userID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AddPayment handles adding a manual payment row
func (h *CheckoutHandler) AddPayment(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	method := enum.PaymentMethod(strings.ToUpper(req.Method))
	snapshot, err := h.checkoutService.AddManualPayment(userID, method, req.Amount, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment added successfully", snapshot)
}

// RemovePayment handles removing an unsaved payment row by index
func (h *CheckoutHandler) RemovePayment(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "Invalid payment index")
		return
	}

	snapshot, err := h.checkoutService.RemovePayment(userID, index)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment removed successfully", snapshot)
}

// StartQR handles opening a dynamic QR payment session
func (h *CheckoutHandler) StartQR(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.StartQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	snapshot, err := h.checkoutService.StartQR(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "QR payment started", snapshot)
}

// StartTerminal handles sending a charge to a card terminal
func (h *CheckoutHandler) StartTerminal(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.StartTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	snapshot, err := h.checkoutService.StartTerminal(c.Request.Context(), userID, req.Amount, req.DeviceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Terminal payment started", snapshot)
}

// CancelAsync handles aborting the outstanding async payment session
func (h *CheckoutHandler) CancelAsync(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	snapshot, err := h.checkoutService.CancelAsync(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment session cancelled", snapshot)
}

// ApplyInsurance handles applying insurance coverage to the sale
func (h *CheckoutHandler) ApplyInsurance(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.InsuranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	snapshot, err := h.checkoutService.ApplyInsurance(c.Request.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Insurance coverage applied", snapshot)
}

// Submit handles settling the checkout
func (h *CheckoutHandler) Submit(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.checkoutService.Submit(c.Request.Context(), userID, req.OverrideToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sale settled successfully", result)
}

// AuthorizeOverride handles issuing a supervisor authorization token
func (h *CheckoutHandler) AuthorizeOverride(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	token, err := h.checkoutService.AuthorizeOverride(c.Request.Context(), userID, req.PIN)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Supervisor override authorized", gin.H{"override_token": token})
}

// ListDevices handles listing the card terminals available to the branch
func (h *CheckoutHandler) ListDevices(c *gin.Context) {
	devices, err := h.checkoutService.ListDevices(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Devices retrieved successfully", gin.H{"devices": devices})
}
