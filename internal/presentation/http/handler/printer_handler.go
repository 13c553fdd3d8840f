package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/vistaoptics/pos-api/internal/application/service"
	"github.com/vistaoptics/pos-api/internal/presentation/http/dto/response"
)

// PrinterHandler handles printer-related HTTP requests.
type PrinterHandler struct {
	printerService  *service.PrinterService
	checkoutService *service.CheckoutService
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(printerService *service.PrinterService, checkoutService *service.CheckoutService) *PrinterHandler {
	return &PrinterHandler{
		printerService:  printerService,
		checkoutService: checkoutService,
	}
}

// GetStatus returns the current printer connection status.
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	status := h.printerService.GetStatus()
	response.OK(c, "Printer status retrieved", status)
}

// PrintReceipt reprints the receipt for the operator's current checkout.
func (h *PrinterHandler) PrintReceipt(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	receipt, err := h.checkoutService.PrintReceipt(userID)
	if err != nil {
		// The receipt is still useful when only the hardware failed.
		if receipt != nil {
			response.OK(c, "Receipt generated but printing failed", gin.H{
				"receipt": receipt,
				"warning": err.Error(),
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt printed successfully", gin.H{"receipt": receipt})
}
