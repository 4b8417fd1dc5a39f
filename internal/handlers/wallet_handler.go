package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nazhim/markaz-api/internal/middleware"
	"github.com/nazhim/markaz-api/internal/services"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// @Summary Wallet Balance
// @Description Get the operational float balance (credits minus debits)
// @Tags Wallet
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /wallet/balance [get]
func (h *WalletHandler) Balance(c *gin.Context) {
	balance, err := h.walletService.Balance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// @Summary List Wallet Entries
// @Description List the immutable wallet entries, newest first
// @Tags Wallet
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /wallet/entries [get]
func (h *WalletHandler) Entries(c *gin.Context) {
	entries, err := h.walletService.ListEntries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// @Summary Create Wallet Entry
// @Description Record a manual credit, debit or adjustment against the wallet
// @Tags Wallet
// @Accept json
// @Produce json
// @Param entry body services.WalletEntryInput true "Entry"
// @Success 201 {object} models.WalletEntry
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /wallet/entries [post]
func (h *WalletHandler) CreateEntry(c *gin.Context) {
	var in services.WalletEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	in.CreatedBy = middleware.GetUserID(c)

	entry, err := h.walletService.CreateEntry(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}
