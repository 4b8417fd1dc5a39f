package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nazhim/markaz-api/internal/middleware"
	"github.com/nazhim/markaz-api/internal/services"
)

type LedgerHandler struct {
	ledgerService *services.LedgerService
}

func NewLedgerHandler(ledgerService *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// @Summary Append Ledger Entry
// @Description Append an income, expense or fuel purchase to the ledger
// @Tags Ledger
// @Accept json
// @Produce json
// @Param entry body services.AppendInput true "Entry"
// @Success 201 {object} models.LedgerEntryResponse
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ledger [post]
func (h *LedgerHandler) Create(c *gin.Context) {
	var in services.AppendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	in.OwnerUserID = middleware.GetUserID(c)

	entry, err := h.ledgerService.Append(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry.ToResponse()})
}

// @Summary List Ledger Entries
// @Description List ledger entries, optionally filtered by kind and date range
// @Tags Ledger
// @Produce json
// @Param kind query string false "Entry kind (income, expense, fuel_purchase)"
// @Param from query string false "Start date (RFC 3339)"
// @Param to query string false "End date (RFC 3339)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ledger [get]
func (h *LedgerHandler) Index(c *gin.Context) {
	kind := c.Query("kind")
	from := parseTimeQuery(c, "from")
	to := parseTimeQuery(c, "to")

	entries, err := h.ledgerService.List(c.Request.Context(), kind, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, e.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"entries": responses})
}

// @Summary Current Balance
// @Description Get the current operating balance; include_fuel=true adds fuel purchases
// @Tags Ledger
// @Produce json
// @Param include_fuel query bool false "Include fuel purchases" default(false)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ledger/balance [get]
func (h *LedgerHandler) Balance(c *gin.Context) {
	includeFuel := c.Query("include_fuel") == "true"

	balance, err := h.ledgerService.CurrentBalance(c.Request.Context(), includeFuel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":      balance,
		"include_fuel": includeFuel,
	})
}

// @Summary Recompute Balances
// @Description Rebuild every running balance snapshot from the ordered entries
// @Tags Ledger
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ledger/recompute [post]
func (h *LedgerHandler) Recompute(c *gin.Context) {
	count, err := h.ledgerService.RecomputeAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Balances recomputed",
		"recomputed": count,
	})
}

// @Summary Delete Ledger Entry
// @Description Soft delete a ledger entry; balances of later entries become stale until recompute
// @Tags Ledger
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ledger/{entry_id} [delete]
func (h *LedgerHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("entry_id"), 10, 32)

	if err := h.ledgerService.Delete(c.Request.Context(), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}

// parseTimeQuery reads an RFC 3339 (or date-only) query param, nil when absent
func parseTimeQuery(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}
