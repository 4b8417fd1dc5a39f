package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nazhim/markaz-api/internal/services"
)

// respondError maps a service error onto an HTTP status and JSON body.
// Unknown errors are reported as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	svcErr, ok := services.AsError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case services.CodeValidationFailed, services.CodeReceiptTotalMismatch:
		status = http.StatusUnprocessableEntity
	case services.CodeTaskLocked, services.CodeFundingAlreadyExists, services.CodeSettlementNotRequired:
		status = http.StatusConflict
	case services.CodeNotFound:
		status = http.StatusNotFound
	case services.CodePersistenceFailure:
		status = http.StatusInternalServerError
	}

	body := gin.H{
		"error": svcErr.Message,
		"code":  svcErr.Code,
	}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	c.JSON(status, body)
}
