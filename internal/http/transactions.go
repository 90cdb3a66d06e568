package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/circulate/internal/database/ledger"
)

// TransactionsController serves the loan ledger endpoints.
type TransactionsController struct {
	ledger *ledger.Repository
}

func NewTransactionsController(ledgerRepo *ledger.Repository) *TransactionsController {
	return &TransactionsController{ledger: ledgerRepo}
}

// List handles GET /api/transactions: every loan joined with member
// and book names, plus open/closed tallies.
func (controller *TransactionsController) List(c *gin.Context) {
	records, err := controller.ledger.List()
	if err != nil {
		respondInternalError(c, err, "list transactions")
		return
	}

	open := 0
	for _, record := range records {
		if record.ReturnDate == nil {
			open++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": records,
		"stats": gin.H{
			"total":    len(records),
			"issued":   open,
			"returned": len(records) - open,
		},
	})
}

type issueRequest struct {
	MemberID uint `json:"member_id" binding:"required"`
	BookID   uint `json:"book_id" binding:"required"`
}

// Issue handles POST /api/transactions/issue. An unavailable book is
// a 409, not a server error, and creates no transaction.
func (controller *TransactionsController) Issue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "member_id and book_id are required")
		return
	}

	txn, err := controller.ledger.Issue(req.MemberID, req.BookID, time.Time{})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrBookUnavailable):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "book is not available for issue"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "book")
		default:
			respondInternalError(c, err, "issue book")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": txn.ID, "issue_date": txn.IssueDate})
}

// Return handles POST /api/transactions/:id/return. Returning an
// already-returned loan succeeds without a second increment.
func (controller *TransactionsController) Return(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	closed, err := controller.ledger.Return(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "transaction")
			return
		}
		respondInternalError(c, err, "return book")
		return
	}

	if closed {
		respondSuccess(c, "book returned")
		return
	}
	respondSuccess(c, "book was already returned")
}

// Delete handles DELETE /api/transactions/:id.
func (controller *TransactionsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.ledger.Delete(id); err != nil {
		respondInternalError(c, err, "delete transaction")
		return
	}
	respondSuccess(c, "transaction deleted")
}
