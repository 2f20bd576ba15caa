package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flateze/flateze/internal/extractor"
	"github.com/flateze/flateze/internal/flatlock"
	"github.com/flateze/flateze/internal/ingest"
	"github.com/flateze/flateze/internal/model"
	"github.com/flateze/flateze/internal/runner"
)

const maxMessageBytes = 25 << 20

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ingestFlat triggers ingestion for one flat. ?since accepts a duration
// ("48h") or an RFC 3339 timestamp; default is the configured lookback.
func (s *Server) ingestFlat(c *gin.Context) {
	flatID := c.Param("flatID")

	since, err := ingest.ParseSince(c.Query("since"), s.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep, err := s.runner.RunFlat(c.Request.Context(), flatID, since)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rep)
	case errors.Is(err, runner.ErrUnknownFlat):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, flatlock.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "ingestion already running for flat"})
	case errors.Is(err, ingest.ErrMailbox):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": rep})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "report": rep})
	default:
		s.log.Errorw("manual ingest failed", "flat_id", flatID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type billResponse struct {
	Company     string    `json:"company_name"`
	Type        string    `json:"bill_type"`
	Amount      string    `json:"amount"`
	DueDate     string    `json:"due_date,omitempty"`
	BillDate    time.Time `json:"bill_date"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Subject     string    `json:"email_subject"`
}

func newBillResponse(eb *model.ExtractedBill) billResponse {
	r := billResponse{
		Company:     eb.Company,
		Type:        string(eb.Type),
		Amount:      eb.Amount.StringFixed(2),
		BillDate:    eb.BillDate,
		ReferenceID: eb.ReferenceID,
		Subject:     eb.Subject,
	}
	if eb.DueDate != nil {
		r.DueDate = eb.DueDate.Format("2006-01-02")
	}
	return r
}

// extract runs the extractor on a raw RFC 5322 message in the request body.
func (s *Server) extract(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxMessageBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too large"})
		return
	}

	eb, ok, err := s.extractor.ExtractRaw(raw, s.now())
	if errors.Is(err, extractor.ErrMalformed) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, newBillResponse(eb))
}
