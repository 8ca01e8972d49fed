package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/sentinel"
	"github.com/iliyamo/event-registration/internal/service"
)

// reconcileHeader is the expected CSV column order. The file comes
// from a spreadsheet export maintained by hand, so header matching is
// case-insensitive and whitespace-tolerant but the order is fixed.
var reconcileHeader = []string{"applicant_id", "name", "course", "date", "confirmed"}

// Reconcile ingests a CSV of externally decided confirmations and
// applies it through the bulk processor. The file is either a
// multipart upload under the "file" field or the raw request body.
// POST /v1/events/:id/reconcile
func (h *AdminHandler) Reconcile(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	adminID := middleware.CurrentUserID(c)
	if adminID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	src, err := reconcileSource(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "csv file required"})
	}
	defer src.Close()

	rows, err := parseReconcileCSV(src)
	if err != nil {
		return respondError(c, err)
	}

	report, err := h.Reconciler.ReconcileBatch(c.Request().Context(), adminID, eventID, rows)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func reconcileSource(c echo.Context) (io.ReadCloser, error) {
	if fh, err := c.FormFile("file"); err == nil {
		return fh.Open()
	}
	if c.Request().Body == nil {
		return nil, sentinel.ErrMalformedBatch
	}
	return c.Request().Body, nil
}

// parseReconcileCSV splits the raw CSV into service rows. Structural
// problems (no header, wrong columns, no data rows) are
// ErrMalformedBatch; cell-level problems are left to the per-row
// processing.
func parseReconcileCSV(r io.Reader) ([]service.ReconcileRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, sentinel.ErrMalformedBatch
	}
	if !headerMatches(header) {
		return nil, sentinel.ErrMalformedBatch
	}

	var rows []service.ReconcileRow
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, sentinel.ErrMalformedBatch
		}
		line++
		// Ragged rows become per-row errors downstream via empty cells.
		for len(rec) < len(reconcileHeader) {
			rec = append(rec, "")
		}
		rows = append(rows, service.ReconcileRow{
			Line:         line,
			ApplicantRef: rec[0],
			Name:         rec[1],
			CourseName:   rec[2],
			DateText:     rec[3],
			Confirm:      truthyFlag(rec[4]),
		})
	}
	if len(rows) == 0 {
		return nil, sentinel.ErrMalformedBatch
	}
	return rows, nil
}

func headerMatches(header []string) bool {
	if len(header) < len(reconcileHeader) {
		return false
	}
	for i, want := range reconcileHeader {
		got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if got != want {
			return false
		}
	}
	return true
}

// truthyFlag interprets the confirm column. Spreadsheets in the field
// use circles as check marks, so those count alongside the usual
// boolean spellings.
func truthyFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "○", "◯", "〇":
		return true
	}
	return false
}
