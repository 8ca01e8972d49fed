package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/service"
)

type confirmReq struct {
	DateSlotID uint64  `json:"date_slot_id"`
	CourseID   *uint64 `json:"course_id,omitempty"`
}

type unconfirmReq struct {
	DateSlotID *uint64 `json:"date_slot_id,omitempty"`
}

// Confirm locks one of the applicant's candidate selections. The
// acting admin from the JWT is recorded as confirmed_by. A status
// event is published after the transaction commits; publish failures
// are logged and swallowed. POST /v1/applicants/:id/confirm
func (h *AdminHandler) Confirm(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid applicant id"})
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil || req.DateSlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_slot_id required"})
	}
	adminID := middleware.CurrentUserID(c)
	if adminID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	change, err := h.Engine.Confirm(c.Request().Context(), adminID, id, req.DateSlotID, req.CourseID)
	if err != nil {
		return respondError(c, err)
	}
	publishChange(c, *change)
	return c.JSON(http.StatusOK, change)
}

// Unconfirm reverts confirmations. Without a date_slot_id in the body
// every confirmation the applicant holds is removed.
// DELETE /v1/applicants/:id/confirmations
func (h *AdminHandler) Unconfirm(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid applicant id"})
	}
	var req unconfirmReq
	// Body is optional; a bare DELETE means revert everything.
	_ = c.Bind(&req)

	removed, err := h.Engine.Unconfirm(c.Request().Context(), id, req.DateSlotID)
	if err != nil {
		return respondError(c, err)
	}
	for _, change := range removed {
		publishChange(c, change)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

// publishChange fans a status change out to the message broker so the
// notification collaborator can reach the applicant. Best effort: the
// publisher logs its own failures.
func publishChange(c echo.Context, change service.StatusChange) {
	_ = queue.PublishStatusChanged(c.Request().Context(), queue.StatusChangedEvent{
		ApplicantID:   change.ApplicantID,
		ApplicantName: change.ApplicantName,
		EventID:       change.EventID,
		DateSlotID:    change.DateSlotID,
		Date:          change.Date,
		CourseID:      change.CourseID,
		CourseName:    change.CourseName,
		Status:        change.Status,
		Action:        string(change.Action),
		ConfirmedBy:   change.ConfirmedBy,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
}
