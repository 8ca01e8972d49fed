package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type dateCountPart struct {
	DateSlotID uint64 `json:"date_slot_id"`
	Date       string `json:"date"`
	Capacity   int    `json:"capacity"`
	Confirmed  int    `json:"confirmed"`
	Remaining  int    `json:"remaining"`
}

type courseDateCountPart struct {
	CourseID   uint64 `json:"course_id"`
	DateSlotID uint64 `json:"date_slot_id"`
	Capacity   int    `json:"capacity"`
	Confirmed  int    `json:"confirmed"`
	Remaining  int    `json:"remaining"`
}

// Counts returns current per-date and per-(course,date) occupancy for
// an event. The route sits behind the response cache, so a counting
// dashboard polling every second costs one query per TTL.
// GET /v1/events/:id/counts
func (h *AdminHandler) Counts(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()

	if _, err := h.Stores.Events().GetByID(ctx, eventID); err != nil {
		return respondError(c, err)
	}
	slots, err := h.Stores.Ledger().DateCounts(ctx, eventID)
	if err != nil {
		return respondError(c, err)
	}
	courseDates, err := h.Stores.Ledger().CourseDateCounts(ctx, eventID)
	if err != nil {
		return respondError(c, err)
	}

	dates := make([]dateCountPart, 0, len(slots))
	for _, d := range slots {
		dates = append(dates, dateCountPart{
			DateSlotID: d.ID,
			Date:       d.DateKey(),
			Capacity:   d.Capacity,
			Confirmed:  d.ConfirmedCount,
			Remaining:  d.Remaining(),
		})
	}
	courses := make([]courseDateCountPart, 0, len(courseDates))
	for _, cd := range courseDates {
		courses = append(courses, courseDateCountPart{
			CourseID:   cd.CourseID,
			DateSlotID: cd.DateSlotID,
			Capacity:   cd.Capacity,
			Confirmed:  cd.ConfirmedCount,
			Remaining:  cd.Remaining(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id":     eventID,
		"dates":        dates,
		"course_dates": courses,
	})
}
