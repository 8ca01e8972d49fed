package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/service"
)

// AdminHandler bundles the services behind the registration desk
// endpoints: applicant intake, selection edits, confirmation and bulk
// reconciliation.
type AdminHandler struct {
	Stores     service.Stores
	Registrar  *service.Registrar
	Engine     *service.ConfirmationEngine
	Reconciler *service.Reconciler
}

func NewAdminHandler(stores service.Stores, reg *service.Registrar, eng *service.ConfirmationEngine, rec *service.Reconciler) *AdminHandler {
	if stores == nil || reg == nil || eng == nil || rec == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Stores: stores, Registrar: reg, Engine: eng, Reconciler: rec}
}

// pathID parses the :name path parameter as an id.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

type selectionPart struct {
	ID         uint64  `json:"id"`
	DateSlotID uint64  `json:"date_slot_id"`
	CourseID   *uint64 `json:"course_id,omitempty"`
	Priority   int     `json:"priority"`
}

type confirmationPart struct {
	ID          uint64  `json:"id"`
	DateSlotID  uint64  `json:"date_slot_id"`
	CourseID    *uint64 `json:"course_id,omitempty"`
	ConfirmedBy uint64  `json:"confirmed_by"`
}

type applicantResp struct {
	ID            uint64             `json:"id"`
	EventID       uint64             `json:"event_id"`
	Name          string             `json:"name"`
	Email         string             `json:"email,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	Status        string             `json:"status"`
	Selections    []selectionPart    `json:"selections"`
	Confirmations []confirmationPart `json:"confirmations"`
}

// CreateApplicant registers an applicant with candidate selections for
// the event in the path. POST /v1/events/:id/applicants
func (h *AdminHandler) CreateApplicant(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var in service.ApplicantInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	applicant, err := h.Registrar.CreateApplicant(c.Request().Context(), eventID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":       applicant.ID,
		"event_id": applicant.EventID,
		"name":     applicant.Name,
		"status":   applicant.Status,
	})
}

// GetApplicant returns one applicant with selections and confirmations.
// GET /v1/applicants/:id
func (h *AdminHandler) GetApplicant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid applicant id"})
	}
	ctx := c.Request().Context()

	applicant, err := h.Stores.Applicants().GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	sels, err := h.Stores.Applicants().Selections(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	confs, err := h.Stores.Confirmations().ListByApplicant(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	resp := applicantResp{
		ID:            applicant.ID,
		EventID:       applicant.EventID,
		Name:          applicant.Name,
		Email:         applicant.Email,
		Phone:         applicant.Phone,
		Status:        applicant.Status,
		Selections:    make([]selectionPart, 0, len(sels)),
		Confirmations: make([]confirmationPart, 0, len(confs)),
	}
	for _, s := range sels {
		resp.Selections = append(resp.Selections, selectionPart{
			ID: s.ID, DateSlotID: s.DateSlotID, CourseID: s.CourseID, Priority: s.Priority,
		})
	}
	for _, cf := range confs {
		resp.Confirmations = append(resp.Confirmations, confirmationPart{
			ID: cf.ID, DateSlotID: cf.DateSlotID, CourseID: cf.CourseID, ConfirmedBy: cf.ConfirmedBy,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

type replaceSelectionReq struct {
	OldDateSlotID uint64  `json:"old_date_slot_id"`
	NewDateSlotID uint64  `json:"new_date_slot_id"`
	NewCourseID   *uint64 `json:"new_course_id,omitempty"`
}

// ReplaceSelection repoints one of the applicant's candidate selections.
// PUT /v1/applicants/:id/selections
func (h *AdminHandler) ReplaceSelection(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid applicant id"})
	}
	var req replaceSelectionReq
	if err := c.Bind(&req); err != nil || req.OldDateSlotID == 0 || req.NewDateSlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "old_date_slot_id and new_date_slot_id required"})
	}

	err := h.Registrar.ReplaceSelection(c.Request().Context(), id, req.OldDateSlotID, req.NewDateSlotID, req.NewCourseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// DeleteApplicant removes an applicant, releasing any held capacity.
// DELETE /v1/applicants/:id
func (h *AdminHandler) DeleteApplicant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid applicant id"})
	}
	if err := h.Registrar.DeleteApplicant(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
