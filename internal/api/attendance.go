package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickup/internal/attendance"
	"pickup/internal/auth"
	"pickup/internal/queue"
)

// ---------- Record Departure ----------

type departureRequest struct {
	ChildID   flexInt  `json:"childId"`
	Action    string   `json:"action"`
	Timestamp string   `json:"timestamp"`
	Emergency flexBool `json:"emergency"`
	PickerID  flexInt  `json:"pickerId"`
}

// RecordDeparture handles POST /api/attendance.
func (h *Handler) RecordDeparture(c *gin.Context) {
	var req departureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "childId and action are required")
		return
	}
	switch {
	case !req.ChildID.Set || req.Action == "":
		h.fail(c, attendance.ErrMissingFields)
		return
	case req.Action != attendance.ActionOut:
		h.fail(c, attendance.ErrCheckInDisabled)
		return
	case !req.ChildID.Valid:
		badRequest(c, "childId must be a number")
		return
	case req.PickerID.Set && !req.PickerID.Valid:
		badRequest(c, "pickerId must be a number")
		return
	}
	ts, err := attendance.ParseTimestamp(req.Timestamp)
	if err != nil {
		h.fail(c, err)
		return
	}

	in := attendance.DepartureInput{
		ChildID:   req.ChildID.Value,
		Action:    req.Action,
		Timestamp: ts,
		Emergency: bool(req.Emergency),
	}
	if req.PickerID.Set {
		id := req.PickerID.Value
		in.PickerID = &id
	}
	if claims, ok := auth.ClaimsFrom(c); ok && claims.TeacherID != 0 {
		id := claims.TeacherID
		in.TeacherID = &id
	}

	rec, err := h.attendance.RecordDeparture(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publishDeparture(c, rec, in.Emergency)
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": rec})
}

// publishDeparture queues the guardian notification. The departure is
// already recorded, so a failure here is only logged.
func (h *Handler) publishDeparture(c *gin.Context, rec attendance.Log, emergency bool) {
	ev := queue.DepartureEvent{LogID: rec.ID, Emergency: emergency, At: rec.Timestamp}
	if rec.ChildID != nil {
		ev.ChildID = *rec.ChildID
	}
	msg, err := queue.NewDeparture(ev)
	if err == nil {
		err = h.queue.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		h.log.Warn("departure event not queued", zap.Int64("log_id", rec.ID), zap.Error(err))
	}
}

// ---------- Reports ----------

func (h *Handler) Today(c *gin.Context) {
	report, err := h.attendance.Today(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ByDate(c *gin.Context) {
	report, err := h.attendance.ByDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Dates(c *gin.Context) {
	dates, err := h.attendance.Dates(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// Export streams a CSV attachment, or an xlsx workbook when format=xlsx.
func (h *Handler) Export(c *gin.Context) {
	exp, err := h.attendance.Export(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	filename, contentType := exp.CSVFilename(), "text/csv; charset=utf-8"
	if c.Query("format") == "xlsx" {
		filename = exp.XLSXFilename()
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = exp.WriteXLSX(&buf)
	} else {
		err = exp.WriteCSV(&buf)
	}
	if err != nil {
		h.fail(c, fmt.Errorf("export %s: %w", filename, err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// DeleteByDate handles DELETE /api/attendance/by-date?date=.
func (h *Handler) DeleteByDate(c *gin.Context) {
	n, err := h.attendance.DeleteByDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
}
