package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"pickup/internal/apperr"
	"pickup/internal/attendance"
	"pickup/internal/children"
	"pickup/internal/httpmiddleware"
	"pickup/internal/observability"
	"pickup/internal/queue"
	"pickup/internal/teachers"
)

// Handler serves the /api routes.
type Handler struct {
	attendance *attendance.Service
	children   *children.Service
	teachers   *teachers.Service
	queue      queue.Queue // departure events for the notification worker
	production bool
	log        *zap.Logger
}

func New(att *attendance.Service, kids *children.Service, staff *teachers.Service, q queue.Queue, production bool, log *zap.Logger) *Handler {
	if q == nil {
		q = queue.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{attendance: att, children: kids, teachers: staff, queue: q, production: production, log: log}
}

const msgDBUnreachable = "Database is not reachable. Please start PostgreSQL or update DATABASE_URL."

// fail writes err as a JSON response. Classified errors carry their own
// message; everything else is reported and answered generically.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": apperr.Message(err)})
		return
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		h.log.Error("database unreachable", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgDBUnreachable})
		return
	}
	h.log.Error("request failed",
		zap.String("request_id", httpmiddleware.RequestID(c)),
		zap.String("route", c.FullPath()),
		zap.Error(err))
	observability.CaptureRequestErr(err, httpmiddleware.RequestID(c), c.FullPath())
	writeInternal(c, status, err.Error(), h.production)
}

func writeInternal(c *gin.Context, status int, msg string, production bool) {
	if production || msg == "" {
		msg = "Internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pathID reads a numeric path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil
}

// ---------- Flexible JSON values ----------

// flexInt accepts a JSON number or a numeric string.
type flexInt struct {
	Set   bool
	Valid bool
	Value int64
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	f.Set = true
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		f.Set = false
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		if v == float64(int64(v)) {
			f.Value, f.Valid = int64(v), true
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			f.Set = false
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			f.Value, f.Valid = n, true
		}
	}
	return nil
}

// flexBool is true only for JSON true or the string "true".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		*f = flexBool(v)
	case string:
		*f = flexBool(v == "true")
	}
	return nil
}
