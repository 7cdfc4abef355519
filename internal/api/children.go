package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pickup/internal/apperr"
	"pickup/internal/children"
	"pickup/internal/photos"
)

// ---------- Children ----------

func (h *Handler) ListChildren(c *gin.Context) {
	list, err := h.children.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []children.Child{}
	}
	c.JSON(http.StatusOK, list)
}

type createChildRequest struct {
	ExternalID    string `json:"externalId"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	ClassName     string `json:"className"`
	GuardianPhone string `json:"guardianPhone"`
}

func (h *Handler) CreateChild(c *gin.Context) {
	var req createChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "firstName and lastName are required")
		return
	}
	child, err := h.children.Create(c.Request.Context(), children.NewChild{
		ExternalID:    optString(req.ExternalID),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ClassName:     optString(req.ClassName),
		GuardianPhone: optString(req.GuardianPhone),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "child": child})
}

// ImportChildren handles a roster CSV uploaded as multipart field "file".
func (h *Handler) ImportChildren(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "CSV file is required (field name: file)")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open roster: %w", err))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, children.MaxImportBytes+1))
	if err != nil {
		h.fail(c, fmt.Errorf("read roster: %w", err))
		return
	}
	created, err := h.children.Import(c.Request.Context(), content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "importedCount": len(created), "children": created})
}

// RegisterWithPickers creates a child from a multipart form with photo1..photo3.
func (h *Handler) RegisterWithPickers(c *gin.Context) {
	reg := children.Registration{
		FullName:      c.PostForm("fullName"),
		ClassName:     firstForm(c, "class", "className"),
		GuardianPhone: firstForm(c, "parentPhone", "guardianPhone"),
	}
	for i := 1; i <= children.MaxPickers; i++ {
		fh, err := c.FormFile("photo" + strconv.Itoa(i))
		if err != nil {
			continue
		}
		img, err := photos.ReadUpload(fh)
		if err != nil {
			h.fail(c, err)
			return
		}
		reg.Photos = append(reg.Photos, img)
	}
	child, err := h.children.Register(c.Request.Context(), reg)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "child": child})
}

type updateChildRequest struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	ClassName     *string `json:"className"`
	GuardianPhone *string `json:"guardianPhone"`
}

func (h *Handler) UpdateChild(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid child id")
		return
	}
	var req updateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	child, err := h.children.Update(c.Request.Context(), id, children.ChildPatch{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ClassName:     req.ClassName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, child)
}

func (h *Handler) SetQRHidden(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid child id")
		return
	}
	var req struct {
		Hidden *bool `json:"hidden"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Hidden == nil {
		badRequest(c, "hidden must be true or false")
		return
	}
	child, err := h.children.SetQRHidden(c.Request.Context(), id, *req.Hidden)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, child)
}

func (h *Handler) DeleteChild(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid child id")
		return
	}
	if err := h.children.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChildByQR handles the scanner lookup GET /api/children/by-qr?code=.
func (h *Handler) ChildByQR(c *gin.Context) {
	lookup, err := h.children.Lookup(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lookup)
}

// ---------- Pickers ----------

func (h *Handler) ListPickers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid child id")
		return
	}
	list, err := h.children.Pickers(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AddPicker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		badRequest(c, "Invalid child id")
		return
	}
	in, err := pickerInput(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.children.AddPicker(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePicker(c *gin.Context) {
	childID, ok1 := pathID(c, "id")
	pickerID, ok2 := pathID(c, "pickerId")
	if !ok1 || !ok2 {
		badRequest(c, "Invalid child or picker id")
		return
	}
	in, err := pickerInput(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.children.UpdatePicker(c.Request.Context(), childID, pickerID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePicker(c *gin.Context) {
	childID, ok1 := pathID(c, "id")
	pickerID, ok2 := pathID(c, "pickerId")
	if !ok1 || !ok2 {
		badRequest(c, "Invalid child or picker id")
		return
	}
	if err := h.children.DeletePicker(c.Request.Context(), childID, pickerID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var errBadPickerIndex = apperr.Validation("pickerIndex must be 0, 1 or 2")

type pickerRequest struct {
	Name         *string `json:"name"`
	Relationship *string `json:"relationship"`
	PhotoURL     *string `json:"photoUrl"`
	PickerIndex  flexInt `json:"pickerIndex"`
}

// pickerInput reads a picker from a multipart form (field "photo") or a JSON body.
func pickerInput(c *gin.Context) (children.PickerInput, error) {
	var in children.PickerInput
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req pickerRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return in, apperr.Validation("Invalid request body")
		}
		in.Name, in.Relationship, in.PhotoURL = req.Name, req.Relationship, req.PhotoURL
		if req.PickerIndex.Set {
			if !req.PickerIndex.Valid {
				return in, errBadPickerIndex
			}
			sort := int(req.PickerIndex.Value)
			in.SortOrder = &sort
		}
		return in, nil
	}

	in.Name = postForm(c, "name")
	in.Relationship = postForm(c, "relationship")
	in.PhotoURL = postForm(c, "photoUrl")
	if raw, ok := c.GetPostForm("pickerIndex"); ok && strings.TrimSpace(raw) != "" {
		sort, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return in, errBadPickerIndex
		}
		in.SortOrder = &sort
	}
	fh, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return in, apperr.Validation("Invalid photo upload")
	default:
		img, err := photos.ReadUpload(fh)
		if err != nil {
			return in, err
		}
		in.Image = &img
	}
	return in, nil
}

func postForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

func firstForm(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.PostForm(k)); v != "" {
			return v
		}
	}
	return ""
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
