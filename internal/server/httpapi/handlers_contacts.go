package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
	"github.com/gorilla/mux"
)

// maxAvatarBytes caps the multipart body of an avatar upload.
var maxAvatarBytes int64 = 10 << 20

// pageFromQuery reads offset and limit, falling back to the defaults.
// Range checks are left to the service.
func pageFromQuery(r *http.Request) (models.Page, error) {
	page := models.Page{Offset: common.DefaultOffset, Limit: common.DefaultLimit}
	q := r.URL.Query()

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, validation.NewError("offset", "int", "offset must be an integer")
		}
		page.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, validation.NewError("limit", "int", "limit must be an integer")
		}
		page.Limit = n
	}
	return page, nil
}

func (h *handlers) listContacts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.contacts.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactList(out))
}

func (h *handlers) getContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, validation.NewError("id", "int", "id must be an integer"))
		return
	}
	c, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (h *handlers) updateContact(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.contacts.UpdateSelf(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (h *handlers) deleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.DeleteSelf(r.Context(), callerFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) searchContacts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.contacts.Search(r.Context(), mux.Vars(r)["term"], page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactList(out))
}

func (h *handlers) comingBirthdays(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.contacts.ComingBirthdays(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactList(out))
}

func (h *handlers) updateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, fmt.Errorf("%w: avatar exceeds %d bytes", common.ErrPayloadTooLarge, tooLarge.Limit))
			return
		}
		h.writeError(w, r, validation.NewError("file", "required", "file is required"))
		return
	}
	defer file.Close()

	c, err := h.contacts.UpdateAvatar(r.Context(), callerFrom(r.Context()), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}
