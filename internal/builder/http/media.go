package http

import (
	"net/http"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/pkg/httpx"
)

// MediaHandler serves the caller's image library.
type MediaHandler struct {
	MediaService *service.MediaService
	MaxUpload    int64
}

// ListMediaResponse is the caller's library, newest first.
type ListMediaResponse struct {
	Items []domain.MediaItem `json:"items"`
}

// HandleList handles GET /v1/media
//
//	@Summary		List images
//	@Tags			Media
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListMediaResponse
//	@Failure		401	{object}	httpx.ErrorBody
//	@Router			/v1/media [get].
func (h *MediaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.MediaService.List(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.MediaItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListMediaResponse{Items: items})
}

// HandleUpload handles POST /v1/media
//
//	@Summary		Upload an image
//	@Tags			Media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"Image"
//	@Success		201		{object}	domain.MediaItem
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		413		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Router			/v1/media [post].
func (h *MediaHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	f, closeFn, ok := readUpload(w, r, h.MaxUpload)
	if !ok {
		return
	}
	defer closeFn()

	item, err := h.MediaService.Upload(r.Context(), httpx.UserIDFromContext(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

// HandleReplace handles PUT /v1/media/{id}
//
//	@Summary		Replace an image
//	@Description	Uploads a new file for an existing library entry. The entry keeps its id.
//	@Tags			Media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Media ID"
//	@Param			file	formData	file	true	"Image"
//	@Success		200		{object}	domain.MediaItem
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		404		{object}	httpx.ErrorBody
//	@Router			/v1/media/{id} [put].
func (h *MediaHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	f, closeFn, ok := readUpload(w, r, h.MaxUpload)
	if !ok {
		return
	}
	defer closeFn()

	item, err := h.MediaService.Replace(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("id"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// HandleDelete handles DELETE /v1/media/{id}
//
//	@Summary		Delete an image
//	@Tags			Media
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Media ID"
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		404	{object}	httpx.ErrorBody
//	@Router			/v1/media/{id} [delete].
func (h *MediaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.MediaService.Delete(r.Context(), httpx.UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
