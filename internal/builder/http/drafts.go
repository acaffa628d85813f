package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/pkg/httpx"
	"github.com/aussiebroadwan/folio/pkg/media"
)

// DefaultMaxUpload caps image uploads at 10 MiB.
const DefaultMaxUpload = 10 << 20

// DraftsHandler serves the wizard endpoints.
type DraftsHandler struct {
	Wizard    *service.WizardService
	MaxUpload int64
}

// HandleCreate handles POST /v1/drafts
//
//	@Summary		Start a draft
//	@Description	Opens a wizard session. With portfolioId the existing portfolio, its projects and its skills are loaded and the draft starts saved.
//	@Tags			Drafts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateDraftRequest	false	"Existing portfolio to edit"
//	@Success		201		{object}	service.View
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		404		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Router			/v1/drafts [post].
func (h *DraftsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, "Invalid JSON in request body")
			return
		}
	}

	v, err := h.Wizard.StartDraft(r.Context(), caller(r), req.PortfolioID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, v)
}

// HandleList handles GET /v1/drafts
//
//	@Summary		List open drafts
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListDraftsResponse
//	@Failure		401	{object}	httpx.ErrorBody
//	@Router			/v1/drafts [get].
func (h *DraftsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Wizard.ListDrafts(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListDraftsResponse{Drafts: ids})
}

// HandleGet handles GET /v1/drafts/{id}
//
//	@Summary		Get a draft
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Draft ID"
//	@Success		200	{object}	service.View
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		404	{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id} [get].
func (h *DraftsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizard.GetDraft(r.Context(), caller(r), r.PathValue("id"))
	h.respond(w, r, v, err)
}

// HandleDelete handles DELETE /v1/drafts/{id}
//
//	@Summary		Discard a draft
//	@Description	Drops the wizard session. Nothing already saved upstream is deleted.
//	@Tags			Drafts
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Draft ID"
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		404	{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id} [delete].
func (h *DraftsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Wizard.DiscardDraft(r.Context(), caller(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetProfile handles PATCH /v1/drafts/{id}/profile
//
//	@Summary		Edit profile fields
//	@Description	Writes the given fields without validating their values. Unknown field names are rejected.
//	@Tags			Drafts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Draft ID"
//	@Param			request	body		ProfileRequest	true	"Field values"
//	@Success		200		{object}	service.View
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		404		{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/profile [patch].
func (h *DraftsHandler) HandleSetProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON in request body")
		return
	}

	v, err := h.Wizard.SetProfile(r.Context(), caller(r), r.PathValue("id"), req)
	h.respond(w, r, v, err)
}

// HandleSubmitProfile handles POST /v1/drafts/{id}/profile/submit
//
//	@Summary		Save the profile
//	@Description	Validates the profile and creates the portfolio, or updates it once it exists. Only one submission per draft may be in flight.
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Draft ID"
//	@Success		200	{object}	service.View
//	@Failure		400	{object}	httpx.ErrorBody	"validation"
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		409	{object}	httpx.ErrorBody	"already submitting or rejected upstream"
//	@Failure		502	{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/profile/submit [post].
func (h *DraftsHandler) HandleSubmitProfile(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizard.SubmitProfile(r.Context(), caller(r), r.PathValue("id"))
	h.respond(w, r, v, err)
}

// HandleAddProject handles POST /v1/drafts/{id}/projects
//
//	@Summary		Add a project
//	@Description	Before the portfolio is saved the project is kept locally under a temp- id. Afterwards it is created upstream first.
//	@Tags			Drafts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Draft ID"
//	@Param			request	body		ProjectRequest	true	"Project"
//	@Success		201		{object}	ChildResponse
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/projects [post].
func (h *DraftsHandler) HandleAddProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON in request body")
		return
	}
	h.addChild(w, r, domain.KindProject, req.data())
}

// HandleAddSkill handles POST /v1/drafts/{id}/skills
//
//	@Summary		Add a skill
//	@Tags			Drafts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Draft ID"
//	@Param			request	body		SkillRequest	true	"Skill"
//	@Success		201		{object}	ChildResponse
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/skills [post].
func (h *DraftsHandler) HandleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req SkillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON in request body")
		return
	}
	h.addChild(w, r, domain.KindSkill, req.data())
}

func (h *DraftsHandler) addChild(w http.ResponseWriter, r *http.Request, kind domain.ChildKind, data domain.ChildData) {
	v, child, err := h.Wizard.AddChild(r.Context(), caller(r), r.PathValue("id"), kind, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ChildResponse{Draft: v, Child: child})
}

// HandleRemoveProject handles DELETE /v1/drafts/{id}/projects/{childId}
//
//	@Summary		Remove a project
//	@Description	Removed from the draft at once. If the upstream delete fails the project is restored at its old position.
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Draft ID"
//	@Param			childId	path		string	true	"Project ID or temp- token"
//	@Success		200		{object}	service.View
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		404		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody	"restored after a failed delete"
//	@Router			/v1/drafts/{id}/projects/{childId} [delete].
func (h *DraftsHandler) HandleRemoveProject(w http.ResponseWriter, r *http.Request) {
	h.removeChild(w, r, domain.KindProject)
}

// HandleRemoveSkill handles DELETE /v1/drafts/{id}/skills/{childId}
//
//	@Summary		Remove a skill
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Draft ID"
//	@Param			childId	path		string	true	"Skill ID or temp- token"
//	@Success		200		{object}	service.View
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		404		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody	"restored after a failed delete"
//	@Router			/v1/drafts/{id}/skills/{childId} [delete].
func (h *DraftsHandler) HandleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	h.removeChild(w, r, domain.KindSkill)
}

func (h *DraftsHandler) removeChild(w http.ResponseWriter, r *http.Request, kind domain.ChildKind) {
	v, err := h.Wizard.RemoveChild(r.Context(), caller(r), r.PathValue("id"), kind, r.PathValue("childId"))
	h.respond(w, r, v, err)
}

// HandleSetTemplate handles PUT /v1/drafts/{id}/template
//
//	@Summary		Choose a template
//	@Tags			Drafts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Draft ID"
//	@Param			request	body		TemplateRequest	true	"Template"
//	@Success		200		{object}	service.View
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/template [put].
func (h *DraftsHandler) HandleSetTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON in request body")
		return
	}

	v, err := h.Wizard.SetTemplate(r.Context(), caller(r), r.PathValue("id"), req.TemplateID)
	h.respond(w, r, v, err)
}

// HandleAdvance handles POST /v1/drafts/{id}/advance
//
//	@Summary		Next step
//	@Description	Leaving the profile step needs a saved portfolio; leaving the template step needs a template.
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Draft ID"
//	@Success		200	{object}	service.View
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		403	{object}	httpx.ErrorBody	"step gate refused"
//	@Router			/v1/drafts/{id}/advance [post].
func (h *DraftsHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizard.Advance(r.Context(), caller(r), r.PathValue("id"))
	h.respond(w, r, v, err)
}

// HandleRetreat handles POST /v1/drafts/{id}/retreat
//
//	@Summary		Previous step
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Draft ID"
//	@Success		200	{object}	service.View
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		403	{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/retreat [post].
func (h *DraftsHandler) HandleRetreat(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizard.Retreat(r.Context(), caller(r), r.PathValue("id"))
	h.respond(w, r, v, err)
}

// HandlePublish handles POST /v1/drafts/{id}/publish
//
//	@Summary		Publish the portfolio
//	@Description	Refused until the portfolio is saved. Publishing again is harmless.
//	@Tags			Drafts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Draft ID"
//	@Success		200	{object}	service.View
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		403	{object}	httpx.ErrorBody
//	@Failure		502	{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/publish [post].
func (h *DraftsHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizard.Publish(r.Context(), caller(r), r.PathValue("id"))
	h.respond(w, r, v, err)
}

// HandleGenerate handles POST /v1/drafts/{id}/generate
//
//	@Summary		Generate content
//	@Description	Sends the current profile to the content generator. A bio result is written into the draft.
//	@Tags			Drafts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Draft ID"
//	@Param			request	body		GenerateRequest	true	"Content type"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/generate [post].
func (h *DraftsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON in request body")
		return
	}

	v, content, err := h.Wizard.Generate(r.Context(), caller(r), r.PathValue("id"), req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, GenerateResponse{Content: content, Draft: v})
}

// HandleUpload handles POST /v1/drafts/{id}/media
//
//	@Summary		Upload a project image
//	@Description	Hosts the image and returns its URL. Put the URL into the project's imageUrl.
//	@Tags			Drafts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Draft ID"
//	@Param			file	formData	file	true	"Image"
//	@Success		201		{object}	media.Result
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Failure		503		{object}	httpx.ErrorBody
//	@Router			/v1/drafts/{id}/media [post].
func (h *DraftsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	f, closeFn, ok := readUpload(w, r, h.MaxUpload)
	if !ok {
		return
	}
	defer closeFn()

	res, err := h.Wizard.UploadImage(r.Context(), caller(r), r.PathValue("id"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *DraftsHandler) respond(w http.ResponseWriter, r *http.Request, v service.View, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

// readUpload pulls the "file" part out of a multipart request. On failure
// it has already written the response.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (media.File, func(), bool) {
	if limit <= 0 {
		limit = DefaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, httpx.ErrorBody{
				Kind:    string(domain.KindValidation),
				Message: "The image is too large.",
				Fields:  map[string]string{"file": "too large"},
			})
			return media.File{}, nil, false
		}
		badRequest(w, "Attach the image as the \"file\" form field")
		return media.File{}, nil, false
	}

	return media.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        file,
	}, func() { _ = file.Close() }, true
}
