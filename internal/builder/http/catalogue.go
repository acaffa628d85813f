package http

import (
	"net/http"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/pkg/httpx"
)

// CatalogueHandler serves templates, the dashboard list and public pages.
type CatalogueHandler struct {
	CatalogueService *service.CatalogueService
}

// HandleTemplates handles GET /v1/templates
//
//	@Summary		List templates
//	@Description	Templates in catalogue order. The first one is used when a profile is saved without a choice.
//	@Tags			Catalogue
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		domain.Template
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		502	{object}	httpx.ErrorBody
//	@Router			/v1/templates [get].
func (h *CatalogueHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.CatalogueService.ListTemplates(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Template{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// HandlePortfolios handles GET /v1/portfolios
//
//	@Summary		List my portfolios
//	@Tags			Catalogue
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		domain.Portfolio
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		502	{object}	httpx.ErrorBody
//	@Router			/v1/portfolios [get].
func (h *CatalogueHandler) HandlePortfolios(w http.ResponseWriter, r *http.Request) {
	list, err := h.CatalogueService.ListPortfolios(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Portfolio{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// HandlePublic handles GET /v1/public/portfolios/{slug}
//
//	@Summary		View a published portfolio
//	@Tags			Public
//	@Produce		json
//	@Param			slug	path		string	true	"Portfolio slug"
//	@Success		200		{object}	foliosdk.PublicPortfolio
//	@Failure		404		{object}	httpx.ErrorBody
//	@Failure		502		{object}	httpx.ErrorBody
//	@Router			/v1/public/portfolios/{slug} [get].
func (h *CatalogueHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	p, err := h.CatalogueService.PublicPortfolio(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
