package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/draft"
	"github.com/aussiebroadwan/folio/internal/builder/reconcile"
	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/internal/builder/stepgate"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
	"github.com/aussiebroadwan/folio/pkg/httpx"
	"github.com/aussiebroadwan/folio/pkg/media"
	"github.com/aussiebroadwan/folio/pkg/slogx"
)

// messages are the texts the UI shows for errors we raise ourselves.
var messages = []struct {
	err error
	msg string
}{
	{reconcile.ErrSubmitInFlight, "Your profile is already being saved."},
	{stepgate.ErrProfileNotSaved, "Save your profile before continuing."},
	{stepgate.ErrTemplateRequired, "Choose a template before continuing."},
	{stepgate.ErrNotSaved, "Save your portfolio before publishing."},
	{stepgate.ErrAtLastStep, "You are already on the last step."},
	{stepgate.ErrAtFirstStep, "You are already on the first step."},
	{service.ErrRemoveRolledBack, "Could not delete the item. It has been restored."},
	{service.ErrDraftNotFound, "This draft no longer exists."},
	{service.ErrMediaNotFound, "Image not found."},
	{draft.ErrChildNotFound, "That item is not in this draft."},
	{media.ErrNotConfigured, "Image uploads are not available right now."},
	{media.ErrUploadFailed, "The image could not be uploaded. Please try again."},
}

var statusByKind = map[domain.ErrorKind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindConflict:     http.StatusConflict,
	domain.KindNotPermitted: http.StatusForbidden,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindTransient:    http.StatusBadGateway,
}

// writeError renders err as an ErrorBody. Every failure the UI sees goes
// through here.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	if errors.Is(err, media.ErrNotImage) {
		err = domain.Invalid(map[string]string{"file": "must be an image"})
	}

	kind := domain.Classify(err)
	if kind == domain.KindUnauthorized {
		log.Info("upstream rejected session", "error", err)
		httpx.WriteSessionExpired(w)
		return
	}

	body := httpx.ErrorBody{Kind: string(kind), Message: messageFor(err, kind)}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	status := statusByKind[kind]
	if errors.Is(err, media.ErrNotConfigured) {
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "kind", kind, "error", err)
	}
	httpx.WriteError(w, status, body)
}

func messageFor(err error, kind domain.ErrorKind) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}

	var apiErr *foliosdk.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && kind != domain.KindTransient {
		return apiErr.Message
	}

	switch kind {
	case domain.KindValidation:
		return "Please fix the highlighted fields."
	case domain.KindConflict:
		return "The request could not be completed."
	case domain.KindNotPermitted:
		return "You are not allowed to do that."
	case domain.KindNotFound:
		return "Not found."
	}
	return "Something went wrong. Please try again."
}

// badRequest is for malformed bodies and parameters.
func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorBody{
		Kind:    string(domain.KindValidation),
		Message: msg,
	})
}

// caller builds the session context from what AuthnMiddleware stored.
func caller(r *http.Request) service.SessionContext {
	ctx := r.Context()
	return service.SessionContext{
		UserID:      httpx.UserIDFromContext(ctx),
		BearerToken: httpx.BearerFromContext(ctx),
	}
}
