// Package httpapi is the JSON-over-HTTP surface of the imposition service.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/pdfs"
	"github.com/zeptools/gw-impose/requests"
	"github.com/zeptools/gw-impose/responses"
	"github.com/zeptools/gw-impose/routing"
	"github.com/zeptools/gw-impose/sec"
)

// API serves job submission, status, downloads and layout planning
type API struct {
	Engine      *jobs.Engine
	Tracker     jobs.Tracker
	Catalogs    jobs.CatalogSource
	Tokens      *sec.OutputTokens // nil = statuses carry no download link
	UploadLimit int64
	PublicURL   string          // base of returned links; empty = taken from each request
	JobCtx      context.Context // jobs outlive the request that submitted them
	Now         func() time.Time
}

// Limits are optional throttles. A nil field leaves those routes unthrottled.
type Limits struct {
	Submit routing.HandlerWrapper
	Read   routing.HandlerWrapper
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) baseURL(r *http.Request) string {
	if a.PublicURL != "" {
		return strings.TrimRight(a.PublicURL, "/")
	}
	return requests.BaseURL(r)
}

// Register mounts the API under /v1/. Everything but downloads requires auth.
func (a *API) Register(router *routing.BaseRouter, auth routing.HandlerWrapper, limits Limits) {
	router.Group("/v1/", func(v1 *routing.RouteGroup) {
		v1.HandleFunc("POST jobs", a.SubmitJob, present(routing.RequireWrite, limits.Submit)...)
		v1.HandleFunc("GET jobs", a.ListJobs, present(limits.Read)...)
		v1.HandleFunc("GET jobs/{id}", a.GetJob, present(limits.Read)...)
		v1.HandleFunc("POST plan", a.Plan, present(limits.Read)...)
		v1.HandleFunc("GET sheet-sizes", a.SheetSizes, present(limits.Read)...)
	}, routing.Recover, auth)
	// the token is the credential
	router.HandleFunc("GET /v1/outputs/{token}", a.Download, present(routing.Recover, limits.Read)...)
}

func present(ws ...routing.HandlerWrapper) []routing.HandlerWrapper {
	out := ws[:0:0]
	for _, w := range ws {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

var errBadRequest = errors.New("bad request")

// writeError maps package sentinels to status codes and error codes
func writeError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	status, code := http.StatusInternalServerError, ""
	switch {
	case errors.As(err, &tooBig):
		status, code = http.StatusRequestEntityTooLarge, "upload_too_large"
	case errors.Is(err, jobs.ErrNoJobID):
		status, code = http.StatusBadRequest, "missing_job_id"
	case errors.Is(err, impose.ErrConfig):
		status, code = http.StatusBadRequest, "invalid_settings"
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, jobs.ErrJobRunning):
		status, code = http.StatusConflict, "job_running"
	case errors.Is(err, jobs.ErrOutputBusy):
		status, code = http.StatusConflict, "output_busy"
	case errors.Is(err, jobs.ErrJobIDTaken):
		status, code = http.StatusConflict, "job_id_taken"
	case errors.Is(err, impose.ErrDocumentTooLarge):
		status, code = http.StatusUnprocessableEntity, "document_too_large"
	case errors.Is(err, pdfs.ErrMixedPageSizes):
		status, code = http.StatusUnprocessableEntity, "mixed_page_sizes"
	case errors.Is(err, pdfs.ErrNoPages):
		status, code = http.StatusUnprocessableEntity, "no_pages"
	}
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR][API] %v", err)
		responses.WriteSimpleErrorJSON(w, status, "internal error")
		return
	}
	responses.WriteErrorJSON(w, status, code, err.Error())
}
