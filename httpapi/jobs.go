package httpapi

import (
	"bytes"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zeptools/gw-impose/clients"
	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/render"
	"github.com/zeptools/gw-impose/responses"
	"github.com/zeptools/gw-impose/sec"
)

type submitted struct {
	JobID     string     `json:"job_id"`
	State     jobs.State `json:"state"`
	StatusURL string     `json:"status_url"`
}

// submission is the parsed multipart body: file, settings (optional), job
type submission struct {
	sourcePath string
	settings   *impose.Settings
	job        impose.JobInfo
}

var pdfMagic = []byte("%PDF-")

// SubmitJob accepts multipart/form-data with parts "file" (the PDF), "job"
// (JobInfo JSON) and optionally "settings" (Settings JSON, absent = auto layout)
func (a *API) SubmitJob(w http.ResponseWriter, r *http.Request) {
	client, _ := clients.ClientConfFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, a.UploadLimit)
	sub, err := a.readSubmission(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if sub.settings != nil {
		err = sub.settings.Validate()
		if err == nil {
			_, err = sub.settings.ResolveSheet(a.Catalogs.Catalog())
		}
		if err != nil {
			removeUpload(sub.sourcePath)
			writeError(w, err)
			return
		}
	}
	req := jobs.Request{
		SourcePath:   sub.sourcePath,
		SourceIsTemp: true,
		Settings:     sub.settings,
		Job:          sub.job,
		ClientID:     client.ID,
	}
	if err = a.Engine.Submit(a.JobCtx, req, nil); err != nil {
		writeError(w, err) // the engine removed the upload
		return
	}
	jobID := strings.TrimSpace(sub.job.ID)
	log.Printf("[INFO][API] client %q submitted job %s", client.ID, jobID)
	responses.EncodeWriteJSON(w, http.StatusAccepted, submitted{
		JobID:     jobID,
		State:     jobs.StateQueued,
		StatusURL: a.baseURL(r) + "/v1/jobs/" + jobID,
	})
}

func (a *API) readSubmission(r *http.Request) (sub submission, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return sub, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer func() {
		if err != nil {
			removeUpload(sub.sourcePath)
		}
	}()
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sub, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		switch part.FormName() {
		case "file":
			if sub.sourcePath != "" {
				return sub, fmt.Errorf("%w: more than one file", errBadRequest)
			}
			if sub.sourcePath, err = a.saveUpload(part); err != nil {
				return sub, err
			}
		case "settings":
			var s impose.Settings
			if err = json.UnmarshalRead(part, &s); err != nil {
				return sub, fmt.Errorf("%w: settings: %v", impose.ErrConfig, err)
			}
			sub.settings = &s
		case "job":
			if err = json.UnmarshalRead(part, &sub.job); err != nil {
				return sub, fmt.Errorf("%w: job: %v", errBadRequest, err)
			}
		}
		_ = part.Close()
	}
	if sub.sourcePath == "" {
		return sub, fmt.Errorf("%w: missing file part", errBadRequest)
	}
	if strings.TrimSpace(sub.job.ID) == "" {
		return sub, jobs.ErrNoJobID
	}
	return sub, nil
}

// saveUpload streams a part into the engine's temp dir, checking the PDF header first
func (a *API) saveUpload(part io.Reader) (path string, err error) {
	head := make([]byte, len(pdfMagic))
	if _, err = io.ReadFull(part, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return "", fmt.Errorf("%w: file is not a PDF", errBadRequest)
	}
	f, err := os.CreateTemp(a.Engine.TempDir, jobs.UploadPattern)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			removeUpload(f.Name())
		}
	}()
	if _, err = io.Copy(f, io.MultiReader(bytes.NewReader(head), part)); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN][API] remove upload %s: %v", path, err)
	}
}

type jobView struct {
	jobs.Status `json:",inline"`
	DownloadURL string     `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"download_expires_at,omitempty"`
}

func (a *API) view(r *http.Request, st jobs.Status) jobView {
	v := jobView{Status: st}
	if st.State != jobs.StateDone || a.Tokens == nil {
		return v
	}
	now := a.now()
	token, err := a.Tokens.Issue(st.JobID, now)
	if err != nil {
		log.Printf("[ERROR][API] issue output token for %s: %v", st.JobID, err)
		return v
	}
	exp := now.Add(a.Tokens.TTL()).UTC()
	v.DownloadURL, v.ExpiresAt = a.baseURL(r)+"/v1/outputs/"+token, &exp
	return v
}

// visible hides other clients' jobs
func visible(r *http.Request, st jobs.Status) bool {
	client, ok := clients.ClientConfFromContext(r.Context())
	return !ok || st.ClientID == "" || st.ClientID == client.ID
}

func (a *API) GetJob(w http.ResponseWriter, r *http.Request) {
	st, found, err := a.Tracker.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found || !visible(r, st) {
		responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "job not found")
		return
	}
	responses.EncodeWriteJSON(w, http.StatusOK, a.view(r, st))
}

// ListJobs returns recent jobs newest first. ?limit=n
func (a *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit %q", errBadRequest, s))
			return
		}
		limit = n
	}
	recent, err := a.Tracker.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]jobView, 0, len(recent))
	for _, st := range recent {
		if visible(r, st) {
			views = append(views, a.view(r, st))
		}
	}
	responses.EncodeWriteJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

// Download serves a finished output named by an output token
func (a *API) Download(w http.ResponseWriter, r *http.Request) {
	if a.Tokens == nil {
		responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "downloads disabled")
		return
	}
	jobID, err := a.Tokens.Open(r.PathValue("token"), a.now())
	switch {
	case errors.Is(err, sec.ErrTokenExpired):
		responses.WriteSimpleErrorJSON(w, http.StatusGone, "download link expired")
		return
	case err != nil:
		responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "not found")
		return
	}
	st, found, err := a.Tracker.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found || st.State != jobs.StateDone || st.Output == "" {
		responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "not found")
		return
	}
	f, err := os.Open(st.Output)
	if err != nil {
		if os.IsNotExist(err) {
			responses.WriteSimpleErrorJSON(w, http.StatusGone, "output no longer kept")
			return
		}
		writeError(w, err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("[WARN][API] %v", closeErr)
		}
	}()
	responses.ServePDFFile(w, r, render.SafeName(jobID)+".pdf", f)
}
