package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/importer"
	"github.com/ramonehamilton/mtg-binder/internal/importer/csvimport"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
)

// ImportHandler starts, previews, inspects and cancels imports.
type ImportHandler struct {
	store   *storage.Service
	imports *importer.Service
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(store *storage.Service, imports *importer.Service) *ImportHandler {
	return &ImportHandler{store: store, imports: imports}
}

// ImportRequest is the body of the import endpoints.
type ImportRequest struct {
	Text string `json:"text"`
	// Kind is only read by the preview endpoint; "auto" when empty.
	Kind    importer.Kind     `json:"kind,omitempty"`
	Mapping csvimport.Mapping `json:"mapping,omitempty"`
	Skip    []int             `json:"skip,omitempty"`
}

// ImportDecklist starts a decklist import.
func (h *ImportHandler) ImportDecklist(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, importer.KindDecklist)
}

// ImportCSV starts a CSV import. A CSV whose columns cannot be recognized
// finishes at once with status needs_mapping and its headers.
func (h *ImportHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, importer.KindCSV)
}

func (h *ImportHandler) start(w http.ResponseWriter, r *http.Request, kind importer.Kind) {
	req, collectionID, ok := h.decode(w, r)
	if !ok {
		return
	}

	job, err := h.imports.Start(importer.Request{
		CollectionID: collectionID,
		Kind:         kind,
		Text:         req.Text,
		Mapping:      req.Mapping,
		Skip:         req.Skip,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	snap := job.Snapshot()
	if snap.Status == importer.JobRunning {
		response.Accepted(w, snap)
		return
	}
	response.Success(w, snap)
}

// Preview parses and resolves without saving.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, collectionID, ok := h.decode(w, r)
	if !ok {
		return
	}

	preview, err := h.imports.Preview(r.Context(), importer.Request{
		CollectionID: collectionID,
		Kind:         req.Kind,
		Text:         req.Text,
		Mapping:      req.Mapping,
		Skip:         req.Skip,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, preview)
}

// decode reads the body and checks the caller owns the target collection.
func (h *ImportHandler) decode(w http.ResponseWriter, r *http.Request) (ImportRequest, int, bool) {
	var req ImportRequest
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return req, 0, false
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return req, 0, false
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return req, 0, false
	}
	return req, id, true
}

// GetJob returns an import job's progress or result.
func (h *ImportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	response.Success(w, job.Snapshot())
}

// CancelJob asks a running job to stop before its next chunk or batch.
// Batches saved before the cancel stay saved.
func (h *ImportHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	if err := h.imports.Cancel(job.ID); err != nil {
		writeError(w, err)
		return
	}
	response.Accepted(w, job.Snapshot())
}

func (h *ImportHandler) ownedJob(w http.ResponseWriter, r *http.Request) (*importer.Job, bool) {
	job, err := h.imports.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if _, err := h.store.OwnedCollection(r.Context(), job.CollectionID, UserID(r.Context())); err != nil {
		writeError(w, err)
		return nil, false
	}
	return job, true
}
