package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"ductflow/internal/airflow"
	"ductflow/internal/codec"
	"ductflow/internal/domain"
	"ductflow/internal/service"
)

// maxDocumentBytes bounds uploaded network documents
const maxDocumentBytes = 32 << 20

var validate = validator.New()

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AirflowRequest selects the start node of a computation
type AirflowRequest struct {
	Start string `json:"start" validate:"required,max=128"`
}

// NetworkHandler handles network and airflow API requests
type NetworkHandler struct {
	networks *service.NetworkService
	airflow  *service.AirflowService
	logger   *slog.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(networks *service.NetworkService, airflow *service.AirflowService, logger *slog.Logger) *NetworkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkHandler{networks: networks, airflow: airflow, logger: logger}
}

// ListNetworks returns a summary of every stored network
func (h *NetworkHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := h.networks.List(r.Context())
	if err != nil {
		h.fail(w, "Failed to list networks", err)
		return
	}

	h.writeJSON(w, networks, http.StatusOK)
}

// ImportNetwork stores the uploaded document. The format comes from the
// format query parameter, then the Content-Type, and defaults to yaml.
func (h *NetworkHandler) ImportNetwork(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	body := http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	result, err := h.networks.Import(r.Context(), format, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, "Document too large", err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, "Failed to import network", err)
		return
	}

	h.writeJSON(w, result, http.StatusCreated)
}

// GetNetwork returns a stored network document
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	doc, err := h.networks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get network", err)
		return
	}

	h.writeJSON(w, doc, http.StatusOK)
}

// ExportNetwork writes a stored network in the requested format
func (h *NetworkHandler) ExportNetwork(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	format := r.URL.Query().Get("format")

	c, err := codec.ForFormat(format)
	if err != nil {
		h.fail(w, "Failed to export network", err)
		return
	}

	var buf bytes.Buffer
	if err := h.networks.Export(r.Context(), id, c.Format(), &buf); err != nil {
		h.fail(w, "Failed to export network", err)
		return
	}

	if c.Format() == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/x-yaml")
	}
	w.Header().Set("Content-Disposition", attachment(id+"."+c.Format()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write export", "network", id, "error", err)
	}
}

// DeleteNetwork removes a stored network
func (h *NetworkHandler) DeleteNetwork(w http.ResponseWriter, r *http.Request) {
	if err := h.networks.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Failed to delete network", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetNode returns a single node of a stored network
func (h *NetworkHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.networks.GetNode(r.Context(), r.PathValue("id"), domain.NodeID(r.PathValue("node")))
	if err != nil {
		h.fail(w, "Failed to get node", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// ComputeAirflow sums the terminal airflow reachable from the requested
// start node
func (h *NetworkHandler) ComputeAirflow(w http.ResponseWriter, r *http.Request) {
	var req AirflowRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.airflow.Compute(r.Context(), r.PathValue("id"), domain.NodeID(req.Start))
	if err != nil {
		h.fail(w, "Failed to compute airflow", err)
		return
	}

	h.writeJSON(w, result, http.StatusOK)
}

// Health reports liveness
func (h *NetworkHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Helper methods

// statusFor maps service and domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNetworkNotFound),
		errors.Is(err, service.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, airflow.ErrNoConnectors),
		errors.Is(err, airflow.ErrUnresolvedNode),
		errors.Is(err, airflow.ErrTraversalLimit),
		errors.Is(err, service.ErrStartNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, codec.ErrInvalidDocument),
		errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *NetworkHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	h.writeError(w, msg, err.Error(), status)
}

func (h *NetworkHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode JSON", "error", err)
	}
}

func (h *NetworkHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}

func formatFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return "json"
	case strings.Contains(mediaType, "yaml"):
		return "yaml"
	default:
		return ""
	}
}

// attachment builds a Content-Disposition value with the filename quoted
// or RFC 2231 encoded as needed
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
