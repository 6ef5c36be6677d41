package errors

import (
	"encoding/json"
	"maps"
	"net/http"

	"github.com/go-chi/render"
)

const problemMediaType = "application/problem+json"

// Problem type URIs
const (
	TypeValidation   = "/errors/validation"
	TypeNotFound     = "/errors/not-found"
	TypeRateLimit    = "/errors/rate-limit"
	TypeInternal     = "/errors/internal"
	TypeServiceDown  = "/errors/service-unavailable"
	TypeTimeout      = "/errors/timeout"
	TypeConflict     = "/errors/conflict"
	TypeSchema       = "/errors/data/schema"
	TypeDataNotReady = "/errors/data/not-ready"
)

// ProblemDetails is an RFC 7807 problem document. Extensions are written as top-level
// members next to the standard ones.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Status:     status,
		Type:       problemType,
		Title:      title,
		Detail:     detail,
		Instance:   instance,
		Extensions: map[string]interface{}{},
	}
}

func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = map[string]interface{}{}
	}
	pd.Extensions[key] = value
	return pd
}

// Render sets the media type and the status for go-chi/render.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", problemMediaType)
	render.Status(r, pd.Status)
	return nil
}

// WriteProblem encodes pd directly; render.Render would reset Content-Type to
// application/json.
func WriteProblem(w http.ResponseWriter, r *http.Request, pd *ProblemDetails) {
	_ = pd.Render(w, r)
	w.WriteHeader(pd.Status)
	_ = json.NewEncoder(w).Encode(pd)
}

func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	doc := maps.Clone(pd.Extensions)
	if doc == nil {
		doc = map[string]interface{}{}
	}
	doc["type"], doc["title"], doc["status"] = pd.Type, pd.Title, pd.Status
	if pd.Detail != "" {
		doc["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		doc["instance"] = pd.Instance
	}
	return json.Marshal(doc)
}
