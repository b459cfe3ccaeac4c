package msgtemplate

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

// maxImportSize bounds uploaded export documents.
const maxImportSize = 1 << 20

type Server struct {
	engine *Engine
}

func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListTemplates)
	r.Get("/export", s.ExportTemplates)
	r.Post("/import", s.ImportTemplates)
	r.Get("/{type}", s.GetTemplate)
	r.Put("/{type}", s.SaveTemplate)
	r.Delete("/{type}", s.ResetTemplate)
	r.Post("/{type}/validate", s.ValidateTemplate)
	r.Get("/{type}/preview", s.PreviewTemplate)
}

type TemplateView struct {
	*Definition
	Template string `json:"template"`
	IsCustom bool   `json:"isCustom"`
}

type ListTemplatesResponse struct {
	Templates []*TemplateView `json:"templates"`
}

func (s *Server) view(r *http.Request, d *Definition) (*TemplateView, error) {
	text, custom, err := s.engine.resolve(r.Context(), d.Type)
	if err != nil {
		return nil, err
	}
	return &TemplateView{Definition: d, Template: text, IsCustom: custom}, nil
}

func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views := make([]*TemplateView, 0, len(s.engine.order))
	for _, d := range s.engine.Definitions() {
		v, err := s.view(r, d)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		views = append(views, v)
	}
	cerr.SetJSONResponse(ctx, &ListTemplatesResponse{Templates: views})
}

func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.engine.definition(Type(chi.URLParam(r, "type")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	v, err := s.view(r, d)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, v)
}

type TemplateRequest struct {
	Template string `json:"template"`
}

func (s *Server) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ := Type(chi.URLParam(r, "type"))
	if _, err := s.engine.definition(typ); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req TemplateRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	result, err := s.engine.Save(ctx, typ, req.Template)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}

func (s *Server) ResetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.engine.Reset(ctx, Type(chi.URLParam(r, "type"))); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

func (s *Server) ValidateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req TemplateRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, s.engine.Validate(Type(chi.URLParam(r, "type")), req.Template))
}

type PreviewResponse struct {
	Preview string `json:"preview"`
}

func (s *Server) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	text, err := s.engine.Preview(ctx, Type(chi.URLParam(r, "type")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &PreviewResponse{Preview: text})
}

// ExportTemplates streams the export document as a file download.
func (s *Server) ExportTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := s.engine.Export(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"notification-templates-%s.json\"", s.engine.now().Format("2006-01-02")))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) ImportTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "failed to read request body", err)
		return
	}
	cerr.SetJSONResponse(ctx, s.engine.Import(ctx, data))
}
