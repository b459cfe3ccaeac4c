package task

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

// maxUploadMemory bounds the multipart form kept in memory; larger parts spill to disk.
const maxUploadMemory = 32 << 20

type Server struct {
	engine *Engine
	now    func() time.Time
}

func NewServer(engine *Engine) *Server {
	return &Server{
		engine: engine,
		now:    time.Now,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListTasks)
	r.Post("/", s.CreateTask)
	r.Get("/overdue", s.ListOverdueTasks)
	r.Get("/urgent", s.ListUrgentTasks)
	r.Post("/reorder", s.ReorderTasks)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.GetTask)
		r.Patch("/", s.UpdateTask)
		r.Put("/", s.UpdateTask)
		r.Delete("/", s.DeleteTask)
		r.Post("/status", s.UpdateTaskStatus)
		r.Get("/progress", s.GetProgress)
		r.Post("/activity", s.AddActivity)
		r.Post("/comments", s.AddComment)
		r.Post("/comments/{commentID}/replies", s.AddReply)
		r.Post("/replies", s.AddReply)
		r.Post("/comments/{commentID}/resolve", s.ResolveComment)
		r.Post("/attachments", s.AddAttachment)
		r.Get("/attachments/{attachmentID}", s.DownloadAttachment)
		r.Delete("/attachments/{attachmentID}", s.DeleteAttachment)
	})
}

type ListTasksResponse struct {
	Tasks []*Task `json:"tasks"`
	Total int     `json:"total"`
}

func filtersFromQuery(r *http.Request) Filters {
	q := r.URL.Query()
	boolParam := func(key string) bool {
		v, _ := strconv.ParseBool(q.Get(key))
		return v
	}
	return Filters{
		Role:             Role(q.Get("role")),
		OverdueOnly:      boolParam("overdue"),
		UrgentOnly:       boolParam("urgent"),
		ClientID:         q.Get("client"),
		StatusID:         q.Get("status"),
		MainOnly:         boolParam("main_only"),
		ParentID:         q.Get("parent"),
		Search:           q.Get("q"),
		SortBy:           SortKey(q.Get("sort")),
		DesignerStatuses: q["designer_status"],
	}
}

func (s *Server) listWith(w http.ResponseWriter, r *http.Request, f Filters) {
	ctx := r.Context()
	tasks, err := s.engine.List(ctx, f, s.now())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &ListTasksResponse{Tasks: tasks, Total: len(tasks)})
}

func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	s.listWith(w, r, filtersFromQuery(r))
}

func (s *Server) ListOverdueTasks(w http.ResponseWriter, r *http.Request) {
	f := filtersFromQuery(r)
	f.OverdueOnly = true
	if f.SortBy == "" {
		f.SortBy = SortDeadline
	}
	s.listWith(w, r, f)
}

func (s *Server) ListUrgentTasks(w http.ResponseWriter, r *http.Request) {
	f := filtersFromQuery(r)
	f.UrgentOnly = true
	if f.SortBy == "" {
		f.SortBy = SortPriority
	}
	s.listWith(w, r, f)
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.engine.getTask(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := user.Require(ctx, user.CanCreateTask); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var in CreateInput
	if err := cerr.DecodeJSONRequest(r, &in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Create(ctx, in)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := user.Require(ctx, user.CanCreateTask); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var p Patch
	if err := cerr.DecodeJSONRequest(r, &p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Update(ctx, chi.URLParam(r, "id"), p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := user.Require(ctx, user.CanDeleteTask); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.engine.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateStatusRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Status == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "status is required", nil)
		return
	}
	t, err := s.engine.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.engine.Progress(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, p)
}

type AddActivityRequest struct {
	Type        ActivityType      `json:"type"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details"`
}

func (s *Server) AddActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AddActivityRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	entry, err := s.engine.AddActivity(ctx, chi.URLParam(r, "id"), req.Type, req.Description, req.Details)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, entry)
}

type CommentRequest struct {
	Text            string `json:"text"`
	ParentCommentID string `json:"parentCommentId"`
}

func (s *Server) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CommentRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	c, err := s.engine.AddComment(ctx, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, c)
}

// AddReply serves both /comments/{commentID}/replies and /replies with
// parentCommentId in the body.
func (s *Server) AddReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CommentRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	commentID := chi.URLParam(r, "commentID")
	if commentID == "" {
		commentID = req.ParentCommentID
	}
	if commentID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "parentCommentId is required", nil)
		return
	}
	c, err := s.engine.AddReply(ctx, chi.URLParam(r, "id"), commentID, req.Text)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, c)
}

func (s *Server) ResolveComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.engine.ResolveComment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}

func (s *Server) AddAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid multipart form", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "file field is required", err)
		return
	}
	defer file.Close()

	a, err := s.engine.AddAttachment(ctx, chi.URLParam(r, "id"), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, a)
}

func (s *Server) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, data, err := s.engine.ReadAttachment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+a.Name+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.engine.DeleteAttachment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReorderRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	tasks, err := s.engine.Reorder(ctx, req.IDs)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &ListTasksResponse{Tasks: tasks, Total: len(tasks)})
}
