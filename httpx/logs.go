package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/audit"
	"backoffice/errors"
	"backoffice/model"
)

// LogRoutes /logs 审计查询接口，只读
type LogRoutes struct {
	svc *audit.Service
}

func NewLogRoutes(svc *audit.Service) *LogRoutes { return &LogRoutes{svc: svc} }

func (l *LogRoutes) GetName() string  { return "logs" }
func (l *LogRoutes) GetPriority() int { return 100 }

func (l *LogRoutes) RegisterRoutes(r chi.Router) {
	r.Route("/logs", func(r chi.Router) {
		r.Get("/", l.handleList)
		r.Get("/range", l.handleRange)
		r.Get("/entity/{entityId}", l.handleByEntity)
		r.Get("/user/{userId}", l.handleByUser)
		r.Get("/type/{entityType}", l.handleByType)
		r.Get("/{id}", l.handleGet)
	})
}

// handleList 带 page 或 limit 时返回分页结果，否则返回全部匹配条目
func (l *LogRoutes) handleList(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	f, err := model.ParseLogFilter(values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if values.Has("page") || values.Has("limit") {
		req, err := model.ParsePage(values)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := l.svc.FindAllPaginated(r.Context(), f, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	entries, err := l.svc.FindAll(r.Context(), f)
	l.respond(w, r, entries, err)
}

func (l *LogRoutes) handleRange(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	start, err := model.ParseDate(values.Get("start"))
	if err != nil {
		writeError(w, r, errors.NewError(errors.ErrCodeValidation, "start 必须是日期").WithContext("field", "start"))
		return
	}
	end, err := model.ParseDate(values.Get("end"))
	if err != nil {
		writeError(w, r, errors.NewError(errors.ErrCodeValidation, "end 必须是日期").WithContext("field", "end"))
		return
	}
	entries, err := l.svc.FindByDateRange(r.Context(), start, end)
	l.respond(w, r, entries, err)
}

func (l *LogRoutes) handleByEntity(w http.ResponseWriter, r *http.Request) {
	entries, err := l.svc.FindByEntityID(r.Context(), chi.URLParam(r, "entityId"))
	l.respond(w, r, entries, err)
}

func (l *LogRoutes) handleByUser(w http.ResponseWriter, r *http.Request) {
	entries, err := l.svc.FindByUserID(r.Context(), chi.URLParam(r, "userId"))
	l.respond(w, r, entries, err)
}

func (l *LogRoutes) handleByType(w http.ResponseWriter, r *http.Request) {
	t := audit.EntityType(chi.URLParam(r, "entityType"))
	if !t.Valid() {
		writeError(w, r, errors.Errorf(errors.ErrCodeValidation, "未知的实体类别 %q", t).WithContext("field", "entityType"))
		return
	}
	entries, err := l.svc.FindByEntityType(r.Context(), t)
	l.respond(w, r, entries, err)
}

func (l *LogRoutes) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := l.svc.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (l *LogRoutes) respond(w http.ResponseWriter, r *http.Request, entries []*audit.Entry, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
