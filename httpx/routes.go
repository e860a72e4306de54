package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/audit"
	"backoffice/auth"
	"backoffice/model"
	"backoffice/resource"
	"backoffice/service"
)

// 路由路径段
const (
	PathNotes           = "notes"
	PathProjects        = "projects"
	PathClientCharges   = "client-charges"
	PathPartnerPayments = "partner-payments"
	PathPartners        = "partners"
	PathUsers           = "users"
)

func NoteResource(svc *resource.Service[model.Note]) *Resource[model.Note] {
	return NewResource(PathNotes, 10, svc, Filters(model.ParseNoteFilter))
}

func ClientChargeResource(svc *resource.Service[model.ClientCharge]) *Resource[model.ClientCharge] {
	return NewResource(PathClientCharges, 10, svc, Filters(model.ParseClientChargeFilter),
		WithListBy[model.ClientCharge]("project", "projectId"))
}

func PartnerPaymentResource(svc *resource.Service[model.PartnerPayment]) *Resource[model.PartnerPayment] {
	return NewResource(PathPartnerPayments, 10, svc, Filters(model.ParsePartnerPaymentFilter),
		WithListBy[model.PartnerPayment]("project", "projectId"))
}

func PartnerResource(svc *resource.Service[model.Partner]) *Resource[model.Partner] {
	return NewResource(PathPartners, 10, svc, Filters(model.ParsePartnerFilter))
}

// ProjectResource 项目路由，附带 /{id}/charges 汇总（/{id}/with-charges 为同一接口）
func ProjectResource(projects *service.ProjectService) *Resource[model.Project] {
	summary := func(w http.ResponseWriter, r *http.Request) {
		includeDeleted, err := includeDeletedParam(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out, err := projects.FindByIDWithCharges(r.Context(), chi.URLParam(r, "id"), includeDeleted)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
	return NewResource(PathProjects, 10, projects.Service, Filters(model.ParseProjectFilter),
		WithRoutes[model.Project](func(r chi.Router) {
			r.Get("/{id}/charges", summary)
			r.Get("/{id}/with-charges", summary)
		}),
	)
}

// UserResource 用户路由：创建时哈希密码，变更后清除认证缓存
func UserResource(users *service.UserService, resolver *auth.Resolver) *Resource[model.User] {
	return NewResource(PathUsers, 20, users.Service, Filters(model.ParseUserFilter),
		WithCreate(func(ctx context.Context, actor audit.ActorContext, r *http.Request) (*model.User, error) {
			var in model.UserInput
			if err := decodeInto(r, &in); err != nil {
				return nil, err
			}
			return users.Create(ctx, actor, in)
		}),
		WithUpdate(users.Update),
		OnChange[model.User](resolver.Invalidate),
	)
}
