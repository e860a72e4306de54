// Package service 在通用资源服务之上补充按实体划分的业务操作
package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"backoffice/model"
	"backoffice/resource"
)

// ProjectService 项目服务，附带费用汇总
type ProjectService struct {
	*resource.Service[model.Project]
	charges  *resource.Service[model.ClientCharge]
	payments *resource.Service[model.PartnerPayment]
}

// NewProjectService 创建项目服务
func NewProjectService(
	projects *resource.Service[model.Project],
	charges *resource.Service[model.ClientCharge],
	payments *resource.Service[model.PartnerPayment],
) *ProjectService {
	return &ProjectService{Service: projects, charges: charges, payments: payments}
}

// FindByIDWithCharges 返回项目及其有效的费用与付款，汇总金额不做币种换算
func (s *ProjectService) FindByIDWithCharges(ctx context.Context, id string, includeDeleted bool) (*model.ProjectSummary, error) {
	project, err := s.FindByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}

	summary := &model.ProjectSummary{Project: project}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		charges, err := s.charges.FindAll(gctx, model.ClientChargeFilter{ProjectID: id}.Query())
		summary.ClientCharges = charges
		return err
	})
	g.Go(func() error {
		payments, err := s.payments.FindAll(gctx, model.PartnerPaymentFilter{ProjectID: id}.Query())
		summary.PartnerPayments = payments
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range summary.ClientCharges {
		summary.TotalCharges += c.Amount
	}
	for _, p := range summary.PartnerPayments {
		summary.TotalPayments += p.Amount
	}
	summary.NetAmount = summary.TotalCharges - summary.TotalPayments
	return summary, nil
}

