package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/clock"
	"github.com/fixkit/fixkit/internal/tenantctx"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	workorderdomain "github.com/fixkit/fixkit/internal/workorder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     workorderdomain.Repository
	UsageSvc usagedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     workorderdomain.Repository
	usageSvc usagedomain.Service
}

func New(p Params) workorderdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("workorder.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		usageSvc: p.UsageSvc,
	}
}

func (s *Service) Create(ctx context.Context, req workorderdomain.CreateRequest) (*workorderdomain.WorkOrder, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, workorderdomain.ErrInvalidTitle
	}

	now := s.clock.Now().UTC()
	order := &workorderdomain.WorkOrder{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		CustomerID:  req.CustomerID,
		StoreID:     req.StoreID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      workorderdomain.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, order); err != nil {
		return nil, err
	}

	s.usageSvc.TrackEvent(ctx, usagedomain.TrackEventRequest{
		TenantID:  tenantID,
		EventType: usagedomain.EventWorkOrders,
		Quantity:  1,
		Metadata:  map[string]interface{}{"work_order_id": order.ID.String()},
	})

	return order, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*workorderdomain.WorkOrder, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, workorderdomain.ErrNotFound
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, req workorderdomain.ListRequest) ([]workorderdomain.WorkOrder, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	status := strings.TrimSpace(req.Status)
	if status != "" && !workorderdomain.ValidStatus(status) {
		return nil, workorderdomain.ErrInvalidStatus
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, s.db, tenantID, status, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, status string) (*workorderdomain.WorkOrder, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if !workorderdomain.ValidStatus(status) {
		return nil, workorderdomain.ErrInvalidStatus
	}

	order, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, workorderdomain.ErrNotFound
	}

	order.Status = status
	order.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) tenantIDFromContext(ctx context.Context) (snowflake.ID, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0, workorderdomain.ErrInvalidTenant
	}
	return tenantID, nil
}
