package service

import (
	"context"

	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
)

// ExportSource is the read-only query side used for exports.
type ExportSource interface {
	Reservations(ctx context.Context, tenantID string) ([]repository.ReservationExportRow, error)
	Tenants(ctx context.Context) ([]repository.TenantExportRow, error)
}

// ExportService gates the flattened export listings.
type ExportService struct {
	src ExportSource
}

// NewExportService returns an ExportService over src.
func NewExportService(src ExportSource) *ExportService { return &ExportService{src: src} }

// Reservations exports a tenant's reservations.
func (s *ExportService) Reservations(ctx context.Context, p model.Principal, tenantID string) ([]repository.ReservationExportRow, error) {
	if !p.CanAccess(tenantID) {
		return nil, ErrUnauthorized
	}
	rows, err := s.src.Reservations(ctx, tenantID)
	return rows, storeErr("export reservations", err)
}

// Tenants exports every tenant; elevated only.
func (s *ExportService) Tenants(ctx context.Context, p model.Principal) ([]repository.TenantExportRow, error) {
	if !p.Elevated {
		return nil, ErrUnauthorized
	}
	rows, err := s.src.Tenants(ctx)
	return rows, storeErr("export tenants", err)
}
