package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/middleware"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
	"github.com/iliyamo/tenant-ticketing/internal/service"
)

// ExportHandler streams the flattened listings as CSV, or JSON with
// ?format=json.
type ExportHandler struct {
	Export *service.ExportService
	Log    *zap.Logger
}

// NewExportHandler wires an ExportHandler.
func NewExportHandler(s *service.ExportService, log *zap.Logger) *ExportHandler {
	return &ExportHandler{Export: s, Log: log}
}

var reservationHeader = []string{
	"reservation_id", "reservation_code", "payment_reference",
	"customer_name", "customer_email", "customer_phone",
	"quantity", "ticket_name", "unit_price", "event_title", "event_date", "created_at",
}

var tenantHeader = []string{
	"tenant_id", "name", "owner_email", "active", "featured", "events", "reservations", "created_at",
}

// Reservations handles GET /v1/admin/export/reservations.
func (h *ExportHandler) Reservations(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	tenantID := targetTenant(p, c.QueryParam("tenant_id"))
	rows, err := h.Export.Reservations(c.Request().Context(), p, tenantID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, rows)
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, reservationRecord(r))
	}
	return h.writeCSV(c, "reservations-"+tenantID, reservationHeader, records)
}

// Tenants handles GET /v1/admin/export/tenants.
func (h *ExportHandler) Tenants(c echo.Context) error {
	rows, err := h.Export.Tenants(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, rows)
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, tenantRecord(r))
	}
	return h.writeCSV(c, "tenants", tenantHeader, records)
}

func reservationRecord(r repository.ReservationExportRow) []string {
	date := ""
	if r.EventDate != nil {
		date = r.EventDate.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(r.ReservationID, 10),
		r.ReservationCode,
		r.PaymentReference,
		r.CustomerName,
		r.CustomerEmail,
		r.CustomerPhone,
		strconv.Itoa(r.Quantity),
		r.TicketName,
		strconv.FormatFloat(r.UnitPrice, 'f', 2, 64),
		r.EventTitle,
		date,
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func tenantRecord(r repository.TenantExportRow) []string {
	email := ""
	if r.OwnerEmail != nil {
		email = *r.OwnerEmail
	}
	return []string{
		r.TenantID,
		r.Name,
		email,
		strconv.FormatBool(r.Active),
		strconv.FormatBool(r.Featured),
		strconv.Itoa(r.Events),
		strconv.Itoa(r.Reservations),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ExportHandler) writeCSV(c echo.Context, name string, header []string, records [][]string) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+".csv"))
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		// headers are out; all we can do is log
		h.Log.Error("csv export truncated", zap.String("file", name), zap.Error(err))
	}
	return nil
}
