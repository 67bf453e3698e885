// internal/services/report_service.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

const (
	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"

	maxTrendDays = 365
)

type ReportService struct {
	db *gorm.DB
}

type DashboardStats struct {
	TotalProducts   int64            `json:"totalProducts"`
	ActiveProducts  int64            `json:"activeProducts"`
	TotalBoMs       int64            `json:"totalBoms"`
	TotalECOs       int64            `json:"totalEcos"`
	OpenECOs        int64            `json:"openEcos"`
	PendingApproval int64            `json:"pendingApproval"`
	CompletedECOs   int64            `json:"completedEcos"`
	TotalUsers      int64            `json:"totalUsers"`
	ActiveUsers     int64            `json:"activeUsers"`
	ECOsByStatus    map[string]int64 `json:"ecosByStatus"`
}

type ECOSummary struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	ByStage  map[string]int64 `json:"byStage"`
	ByType   map[string]int64 `json:"byType"`
}

type TrendPoint struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}

// ExportFile is a rendered report ready to be written to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

type groupCount struct {
	GroupKey string
	Total    int64
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

func (s *ReportService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
	}{
		{&models.Product{}, "", nil, &stats.TotalProducts},
		{&models.Product{}, "status = ?", []interface{}{models.ProductStatusActive}, &stats.ActiveProducts},
		{&models.BoM{}, "", nil, &stats.TotalBoMs},
		{&models.ECO{}, "", nil, &stats.TotalECOs},
		{&models.ECO{}, "status IN ?", []interface{}{openStatuses()}, &stats.OpenECOs},
		{&models.ECO{}, "status = ?", []interface{}{models.ECOStatusPendingApproval}, &stats.PendingApproval},
		{&models.ECO{}, "status = ?", []interface{}{models.ECOStatusCompleted}, &stats.CompletedECOs},
		{&models.User{}, "", nil, &stats.TotalUsers},
		{&models.User{}, "status = ?", []interface{}{models.UserStatusActive}, &stats.ActiveUsers},
	}
	for _, c := range counts {
		query := db.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, utils.NewInternalError("failed to load dashboard stats", err)
		}
	}

	byStatus, err := s.countBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	stats.ECOsByStatus = byStatus

	return stats, nil
}

func openStatuses() []models.ECOStatus {
	return []models.ECOStatus{
		models.ECOStatusDraft,
		models.ECOStatusPendingApproval,
		models.ECOStatusApproved,
		models.ECOStatusImplementation,
	}
}

func (s *ReportService) ECOSummary(ctx context.Context) (*ECOSummary, error) {
	summary := &ECOSummary{}
	var err error

	if summary.ByStatus, err = s.countBy(ctx, "status"); err != nil {
		return nil, err
	}
	if summary.ByStage, err = s.countBy(ctx, "stage"); err != nil {
		return nil, err
	}
	if summary.ByType, err = s.countBy(ctx, "type"); err != nil {
		return nil, err
	}
	for _, n := range summary.ByStatus {
		summary.Total += n
	}
	return summary, nil
}

// countBy groups ECO rows by one of a fixed set of columns.
func (s *ReportService) countBy(ctx context.Context, column string) (map[string]int64, error) {
	switch column {
	case "status", "stage", "type":
	default:
		return nil, utils.NewInternalError("unsupported grouping", fmt.Errorf("column %q", column))
	}

	var rows []groupCount
	err := s.db.WithContext(ctx).Model(&models.ECO{}).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, utils.NewInternalError("failed to summarize ECOs", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.GroupKey] = row.Total
	}
	return out, nil
}

// ECOTrend returns one point per day, oldest first, covering the last `days`
// days including today (UTC).
func (s *ReportService) ECOTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	if days < 1 || days > maxTrendDays {
		return nil, utils.NewValidationError(fmt.Sprintf("days must be between 1 and %d", maxTrendDays), nil)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = TrendPoint{Date: day}
		index[day] = i
	}

	var created []time.Time
	err := s.db.WithContext(ctx).Model(&models.ECO{}).
		Where("created_at >= ?", start).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, utils.NewInternalError("failed to load ECO trend", err)
	}
	for _, t := range created {
		if i, ok := index[t.UTC().Format("2006-01-02")]; ok {
			points[i].Created++
		}
	}

	var completed []time.Time
	err = s.db.WithContext(ctx).Model(&models.AuditLogEntry{}).
		Where("action = ? AND timestamp >= ?", auditActionCompleted, start).
		Pluck("timestamp", &completed).Error
	if err != nil {
		return nil, utils.NewInternalError("failed to load ECO trend", err)
	}
	for _, t := range completed {
		if i, ok := index[t.UTC().Format("2006-01-02")]; ok {
			points[i].Completed++
		}
	}

	return points, nil
}

// ExportECOs renders the filtered ECO list as a spreadsheet or CSV file.
func (s *ReportService) ExportECOs(ctx context.Context, format string, filter ECOFilter) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		return nil, utils.NewValidationError("format must be xlsx or csv", nil)
	}

	query := s.db.WithContext(ctx).Model(&models.ECO{})
	if filter.Status != "" {
		query = query.Where("ecos.status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("ecos.type = ?", filter.Type)
	}
	if filter.ProductID != "" {
		query = query.Where("ecos.product_id = ?", filter.ProductID)
	}

	var rows []models.ECO
	if err := query.Preload("Product").Order("ecos.created_at DESC").Find(&rows).Error; err != nil {
		return nil, utils.NewInternalError("failed to export ECOs", err)
	}

	headers := []string{"ID", "Title", "Type", "Product", "Current Version", "Proposed Version",
		"Status", "Stage", "Created By", "Effective Date", "Created At"}
	data := make([][]string, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		shapeECO(row)
		effective := ""
		if !row.EffectiveDate.IsZero() {
			effective = row.EffectiveDate.Format("2006-01-02")
		}
		data = append(data, []string{
			row.ID, row.Title, string(row.Type), row.ProductName,
			row.CurrentVersion, row.ProposedVersion,
			string(row.Status), string(row.Stage), row.CreatedByName,
			effective, row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	if format == ExportFormatXLSX {
		content, err := renderExcel("ECOs", headers, data)
		if err != nil {
			return nil, utils.NewInternalError("failed to render spreadsheet", err)
		}
		return &ExportFile{
			FileName:    "ecos.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        content,
		}, nil
	}

	content, err := renderCSV(headers, data)
	if err != nil {
		return nil, utils.NewInternalError("failed to render csv", err)
	}
	return &ExportFile{FileName: "ecos.csv", ContentType: "text/csv", Data: content}, nil
}

func renderExcel(sheetName string, headers []string, data [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, style)
	}
	for r, row := range data {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderCSV(headers []string, data [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
