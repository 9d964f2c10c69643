package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/pkg/clock"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// FileStore keeps generated reports. Save returns the key URL resolves.
type FileStore interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

type ReportNotifier interface {
	NotifyReportReady(ctx context.Context, userID int64, reportID, url, fileName string) error
}

type Report struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	Rows     int    `json:"rows"`
}

type reportColumn struct {
	Header string
	Value  func(t domain.LandlordTracking) any
}

var reportColumns = []reportColumn{
	{"Property", func(t domain.LandlordTracking) any { return t.PropertyTitle }},
	{"Tenant", func(t domain.LandlordTracking) any { return t.TenantName }},
	{"Due date", func(t domain.LandlordTracking) any { return t.ExpectedDate.Format("2006-01-02") }},
	{"Expected", func(t domain.LandlordTracking) any { return centsToUnits(t.ExpectedAmountCents) }},
	{"Detected", func(t domain.LandlordTracking) any {
		if t.DetectedAmountCents == nil {
			return ""
		}
		return centsToUnits(*t.DetectedAmountCents)
	}},
	{"Payment date", func(t domain.LandlordTracking) any { return datePtr(t.DetectedDate) }},
	{"Partial", func(t domain.LandlordTracking) any {
		if t.IsPartialPayment {
			return "yes"
		}
		return ""
	}},
	{"Status", func(t domain.LandlordTracking) any { return string(t.Status) }},
	{"Reminder sent", func(t domain.LandlordTracking) any { return datePtr(t.ReminderSentAt) }},
	{"Confirmed", func(t domain.LandlordTracking) any { return datePtr(t.ManuallyConfirmedAt) }},
	{"Ignore reason", func(t domain.LandlordTracking) any {
		if t.IgnoreReason == nil {
			return ""
		}
		return *t.IgnoreReason
	}},
}

func centsToUnits(c int64) float64 {
	return float64(c) / 100
}

func datePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format("2006-01-02")
}

// ReportService renders a landlord's month of trackings to XLSX.
type ReportService struct {
	trackings TrackingRepository
	store     FileStore
	notifier  ReportNotifier
	clock     clock.Clock
	log       *zap.Logger
}

func NewReportService(trackings TrackingRepository, store FileStore, notifier ReportNotifier, clk clock.Clock, log *zap.Logger) *ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{
		trackings: trackings,
		store:     store,
		notifier:  notifier,
		clock:     clk,
		log:       log.Named("report"),
	}
}

func (s *ReportService) ExportMonth(ctx context.Context, landlordID int64, year, month int) (*Report, error) {
	if s.store == nil {
		return nil, errors.New("report storage not configured")
	}

	rows, err := listLandlordMonth(ctx, s.trackings, landlordID, year, month)
	if err != nil {
		return nil, err
	}

	data, err := renderTrackings(rows, landlordID, year, month)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	fileName := fmt.Sprintf("rent_%04d_%02d_%s.xlsx", year, month, s.clock.Now().Format("20060102_150405"))

	key, err := s.store.Save(ctx, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("report url: %w", err)
	}

	report := &Report{
		ID:       uuid.NewString(),
		FileName: fileName,
		URL:      url,
		Rows:     len(rows),
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyReportReady(ctx, landlordID, report.ID, url, fileName); err != nil {
			s.log.Warn("report notification failed", zap.Int64("landlord_id", landlordID), zap.Error(err))
		}
	}

	s.log.Info("report generated",
		zap.Int64("landlord_id", landlordID),
		zap.String("period", fmt.Sprintf("%04d-%02d", year, month)),
		zap.Int("rows", len(rows)),
	)

	return report, nil
}

func renderTrackings(rows []domain.LandlordTracking, landlordID int64, year, month int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%04d-%02d", year, month)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("landlord_%d", landlordID),
		Title:   "Rent " + formatPeriod(year, month),
	})

	for i, col := range reportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
			return nil, err
		}
	}

	for r, t := range rows {
		for c, col := range reportColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, col.Value(t)); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
