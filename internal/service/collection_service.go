package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/config"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/repository"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/apperr"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/idgen"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/logger"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/money"
)

const dateLayout = "2006-01-02"

// CollectionService records stop settlements and aggregates them into
// per driver-day totals.
type CollectionService struct {
	records PaymentRecordStore
	loc     *time.Location
	log     *logrus.Entry
}

func NewCollectionService(db *gorm.DB, cfg *config.Config) (*CollectionService, error) {
	loc, err := time.LoadLocation(cfg.Business.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reporting timezone %q: %w", cfg.Business.ReportingTimezone, err)
	}
	return &CollectionService{
		records: repository.NewPaymentRecordRepository(db),
		loc:     loc,
		log:     logger.WithComponent("collection_service"),
	}, nil
}

type CollectPaymentRequest struct {
	DriverID        int64
	StopID          int64
	AmountCollected decimal.Decimal
	Method          string
	Reference       string
	ShortageReason  string
	Notes           string
}

// CollectPayment records the settlement of a delivery stop. The status
// is always derived from the amounts; callers cannot set it. The record
// and the stop's mirrored settlement fields commit together, so a
// validation failure leaves nothing behind.
func (s *CollectionService) CollectPayment(ctx context.Context, req *CollectPaymentRequest) (*model.PaymentRecord, error) {
	if req.AmountCollected.IsNegative() {
		return nil, apperr.NewValidation("amount_collected", "must not be negative")
	}
	if !model.ValidPaymentMethod(req.Method) {
		return nil, apperr.NewValidation("method", "unrecognized payment method")
	}
	if model.IsCliqMethod(req.Method) && req.Reference == "" {
		return nil, apperr.NewValidation("reference", "required for CliQ payments")
	}

	stop, err := s.records.GetStopForDriver(ctx, req.DriverID, req.StopID)
	if err != nil {
		if errors.Is(err, repository.ErrStopNotFound) {
			return nil, apperr.NewNotFound("delivery stop")
		}
		return nil, fmt.Errorf("load stop: %w", err)
	}

	existing, err := s.records.GetByStopID(ctx, req.StopID)
	if err != nil {
		return nil, fmt.Errorf("check existing settlement: %w", err)
	}
	if existing != nil {
		return nil, apperr.NewValidation("stop_id", "stop already has a settlement record")
	}

	status := model.DerivePaymentStatus(stop.AmountExpected, req.AmountCollected)
	if status != model.PaymentStatusCollected && req.ShortageReason == "" {
		return nil, apperr.NewValidation("shortage_reason", "required when the stop is not fully collected")
	}

	record := &model.PaymentRecord{
		PaymentNo:       idgen.GeneratePaymentNo(),
		StopID:          stop.ID,
		TripID:          stop.TripID,
		DriverID:        req.DriverID,
		ShopID:          stop.ShopID,
		ShopName:        stop.ShopName,
		AmountExpected:  stop.AmountExpected,
		AmountCollected: req.AmountCollected,
		Method:          req.Method,
		Reference:       req.Reference,
		Status:          status,
		ShortageReason:  req.ShortageReason,
		Notes:           req.Notes,
		CollectedAt:     time.Now().In(s.loc),
	}

	if err := s.records.CreateWithMirror(ctx, record); err != nil {
		return nil, fmt.Errorf("persist payment record: %w", err)
	}

	if req.AmountCollected.Cmp(stop.AmountExpected) > 0 {
		s.log.WithFields(logrus.Fields{
			"payment_no": record.PaymentNo,
			"driver_id":  req.DriverID,
			"overage":    money.Overage(stop.AmountExpected, req.AmountCollected).String(),
		}).Warn("over-collection recorded")
	}

	return record, nil
}

// GetPaymentRecord returns a driver's settlement record for the views.
func (s *CollectionService) GetPaymentRecord(ctx context.Context, driverID int64, paymentNo string) (*model.PaymentRecord, error) {
	record, err := s.records.GetByPaymentNo(ctx, driverID, paymentNo)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperr.NewNotFound("payment record")
		}
		return nil, err
	}
	return record, nil
}

// DailyTotals is the aggregated view of one driver's collection day.
type DailyTotals struct {
	TotalExpected       decimal.Decimal     `json:"total_expected"`
	TotalCollected      decimal.Decimal     `json:"total_collected"`
	TotalCash           decimal.Decimal     `json:"total_cash"`
	TotalCliq           decimal.Decimal     `json:"total_cliq"`
	ShortageAmount      decimal.Decimal     `json:"shortage_amount"`
	OverageAmount       decimal.Decimal     `json:"overage_amount"`
	CollectionRate      decimal.Decimal     `json:"collection_rate"`
	DeliveriesCompleted int                 `json:"deliveries_completed"`
	ShopBreakdown       model.ShopBreakdown `json:"shop_breakdown"`
}

// CalculateDailyTotals aggregates the driver's payment records for the
// calendar day in the reporting timezone.
func (s *CollectionService) CalculateDailyTotals(ctx context.Context, driverID int64, date string) (*DailyTotals, error) {
	from, to, err := s.dayWindow(date)
	if err != nil {
		return nil, err
	}

	records, err := s.records.ListByDriverAndRange(ctx, driverID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}

	return BuildDailyTotals(records), nil
}

// DayWindow returns the [from, to) bounds of a reporting-timezone
// calendar day.
func (s *CollectionService) DayWindow(date string) (time.Time, time.Time, error) {
	return s.dayWindow(date)
}

func (s *CollectionService) dayWindow(date string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.NewValidation("date", "must be YYYY-MM-DD")
	}
	return from, from.AddDate(0, 0, 1), nil
}

// BuildDailyTotals computes totals, method split, and the shop breakdown
// from one day's records. Sums stay unrounded until the end; rounding
// happens once per exposed figure.
func BuildDailyTotals(records []*model.PaymentRecord) *DailyTotals {
	totalExpected := decimal.Zero
	totalCollected := decimal.Zero
	totalCash := decimal.Zero
	totalCliq := decimal.Zero

	type shopAccumulator struct {
		entry     model.ShopBreakdownEntry
		cashCount int
		cliqCount int
	}
	shopIndex := make(map[int64]int)
	shops := make([]*shopAccumulator, 0)

	for _, record := range records {
		totalExpected = totalExpected.Add(record.AmountExpected)
		totalCollected = totalCollected.Add(record.AmountCollected)

		// Mixed settlements sit in the driver's cash custody; the CliQ
		// leg is traceable through the reference.
		switch record.Method {
		case model.MethodCliqNow, model.MethodCliqLater:
			totalCliq = totalCliq.Add(record.AmountCollected)
		default:
			totalCash = totalCash.Add(record.AmountCollected)
		}

		idx, ok := shopIndex[record.ShopID]
		if !ok {
			idx = len(shops)
			shopIndex[record.ShopID] = idx
			shops = append(shops, &shopAccumulator{
				entry: model.ShopBreakdownEntry{
					ShopID:          record.ShopID,
					ShopName:        record.ShopName,
					AmountCollected: decimal.Zero,
					AmountExpected:  decimal.Zero,
				},
			})
		}
		acc := shops[idx]
		acc.entry.AmountCollected = acc.entry.AmountCollected.Add(record.AmountCollected)
		acc.entry.AmountExpected = acc.entry.AmountExpected.Add(record.AmountExpected)
		acc.entry.DeliveriesCount++
		switch record.Method {
		case model.MethodCash:
			acc.cashCount++
		case model.MethodCliqNow, model.MethodCliqLater:
			acc.cliqCount++
		case model.MethodMixed:
			acc.cashCount++
			acc.cliqCount++
		}
	}

	breakdown := make(model.ShopBreakdown, 0, len(shops))
	for _, acc := range shops {
		acc.entry.AmountCollected = money.Round2(acc.entry.AmountCollected)
		acc.entry.AmountExpected = money.Round2(acc.entry.AmountExpected)
		acc.entry.PrimaryPaymentMethod = model.PrimaryMethod(acc.cashCount, acc.cliqCount)
		breakdown = append(breakdown, acc.entry)
	}

	return &DailyTotals{
		TotalExpected:       money.Round2(totalExpected),
		TotalCollected:      money.Round2(totalCollected),
		TotalCash:           money.Round2(totalCash),
		TotalCliq:           money.Round2(totalCliq),
		ShortageAmount:      money.Round2(money.Shortage(totalExpected, totalCollected)),
		OverageAmount:       money.Round2(money.Overage(totalExpected, totalCollected)),
		CollectionRate:      money.CollectionRate(totalExpected, totalCollected),
		DeliveriesCompleted: len(records),
		ShopBreakdown:       breakdown,
	}
}
