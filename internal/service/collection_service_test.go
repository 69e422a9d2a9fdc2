package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/repository"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/apperr"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/logger"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/money"
)

type fakePaymentStore struct {
	stops         map[int64]*model.DeliveryStop
	recordsByStop map[int64]*model.PaymentRecord
	created       []*model.PaymentRecord
	listResult    []*model.PaymentRecord
	drivers       []int64
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		stops:         make(map[int64]*model.DeliveryStop),
		recordsByStop: make(map[int64]*model.PaymentRecord),
	}
}

func (f *fakePaymentStore) GetStopForDriver(_ context.Context, driverID, stopID int64) (*model.DeliveryStop, error) {
	stop, ok := f.stops[stopID]
	if !ok || stop.DriverID != driverID {
		return nil, repository.ErrStopNotFound
	}
	return stop, nil
}

func (f *fakePaymentStore) GetByStopID(_ context.Context, stopID int64) (*model.PaymentRecord, error) {
	return f.recordsByStop[stopID], nil
}

func (f *fakePaymentStore) GetByPaymentNo(_ context.Context, driverID int64, paymentNo string) (*model.PaymentRecord, error) {
	for _, record := range f.created {
		if record.PaymentNo == paymentNo && record.DriverID == driverID {
			return record, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakePaymentStore) CreateWithMirror(_ context.Context, record *model.PaymentRecord) error {
	f.created = append(f.created, record)
	f.recordsByStop[record.StopID] = record
	if stop, ok := f.stops[record.StopID]; ok {
		stop.SettlementMethod = record.Method
		stop.SettlementStatus = record.Status
		stop.SettlementReference = record.Reference
		collected := record.AmountCollected
		stop.AmountCollected = &collected
		settledAt := record.CollectedAt
		stop.SettledAt = &settledAt
	}
	return nil
}

func (f *fakePaymentStore) ListByDriverAndRange(_ context.Context, driverID int64, _, _ time.Time) ([]*model.PaymentRecord, error) {
	var records []*model.PaymentRecord
	for _, record := range f.listResult {
		if record.DriverID == driverID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakePaymentStore) ListDriversWithRecords(_ context.Context, _, _ time.Time) ([]int64, error) {
	return f.drivers, nil
}

func newTestCollectionService(store *fakePaymentStore) *CollectionService {
	return &CollectionService{
		records: store,
		loc:     time.UTC,
		log:     logger.WithComponent("collection_service_test"),
	}
}

func testStop(stopID, driverID int64, expected string) *model.DeliveryStop {
	return &model.DeliveryStop{
		ID:             stopID,
		TripID:         10,
		DriverID:       driverID,
		ShopID:         77,
		ShopName:       "Al Baraka Mart",
		AmountExpected: decimal.RequireFromString(expected),
	}
}

func TestCollectPayment_FullCashCollection(t *testing.T) {
	store := newFakePaymentStore()
	store.stops[1] = testStop(1, 5, "1000.00")
	svc := newTestCollectionService(store)

	record, err := svc.CollectPayment(context.Background(), &CollectPaymentRequest{
		DriverID:        5,
		StopID:          1,
		AmountCollected: decimal.RequireFromString("1000.00"),
		Method:          model.MethodCash,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, record.PaymentNo)
	assert.Equal(t, model.PaymentStatusCollected, record.Status)
	assert.Equal(t, int64(77), record.ShopID)
	assert.True(t, record.AmountExpected.Equal(decimal.RequireFromString("1000.00")))
	assert.False(t, record.CollectedAt.IsZero())

	// settlement fields mirrored onto the stop
	stop := store.stops[1]
	assert.Equal(t, model.MethodCash, stop.SettlementMethod)
	assert.Equal(t, model.PaymentStatusCollected, stop.SettlementStatus)
	require.NotNil(t, stop.AmountCollected)
	assert.True(t, stop.AmountCollected.Equal(record.AmountCollected))
	assert.NotNil(t, stop.SettledAt)
}

func TestCollectPayment_PartialRequiresReason(t *testing.T) {
	store := newFakePaymentStore()
	store.stops[1] = testStop(1, 5, "500.00")
	svc := newTestCollectionService(store)

	record, err := svc.CollectPayment(context.Background(), &CollectPaymentRequest{
		DriverID:        5,
		StopID:          1,
		AmountCollected: decimal.RequireFromString("250.00"),
		Method:          model.MethodCash,
		ShortageReason:  model.ShortageInsufficientFunds,
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartial, record.Status)
	assert.Equal(t, model.ShortageInsufficientFunds, record.ShortageReason)
}

func TestCollectPayment_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		req  *CollectPaymentRequest
	}{
		{
			name: "negative amount",
			req: &CollectPaymentRequest{
				DriverID: 5, StopID: 1,
				AmountCollected: decimal.RequireFromString("-1.00"),
				Method:          model.MethodCash,
			},
		},
		{
			name: "unknown method",
			req: &CollectPaymentRequest{
				DriverID: 5, StopID: 1,
				AmountCollected: decimal.RequireFromString("100.00"),
				Method:          "card",
			},
		},
		{
			name: "cliq without reference",
			req: &CollectPaymentRequest{
				DriverID: 5, StopID: 1,
				AmountCollected: decimal.RequireFromString("100.00"),
				Method:          model.MethodCliqNow,
			},
		},
		{
			name: "partial without shortage reason",
			req: &CollectPaymentRequest{
				DriverID: 5, StopID: 1,
				AmountCollected: decimal.RequireFromString("100.00"),
				Method:          model.MethodCash,
			},
		},
		{
			name: "failed without shortage reason",
			req: &CollectPaymentRequest{
				DriverID: 5, StopID: 1,
				AmountCollected: decimal.Zero,
				Method:          model.MethodCash,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePaymentStore()
			store.stops[1] = testStop(1, 5, "500.00")
			svc := newTestCollectionService(store)

			_, err := svc.CollectPayment(context.Background(), tt.req)

			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
			// no partial write
			assert.Empty(t, store.created)
		})
	}
}

func TestCollectPayment_StopOwnershipHidden(t *testing.T) {
	store := newFakePaymentStore()
	store.stops[1] = testStop(1, 99, "500.00") // belongs to another driver
	svc := newTestCollectionService(store)

	_, err := svc.CollectPayment(context.Background(), &CollectPaymentRequest{
		DriverID:        5,
		StopID:          1,
		AmountCollected: decimal.RequireFromString("500.00"),
		Method:          model.MethodCash,
	})

	assert.True(t, apperr.IsNotFound(err))
}

func TestCollectPayment_RejectsSecondRecordForStop(t *testing.T) {
	store := newFakePaymentStore()
	store.stops[1] = testStop(1, 5, "500.00")
	store.recordsByStop[1] = &model.PaymentRecord{StopID: 1}
	svc := newTestCollectionService(store)

	_, err := svc.CollectPayment(context.Background(), &CollectPaymentRequest{
		DriverID:        5,
		StopID:          1,
		AmountCollected: decimal.RequireFromString("500.00"),
		Method:          model.MethodCash,
	})

	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, store.created)
}

func TestCalculateDailyTotals_RejectsBadDate(t *testing.T) {
	svc := newTestCollectionService(newFakePaymentStore())

	_, err := svc.CalculateDailyTotals(context.Background(), 5, "15/01/2026")

	assert.True(t, apperr.IsValidation(err))
}

func record(driverID, shopID int64, shopName, expected, collected, method string) *model.PaymentRecord {
	return &model.PaymentRecord{
		DriverID:        driverID,
		ShopID:          shopID,
		ShopName:        shopName,
		AmountExpected:  decimal.RequireFromString(expected),
		AmountCollected: decimal.RequireFromString(collected),
		Method:          method,
	}
}

func TestBuildDailyTotals_SingleFullCashStop(t *testing.T) {
	totals := BuildDailyTotals([]*model.PaymentRecord{
		record(5, 77, "Al Baraka Mart", "1000.00", "1000.00", model.MethodCash),
	})

	assert.True(t, totals.TotalCollected.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, totals.TotalCash.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, totals.TotalCliq.IsZero())
	assert.True(t, totals.ShortageAmount.IsZero())
	assert.True(t, totals.OverageAmount.IsZero())
	assert.True(t, totals.CollectionRate.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, 1, totals.DeliveriesCompleted)
}

func TestBuildDailyTotals_MethodSplit(t *testing.T) {
	totals := BuildDailyTotals([]*model.PaymentRecord{
		record(5, 77, "Al Baraka Mart", "600.00", "600.00", model.MethodCash),
		record(5, 78, "Jabal Amman Deli", "400.00", "400.00", model.MethodCliqNow),
	})

	assert.True(t, totals.TotalCash.Equal(decimal.RequireFromString("600.00")))
	assert.True(t, totals.TotalCliq.Equal(decimal.RequireFromString("400.00")))
	assert.True(t, totals.CollectionRate.Equal(decimal.RequireFromString("100")))
	assert.True(t, totals.TotalCash.Add(totals.TotalCliq).Equal(totals.TotalCollected))
}

func TestBuildDailyTotals_PartialDay(t *testing.T) {
	totals := BuildDailyTotals([]*model.PaymentRecord{
		record(5, 77, "Al Baraka Mart", "1000.00", "1000.00", model.MethodCash),
		record(5, 78, "Jabal Amman Deli", "500.00", "250.00", model.MethodCash),
	})

	assert.True(t, totals.TotalExpected.Equal(decimal.RequireFromString("1500.00")))
	assert.True(t, totals.TotalCollected.Equal(decimal.RequireFromString("1250.00")))
	assert.True(t, totals.ShortageAmount.Equal(decimal.RequireFromString("250.00")))
	assert.True(t, totals.OverageAmount.IsZero())
	assert.True(t, totals.CollectionRate.Equal(decimal.RequireFromString("83.33")))
}

func TestBuildDailyTotals_EmptyDay(t *testing.T) {
	totals := BuildDailyTotals(nil)

	assert.True(t, totals.TotalExpected.IsZero())
	assert.True(t, totals.TotalCollected.IsZero())
	// nothing expected counts as fully collected; the same policy as a
	// zero-expected day with records
	assert.True(t, totals.CollectionRate.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, 0, totals.DeliveriesCompleted)
	assert.Empty(t, totals.ShopBreakdown)
}

func TestBuildDailyTotals_ShopBreakdown(t *testing.T) {
	totals := BuildDailyTotals([]*model.PaymentRecord{
		record(5, 77, "Al Baraka Mart", "300.00", "300.00", model.MethodCash),
		record(5, 78, "Jabal Amman Deli", "200.00", "200.00", model.MethodCliqNow),
		record(5, 77, "Al Baraka Mart", "150.00", "150.00", model.MethodCliqLater),
		record(5, 77, "Al Baraka Mart", "50.00", "50.00", model.MethodCash),
	})

	require.Len(t, totals.ShopBreakdown, 2)

	// first-touched shop comes first
	first := totals.ShopBreakdown[0]
	assert.Equal(t, int64(77), first.ShopID)
	assert.Equal(t, 3, first.DeliveriesCount)
	assert.True(t, first.AmountCollected.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, model.PrimaryCash, first.PrimaryPaymentMethod)

	second := totals.ShopBreakdown[1]
	assert.Equal(t, int64(78), second.ShopID)
	assert.Equal(t, model.PrimaryCliq, second.PrimaryPaymentMethod)
}

func TestBuildDailyTotals_MixedMethodCounts(t *testing.T) {
	totals := BuildDailyTotals([]*model.PaymentRecord{
		record(5, 77, "Al Baraka Mart", "100.00", "100.00", model.MethodMixed),
	})

	// the mixed amount sits in the driver's cash custody
	assert.True(t, totals.TotalCash.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, totals.TotalCliq.IsZero())
	// but the shop counts both tallies, so a lone mixed stop classifies mixed
	require.Len(t, totals.ShopBreakdown, 1)
	assert.Equal(t, model.PrimaryMixed, totals.ShopBreakdown[0].PrimaryPaymentMethod)
}

func TestBuildDailyTotals_CashCliqInvariant(t *testing.T) {
	totals := BuildDailyTotals([]*model.PaymentRecord{
		record(5, 77, "Al Baraka Mart", "333.33", "333.33", model.MethodCash),
		record(5, 78, "Jabal Amman Deli", "166.67", "120.50", model.MethodCliqNow),
		record(5, 79, "Rainbow Street Kiosk", "90.10", "95.00", model.MethodMixed),
	})

	assert.True(t, money.WithinTolerance(totals.TotalCash.Add(totals.TotalCliq), totals.TotalCollected))
	assert.True(t, totals.ShortageAmount.Mul(totals.OverageAmount).IsZero())
}
