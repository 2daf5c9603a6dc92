package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-pdf/internal/domain"
)

func fixedClock(s *Store) time.Time {
	now := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return now
}

func TestNew_InitialState(t *testing.T) {
	s := New("it-1")
	it := s.Itinerary()

	assert.Equal(t, "it-1", it.ID)
	assert.Equal(t, 1, it.TourOverview.NumberOfTravellers)
	assert.Equal(t, "INR", it.PaymentPlan.Currency)
	assert.Equal(t, 1, it.PaymentPlan.NumberOfInstallments)
	assert.NotEmpty(t, it.InclusionsExclusions.TransferPolicy)
	assert.Empty(t, it.DailyItinerary)
}

func TestDays_AddRemoveRenumber(t *testing.T) {
	s := New("it")
	d1, _ := s.AddDay()
	d2, _ := s.AddDay()
	d3, _ := s.AddDay()

	require.Len(t, d1.Timeline, 3)
	assert.Equal(t, domain.Morning, d1.Timeline[0].Period)
	assert.Equal(t, 3, d3.DayNumber)

	require.NoError(t, s.RemoveDay(d2.ID))
	days := s.ExportData().DailyItinerary
	require.Len(t, days, 2)
	assert.Equal(t, d3.ID, days[1].ID)
	assert.Equal(t, 2, days[1].DayNumber)

	require.NoError(t, s.RemoveDay(d1.ID))
	require.NoError(t, s.RemoveDay(d3.ID), "removing the last day is a silent no-op")
	assert.Len(t, s.ExportData().DailyItinerary, 1)

	err := s.RemoveDay("missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestUpdateDay_KeepsIdentity(t *testing.T) {
	s := New("it")
	d, _ := s.AddDay()

	err := s.UpdateDay(d.ID, func(day *domain.DayItinerary) error {
		return json.Unmarshal([]byte(`{"id":"hijack","dayNumber":9,"city":"Singapore"}`), day)
	})
	require.NoError(t, err)

	got := s.ExportData().DailyItinerary[0]
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, 1, got.DayNumber)
	assert.Equal(t, "Singapore", got.City)
}

func TestHotels_NightsAndKeepLast(t *testing.T) {
	s := New("it")
	h1, _ := s.AddHotel()
	h2, _ := s.AddHotel()

	require.NoError(t, s.UpdateHotel(h1.ID, func(h *domain.Hotel) error {
		h.Name = "Marina Bay Sands"
		h.CheckIn, h.CheckOut = "2026-03-01", "2026-03-04"
		return nil
	}))
	assert.Equal(t, 3, s.ExportData().Hotels[0].Nights)

	require.NoError(t, s.RemoveHotel(h2.ID))
	require.NoError(t, s.RemoveHotel(h1.ID))
	assert.Len(t, s.ExportData().Hotels, 1)
}

func TestInstallments_AddRemove(t *testing.T) {
	s := New("it")
	i1, _ := s.AddInstallment()
	i2, _ := s.AddInstallment()
	i3, _ := s.AddInstallment()

	assert.Equal(t, "Installment 2", i2.Description)
	assert.Equal(t, 3, s.Itinerary().PaymentPlan.NumberOfInstallments)

	require.NoError(t, s.RemoveInstallment(i1.ID))
	plan := s.Itinerary().PaymentPlan
	require.Len(t, plan.Installments, 2)
	assert.Equal(t, i3.ID, plan.Installments[1].ID)
	assert.Equal(t, 2, plan.Installments[1].InstallmentNumber)
	assert.Equal(t, 2, plan.NumberOfInstallments)

	require.NoError(t, s.UpdateInstallment(i2.ID, func(in *domain.Installment) error {
		in.Status = domain.StatusPaid
		return nil
	}))
	assert.Equal(t, domain.StatusPaid, s.Itinerary().PaymentPlan.Installments[0].Status)
}

func TestGenerateInstallments_RemainderOnLast(t *testing.T) {
	s := New("it")
	fixedClock(s)
	require.NoError(t, s.UpdatePaymentPlan(func(p *domain.PaymentPlan) error {
		p.TotalAmount = decimal.NewFromInt(1000)
		p.NumberOfInstallments = 3
		return nil
	}))
	require.NoError(t, s.GenerateInstallments())

	inst := s.Itinerary().PaymentPlan.Installments
	require.Len(t, inst, 3)
	assert.Equal(t, "Down Payment", inst[0].Description)
	assert.True(t, inst[0].Amount.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, inst[2].Amount.Equal(decimal.RequireFromString("333.34")))
	assert.Equal(t, "2026-01-31", inst[0].DueDate)
	assert.Equal(t, "2026-03-03", inst[1].DueDate, "AddDate normalizes Feb 31")

	sum := decimal.Zero
	for _, i := range inst {
		sum = sum.Add(i.Amount)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(1000)))
}

func TestGenerateInstallments_NoopWithoutTotal(t *testing.T) {
	s := New("it")
	require.NoError(t, s.GenerateInstallments())
	assert.Empty(t, s.Itinerary().PaymentPlan.Installments)
}

func TestFeesAndActivities(t *testing.T) {
	s := New("it")
	idx, _ := s.AddFee()
	require.NoError(t, s.UpdateFee(idx, func(f *domain.Fee) error {
		f.Name = "Visa"
		f.Amount = decimal.NewFromInt(80)
		return nil
	}))
	assert.Equal(t, "Visa", s.Itinerary().PaymentPlan.AdditionalFees[0].Name)
	assert.ErrorIs(t, s.RemoveFee(5), domain.ErrItemNotFound)
	require.NoError(t, s.RemoveFee(idx))

	a, _ := s.AddActivity()
	require.NoError(t, s.UpdateActivity(a.ID, func(act *domain.Activity) error {
		act.Activity = "Night Safari"
		return nil
	}))
	assert.Equal(t, "Night Safari", s.Itinerary().Activities[0].Activity)
	require.NoError(t, s.RemoveActivity(a.ID))
	assert.Empty(t, s.Itinerary().Activities)
}

func TestSectionUpdate_FailureKeepsState(t *testing.T) {
	s := New("it")
	boom := errors.New("bad payload")
	err := s.UpdateTourOverview(func(o *domain.TourOverview) error {
		o.TripTitle = "half written"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.ExportData().TourOverview.TripTitle)
}

func TestExportData_IsIndependentCopy(t *testing.T) {
	s := New("it")
	require.NoError(t, s.UpdateTourOverview(func(o *domain.TourOverview) error {
		o.Highlights = []string{"Sentosa"}
		return nil
	}))

	snap := s.ExportData()
	snap.TourOverview.Highlights[0] = "mutated"

	assert.Equal(t, "Sentosa", s.ExportData().TourOverview.Highlights[0])
}

func TestImportAndReset(t *testing.T) {
	s := New("keep-id")
	require.NoError(t, s.Import(domain.Itinerary{
		ID:           "other",
		TourOverview: domain.TourOverview{TripTitle: "Bali", NumberOfTravellers: 2},
	}))

	it := s.Itinerary()
	assert.Equal(t, "keep-id", it.ID)
	assert.Equal(t, "Bali", it.TourOverview.TripTitle)
	assert.Equal(t, "INR", it.PaymentPlan.Currency, "missing sections fall back to initial values")

	require.NoError(t, s.Reset())
	assert.Empty(t, s.Itinerary().TourOverview.TripTitle)
	assert.Equal(t, "keep-id", s.ID())
}

type memRepo struct {
	mu      sync.Mutex
	m       map[string]domain.Itinerary
	saveErr error
}

func newMemRepo() *memRepo { return &memRepo{m: make(map[string]domain.Itinerary)} }

func (r *memRepo) Load(_ context.Context, id string) (domain.Itinerary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.m[id]
	if !ok {
		return domain.Itinerary{}, domain.ErrItineraryNotFound
	}
	return it.Clone(), nil
}

func (r *memRepo) Save(_ context.Context, it domain.Itinerary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.m[it.ID] = it.Clone()
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

func TestRegistry_CreateMutateReload(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	reg := NewRegistry(repo)

	s, err := reg.Create(ctx)
	require.NoError(t, err)

	_, err = reg.Mutate(ctx, s.ID(), func(st *Store) error {
		return st.UpdateTourOverview(func(o *domain.TourOverview) error {
			o.TripTitle = "Singapore Escape"
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "Singapore Escape", repo.m[s.ID()].TourOverview.TripTitle)

	fresh := NewRegistry(repo)
	loaded, err := fresh.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "Singapore Escape", loaded.ExportData().TourOverview.TripTitle)

	require.NoError(t, fresh.Delete(ctx, s.ID()))
	_, err = fresh.Get(ctx, s.ID())
	assert.ErrorIs(t, err, domain.ErrItineraryNotFound)
}

func TestRegistry_SaveFailureEvictsCache(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	reg := NewRegistry(repo)
	s, err := reg.Create(ctx)
	require.NoError(t, err)

	repo.saveErr = errors.New("disk full")
	_, err = reg.Mutate(ctx, s.ID(), func(st *Store) error {
		_, err := st.AddDay()
		return err
	})
	require.Error(t, err)

	repo.saveErr = nil
	reloaded, err := reg.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Empty(t, reloaded.ExportData().DailyItinerary)
}

func TestFailedUpdate_LeavesNestedSlicesUntouched(t *testing.T) {
	s := New("it")
	require.NoError(t, s.UpdateTourOverview(func(o *domain.TourOverview) error {
		o.Highlights = []string{"a", "b"}
		return nil
	}))
	h, _ := s.AddHotel()
	require.NoError(t, s.UpdateHotel(h.ID, func(h *domain.Hotel) error {
		h.Amenities = []string{"pool", "spa"}
		return nil
	}))
	fee, _ := s.AddFee()
	require.NoError(t, s.UpdateFee(fee, func(f *domain.Fee) error {
		f.Name = "Visa"
		return nil
	}))

	// json.Unmarshal fills matching fields before reporting the type error.
	err := s.UpdateTourOverview(func(o *domain.TourOverview) error {
		return json.Unmarshal([]byte(`{"highlights":["X","Y"],"numberOfTravellers":"bad"}`), o)
	})
	require.Error(t, err)
	err = s.UpdateHotel(h.ID, func(h *domain.Hotel) error {
		return json.Unmarshal([]byte(`{"amenities":["gym","bar"],"rooms":"two"}`), h)
	})
	require.Error(t, err)
	err = s.UpdateFee(fee, func(f *domain.Fee) error {
		return json.Unmarshal([]byte(`{"name":"Tips","amount":true}`), f)
	})
	require.Error(t, err)

	it := s.Itinerary()
	assert.Equal(t, []string{"a", "b"}, it.TourOverview.Highlights)
	assert.Equal(t, []string{"pool", "spa"}, it.Hotels[0].Amenities)
	assert.Equal(t, "Visa", it.PaymentPlan.AdditionalFees[0].Name)
}

func TestRegistry_RejectedMutationIsNotSavedLater(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	reg := NewRegistry(repo)
	s, err := reg.Create(ctx)
	require.NoError(t, err)

	_, err = reg.Mutate(ctx, s.ID(), func(st *Store) error {
		return st.UpdateTourOverview(func(o *domain.TourOverview) error {
			o.Highlights = []string{"a", "b"}
			return nil
		})
	})
	require.NoError(t, err)

	_, err = reg.Mutate(ctx, s.ID(), func(st *Store) error {
		return st.UpdateTourOverview(func(o *domain.TourOverview) error {
			return json.Unmarshal([]byte(`{"highlights":["X","Y"],"numberOfTravellers":"bad"}`), o)
		})
	})
	require.Error(t, err)

	_, err = reg.Mutate(ctx, s.ID(), func(st *Store) error {
		_, err := st.AddDay()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, repo.m[s.ID()].TourOverview.Highlights)
}
