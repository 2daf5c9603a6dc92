// Package store holds the editable itinerary state. A Store owns one
// itinerary; a Registry owns many and persists them.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"

	"itinerary-pdf/internal/domain"
)

const (
	defaultPaymentCurrency = "INR"
	defaultTransferPolicy  = "If Any Transfer Is Delayed Beyond 15 Minutes, Customers May Book An App-Based Or Radio Taxi And Claim A Refund For That Specific Leg."
)

// Store is a concurrency-safe, normalized itinerary model.
type Store struct {
	mu  sync.RWMutex
	it  domain.Itinerary
	now func() time.Time
}

// New returns a store holding an empty itinerary with the given id.
func New(id string) *Store {
	s := &Store{now: time.Now}
	s.it = initial(id)
	return s
}

// FromItinerary returns a store seeded with a copy of it.
func FromItinerary(it domain.Itinerary) *Store {
	return &Store{it: it.Clone(), now: time.Now}
}

func initial(id string) domain.Itinerary {
	return domain.Itinerary{
		ID:           id,
		TourOverview: domain.TourOverview{NumberOfTravellers: 1, Highlights: []string{}},
		PaymentPlan: domain.PaymentPlan{
			Currency:             defaultPaymentCurrency,
			NumberOfInstallments: 1,
			Installments:         []domain.Installment{},
			AdditionalFees:       []domain.Fee{},
		},
		InclusionsExclusions: domain.InclusionsExclusions{
			Inclusions:     []domain.Inclusion{},
			Exclusions:     []domain.Inclusion{},
			TransferPolicy: defaultTransferPolicy,
		},
		DailyItinerary: []domain.DayItinerary{},
		Flights:        []domain.Flight{},
		Hotels:         []domain.Hotel{},
		Activities:     []domain.Activity{},
	}
}

func newID() string { return xid.New().String() }

// ID of the held itinerary.
func (s *Store) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.it.ID
}

// ExportData returns a deep copy of the sections consumed by the export
// pipeline. It never mutates the store.
func (s *Store) ExportData() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.it.Snapshot().Clone()
}

// Itinerary returns a deep copy of the full record.
func (s *Store) Itinerary() domain.Itinerary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.it.Clone()
}

// update runs fn on a deep copy under the write lock. The copy replaces the
// held itinerary only when fn succeeds, so a failed fn leaves no trace even
// when it wrote into slices before failing.
func (s *Store) update(fn func(it *domain.Itinerary) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.it.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = s.now().UTC()
	s.it = next
	return nil
}

// Reset restores the initial empty itinerary, keeping the id.
func (s *Store) Reset() error {
	return s.update(func(it *domain.Itinerary) error {
		*it = initial(it.ID)
		return nil
	})
}

// Import replaces the held data. Sections that are zero in data fall back to
// their initial values; the id is kept.
func (s *Store) Import(data domain.Itinerary) error {
	return s.update(func(it *domain.Itinerary) error {
		base := initial(it.ID)
		data = data.Clone()
		data.ID = it.ID
		if data.TourOverview.TripTitle == "" && data.TourOverview.Destination == "" && data.TourOverview.NumberOfTravellers == 0 {
			data.TourOverview = base.TourOverview
		}
		if data.DailyItinerary == nil {
			data.DailyItinerary = base.DailyItinerary
		}
		if data.Flights == nil {
			data.Flights = base.Flights
		}
		if data.Hotels == nil {
			data.Hotels = base.Hotels
		}
		if data.PaymentPlan.Currency == "" && data.PaymentPlan.Installments == nil && data.PaymentPlan.TotalAmount.IsZero() {
			data.PaymentPlan = base.PaymentPlan
		}
		if data.InclusionsExclusions.Inclusions == nil && data.InclusionsExclusions.Exclusions == nil && data.InclusionsExclusions.TransferPolicy == "" {
			data.InclusionsExclusions = base.InclusionsExclusions
		}
		if data.Activities == nil {
			data.Activities = base.Activities
		}
		*it = data
		return nil
	})
}

// UpdateTourOverview applies fn to the tour overview.
func (s *Store) UpdateTourOverview(fn func(*domain.TourOverview) error) error {
	return s.update(func(it *domain.Itinerary) error {
		return applyTo(&it.TourOverview, fn)
	})
}

// UpdateVisaDetails applies fn to the visa details.
func (s *Store) UpdateVisaDetails(fn func(*domain.VisaDetails) error) error {
	return s.update(func(it *domain.Itinerary) error {
		return applyTo(&it.VisaDetails, fn)
	})
}

// UpdateInclusionsExclusions applies fn to the inclusions/exclusions section.
func (s *Store) UpdateInclusionsExclusions(fn func(*domain.InclusionsExclusions) error) error {
	return s.update(func(it *domain.Itinerary) error {
		return applyTo(&it.InclusionsExclusions, fn)
	})
}

// AddDay appends an empty day with Morning/Afternoon/Evening slots.
func (s *Store) AddDay() (domain.DayItinerary, error) {
	var day domain.DayItinerary
	err := s.update(func(it *domain.Itinerary) error {
		id := newID()
		day = domain.DayItinerary{
			ID:        id,
			DayNumber: len(it.DailyItinerary) + 1,
			Timeline: []domain.TimelineItem{
				{ID: id + "-morning", Period: domain.Morning, Activities: []string{}},
				{ID: id + "-afternoon", Period: domain.Afternoon, Activities: []string{}},
				{ID: id + "-evening", Period: domain.Evening, Activities: []string{}},
			},
		}
		it.DailyItinerary = append(it.DailyItinerary, day)
		return nil
	})
	return day, err
}

// RemoveDay deletes a day and renumbers the rest. The last remaining day is kept.
func (s *Store) RemoveDay(id string) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.DailyItinerary, func(d domain.DayItinerary) bool { return d.ID == id })
		if idx < 0 {
			return fmt.Errorf("day %s: %w", id, domain.ErrItemNotFound)
		}
		if len(it.DailyItinerary) <= 1 {
			return nil
		}
		it.DailyItinerary = slices.Delete(it.DailyItinerary, idx, idx+1)
		for i := range it.DailyItinerary {
			it.DailyItinerary[i].DayNumber = i + 1
		}
		return nil
	})
}

// UpdateDay applies fn to the day with id. The id and day number cannot be changed.
func (s *Store) UpdateDay(id string, fn func(*domain.DayItinerary) error) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.DailyItinerary, func(d domain.DayItinerary) bool { return d.ID == id })
		if idx < 0 {
			return fmt.Errorf("day %s: %w", id, domain.ErrItemNotFound)
		}
		day := it.DailyItinerary[idx]
		if err := fn(&day); err != nil {
			return err
		}
		day.ID, day.DayNumber = id, it.DailyItinerary[idx].DayNumber
		it.DailyItinerary[idx] = day
		return nil
	})
}

// AddFlight appends an empty flight.
func (s *Store) AddFlight() (domain.Flight, error) {
	f := domain.Flight{ID: newID()}
	err := s.update(func(it *domain.Itinerary) error {
		it.Flights = append(it.Flights, f)
		return nil
	})
	return f, err
}

// RemoveFlight deletes a flight.
func (s *Store) RemoveFlight(id string) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.Flights, func(f domain.Flight) bool { return f.ID == id })
		if idx < 0 {
			return fmt.Errorf("flight %s: %w", id, domain.ErrItemNotFound)
		}
		it.Flights = slices.Delete(it.Flights, idx, idx+1)
		return nil
	})
}

// UpdateFlight applies fn to the flight with id.
func (s *Store) UpdateFlight(id string, fn func(*domain.Flight) error) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.Flights, func(f domain.Flight) bool { return f.ID == id })
		if idx < 0 {
			return fmt.Errorf("flight %s: %w", id, domain.ErrItemNotFound)
		}
		f := it.Flights[idx]
		if err := fn(&f); err != nil {
			return err
		}
		f.ID = id
		it.Flights[idx] = f
		return nil
	})
}

// AddHotel appends an empty hotel.
func (s *Store) AddHotel() (domain.Hotel, error) {
	h := domain.Hotel{ID: newID(), Amenities: []string{}}
	err := s.update(func(it *domain.Itinerary) error {
		it.Hotels = append(it.Hotels, h)
		return nil
	})
	return h, err
}

// RemoveHotel deletes a hotel. The last remaining hotel is kept.
func (s *Store) RemoveHotel(id string) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.Hotels, func(h domain.Hotel) bool { return h.ID == id })
		if idx < 0 {
			return fmt.Errorf("hotel %s: %w", id, domain.ErrItemNotFound)
		}
		if len(it.Hotels) <= 1 {
			return nil
		}
		it.Hotels = slices.Delete(it.Hotels, idx, idx+1)
		return nil
	})
}

// UpdateHotel applies fn to the hotel with id. Nights follow check-in/check-out
// when both parse as dates.
func (s *Store) UpdateHotel(id string, fn func(*domain.Hotel) error) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.Hotels, func(h domain.Hotel) bool { return h.ID == id })
		if idx < 0 {
			return fmt.Errorf("hotel %s: %w", id, domain.ErrItemNotFound)
		}
		h := it.Hotels[idx]
		if err := fn(&h); err != nil {
			return err
		}
		h.ID = id
		if n, ok := nights(h.CheckIn, h.CheckOut); ok {
			h.Nights = n
		}
		it.Hotels[idx] = h
		return nil
	})
}

func nights(checkIn, checkOut string) (int, bool) {
	in, err := time.Parse(time.DateOnly, checkIn)
	if err != nil {
		return 0, false
	}
	out, err := time.Parse(time.DateOnly, checkOut)
	if err != nil || out.Before(in) {
		return 0, false
	}
	return int(out.Sub(in).Hours() / 24), true
}

// UpdatePaymentPlan applies fn to the payment plan.
func (s *Store) UpdatePaymentPlan(fn func(*domain.PaymentPlan) error) error {
	return s.update(func(it *domain.Itinerary) error {
		return applyTo(&it.PaymentPlan, fn)
	})
}

// AddInstallment appends a pending installment and bumps the installment count.
func (s *Store) AddInstallment() (domain.Installment, error) {
	var inst domain.Installment
	err := s.update(func(it *domain.Itinerary) error {
		n := len(it.PaymentPlan.Installments) + 1
		inst = domain.Installment{
			ID:                newID(),
			InstallmentNumber: n,
			Amount:            decimal.Zero,
			Description:       fmt.Sprintf("Installment %d", n),
			Status:            domain.StatusPending,
		}
		it.PaymentPlan.Installments = append(it.PaymentPlan.Installments, inst)
		it.PaymentPlan.NumberOfInstallments = n
		return nil
	})
	return inst, err
}

// RemoveInstallment deletes an installment and renumbers the rest. The last
// remaining installment is kept.
func (s *Store) RemoveInstallment(id string) error {
	return s.update(func(it *domain.Itinerary) error {
		plan := &it.PaymentPlan
		idx := slices.IndexFunc(plan.Installments, func(i domain.Installment) bool { return i.ID == id })
		if idx < 0 {
			return fmt.Errorf("installment %s: %w", id, domain.ErrItemNotFound)
		}
		if len(plan.Installments) <= 1 {
			return nil
		}
		plan.Installments = slices.Delete(plan.Installments, idx, idx+1)
		for i := range plan.Installments {
			plan.Installments[i].InstallmentNumber = i + 1
		}
		plan.NumberOfInstallments = max(1, plan.NumberOfInstallments-1)
		return nil
	})
}

// UpdateInstallment applies fn to the installment with id.
func (s *Store) UpdateInstallment(id string, fn func(*domain.Installment) error) error {
	return s.update(func(it *domain.Itinerary) error {
		plan := &it.PaymentPlan
		idx := slices.IndexFunc(plan.Installments, func(i domain.Installment) bool { return i.ID == id })
		if idx < 0 {
			return fmt.Errorf("installment %s: %w", id, domain.ErrItemNotFound)
		}
		inst := plan.Installments[idx]
		if err := fn(&inst); err != nil {
			return err
		}
		inst.ID = id
		plan.Installments[idx] = inst
		return nil
	})
}

// GenerateInstallments replaces the schedule with NumberOfInstallments equal
// monthly payments starting today. Amounts are rounded to cents and the last
// installment absorbs the remainder. It is a no-op when the total or the
// count is not positive.
func (s *Store) GenerateInstallments() error {
	return s.update(func(it *domain.Itinerary) error {
		plan := &it.PaymentPlan
		n := plan.NumberOfInstallments
		if !plan.TotalAmount.IsPositive() || n <= 0 {
			return nil
		}
		today := s.now()
		share := plan.TotalAmount.Div(decimal.NewFromInt(int64(n))).Round(2)
		out := make([]domain.Installment, n)
		for i := 0; i < n; i++ {
			amount := share
			if i == n-1 {
				amount = plan.TotalAmount.Sub(share.Mul(decimal.NewFromInt(int64(i))))
			}
			desc := fmt.Sprintf("Installment %d", i+1)
			if i == 0 {
				desc = "Down Payment"
			}
			out[i] = domain.Installment{
				ID:                newID(),
				InstallmentNumber: i + 1,
				Amount:            amount,
				DueDate:           today.AddDate(0, i, 0).Format(time.DateOnly),
				Description:       desc,
				Status:            domain.StatusPending,
			}
		}
		plan.Installments = out
		return nil
	})
}

// AddFee appends an empty additional fee and returns its index.
func (s *Store) AddFee() (int, error) {
	var idx int
	err := s.update(func(it *domain.Itinerary) error {
		it.PaymentPlan.AdditionalFees = append(it.PaymentPlan.AdditionalFees, domain.Fee{Amount: decimal.Zero})
		idx = len(it.PaymentPlan.AdditionalFees) - 1
		return nil
	})
	return idx, err
}

// RemoveFee deletes the additional fee at index.
func (s *Store) RemoveFee(index int) error {
	return s.update(func(it *domain.Itinerary) error {
		fees := it.PaymentPlan.AdditionalFees
		if index < 0 || index >= len(fees) {
			return fmt.Errorf("fee %d: %w", index, domain.ErrItemNotFound)
		}
		it.PaymentPlan.AdditionalFees = slices.Delete(fees, index, index+1)
		return nil
	})
}

// UpdateFee applies fn to the additional fee at index.
func (s *Store) UpdateFee(index int, fn func(*domain.Fee) error) error {
	return s.update(func(it *domain.Itinerary) error {
		fees := it.PaymentPlan.AdditionalFees
		if index < 0 || index >= len(fees) {
			return fmt.Errorf("fee %d: %w", index, domain.ErrItemNotFound)
		}
		return fn(&fees[index])
	})
}

// AddActivity appends an empty activity row.
func (s *Store) AddActivity() (domain.Activity, error) {
	a := domain.Activity{ID: newID()}
	err := s.update(func(it *domain.Itinerary) error {
		it.Activities = append(it.Activities, a)
		return nil
	})
	return a, err
}

// RemoveActivity deletes an activity row.
func (s *Store) RemoveActivity(id string) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.Activities, func(a domain.Activity) bool { return a.ID == id })
		if idx < 0 {
			return fmt.Errorf("activity %s: %w", id, domain.ErrItemNotFound)
		}
		it.Activities = slices.Delete(it.Activities, idx, idx+1)
		return nil
	})
}

// UpdateActivity applies fn to the activity with id.
func (s *Store) UpdateActivity(id string, fn func(*domain.Activity) error) error {
	return s.update(func(it *domain.Itinerary) error {
		idx := slices.IndexFunc(it.Activities, func(a domain.Activity) bool { return a.ID == id })
		if idx < 0 {
			return fmt.Errorf("activity %s: %w", id, domain.ErrItemNotFound)
		}
		a := it.Activities[idx]
		if err := fn(&a); err != nil {
			return err
		}
		a.ID = id
		it.Activities[idx] = a
		return nil
	})
}

// applyTo runs fn on a copy of *section and keeps the result only on success.
// The caller's itinerary is already a private deep copy (see update).
func applyTo[T any](section *T, fn func(*T) error) error {
	cp := *section
	if err := fn(&cp); err != nil {
		return err
	}
	*section = cp
	return nil
}
