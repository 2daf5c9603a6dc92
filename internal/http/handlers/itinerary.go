// Package handlers implements the HTTP endpoints of the itinerary service.
package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/store"
)

// ItineraryService exposes the itinerary store over HTTP.
type ItineraryService struct {
	Registry *store.Registry
}

// NewItineraryService returns a service backed by reg.
func NewItineraryService(reg *store.Registry) *ItineraryService {
	return &ItineraryService{Registry: reg}
}

// itineraryID copies :id out of the request buffer. The registry keeps it as
// a map key past the handler's lifetime.
func itineraryID(c *fiber.Ctx) string {
	return strings.Clone(c.Params("id"))
}

// decodeInto merges the JSON body into the target section. Fields absent
// from the body keep their current value.
func decodeInto[T any](body []byte) func(*T) error {
	return func(v *T) error {
		if err := json.Unmarshal(body, v); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
		}
		return nil
	}
}

func (svc *ItineraryService) mutate(c *fiber.Ctx, fn func(*store.Store) error) error {
	it, err := svc.Registry.Mutate(c.UserContext(), itineraryID(c), fn)
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(it)
}

// HandleCreate creates an empty itinerary.
func (svc *ItineraryService) HandleCreate(c *fiber.Ctx) error {
	s, err := svc.Registry.Create(c.UserContext())
	if err != nil {
		return toFiberError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.Itinerary())
}

// HandleGet returns the full itinerary.
func (svc *ItineraryService) HandleGet(c *fiber.Ctx) error {
	s, err := svc.Registry.Get(c.UserContext(), itineraryID(c))
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(s.Itinerary())
}

// HandleSnapshot returns the sections consumed by the PDF export.
func (svc *ItineraryService) HandleSnapshot(c *fiber.Ctx) error {
	s, err := svc.Registry.Get(c.UserContext(), itineraryID(c))
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(s.ExportData())
}

// HandleDelete removes the itinerary.
func (svc *ItineraryService) HandleDelete(c *fiber.Ctx) error {
	if err := svc.Registry.Delete(c.UserContext(), itineraryID(c)); err != nil {
		return toFiberError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleImport replaces the itinerary with the body. Missing sections fall
// back to their initial values.
func (svc *ItineraryService) HandleImport(c *fiber.Ctx) error {
	var data domain.Itinerary
	if err := json.Unmarshal(c.Body(), &data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}
	return svc.mutate(c, func(s *store.Store) error { return s.Import(data) })
}

// HandleReset restores the initial empty itinerary.
func (svc *ItineraryService) HandleReset(c *fiber.Ctx) error {
	return svc.mutate(c, (*store.Store).Reset)
}

// HandleGenerateInstallments rebuilds the installment schedule from the
// payment plan total.
func (svc *ItineraryService) HandleGenerateInstallments(c *fiber.Ctx) error {
	return svc.mutate(c, (*store.Store).GenerateInstallments)
}

// HandleSection merges the body into one of the singleton sections.
func (svc *ItineraryService) HandleSection(c *fiber.Ctx) error {
	body := c.Body()
	var fn func(*store.Store) error
	switch c.Params("section") {
	case "overview":
		fn = func(s *store.Store) error { return s.UpdateTourOverview(decodeInto[domain.TourOverview](body)) }
	case "payment-plan":
		fn = func(s *store.Store) error { return s.UpdatePaymentPlan(decodeInto[domain.PaymentPlan](body)) }
	case "inclusions":
		fn = func(s *store.Store) error {
			return s.UpdateInclusionsExclusions(decodeInto[domain.InclusionsExclusions](body))
		}
	case "visa":
		fn = func(s *store.Store) error { return s.UpdateVisaDetails(decodeInto[domain.VisaDetails](body)) }
	default:
		return fiber.NewError(fiber.StatusNotFound, "Unknown section")
	}
	return svc.mutate(c, fn)
}

// collection binds the list operations of one itinerary collection.
type collection struct {
	add    func(s *store.Store) (any, error)
	update func(s *store.Store, item string, body []byte) error
	remove func(s *store.Store, item string) error
}

func withID[T any](add func(*store.Store) (T, error)) func(*store.Store) (any, error) {
	return func(s *store.Store) (any, error) { return add(s) }
}

func feeIndex(item string) (int, error) {
	idx, err := strconv.Atoi(item)
	if err != nil || idx < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Fee index must be a non-negative integer")
	}
	return idx, nil
}

var collections = map[string]collection{
	"days": {
		add: withID((*store.Store).AddDay),
		update: func(s *store.Store, id string, body []byte) error {
			return s.UpdateDay(id, decodeInto[domain.DayItinerary](body))
		},
		remove: (*store.Store).RemoveDay,
	},
	"flights": {
		add: withID((*store.Store).AddFlight),
		update: func(s *store.Store, id string, body []byte) error {
			return s.UpdateFlight(id, decodeInto[domain.Flight](body))
		},
		remove: (*store.Store).RemoveFlight,
	},
	"hotels": {
		add: withID((*store.Store).AddHotel),
		update: func(s *store.Store, id string, body []byte) error {
			return s.UpdateHotel(id, decodeInto[domain.Hotel](body))
		},
		remove: (*store.Store).RemoveHotel,
	},
	"installments": {
		add: withID((*store.Store).AddInstallment),
		update: func(s *store.Store, id string, body []byte) error {
			return s.UpdateInstallment(id, decodeInto[domain.Installment](body))
		},
		remove: (*store.Store).RemoveInstallment,
	},
	"activities": {
		add: withID((*store.Store).AddActivity),
		update: func(s *store.Store, id string, body []byte) error {
			return s.UpdateActivity(id, decodeInto[domain.Activity](body))
		},
		remove: (*store.Store).RemoveActivity,
	},
	"fees": {
		add: withID((*store.Store).AddFee),
		update: func(s *store.Store, item string, body []byte) error {
			idx, err := feeIndex(item)
			if err != nil {
				return err
			}
			return s.UpdateFee(idx, decodeInto[domain.Fee](body))
		},
		remove: func(s *store.Store, item string) error {
			idx, err := feeIndex(item)
			if err != nil {
				return err
			}
			return s.RemoveFee(idx)
		},
	},
}

func lookupCollection(c *fiber.Ctx) (collection, error) {
	coll, ok := collections[c.Params("collection")]
	if !ok {
		return collection{}, fiber.NewError(fiber.StatusNotFound, "Unknown collection")
	}
	return coll, nil
}

// HandleAddItem appends an empty entry to a collection and returns it.
func (svc *ItineraryService) HandleAddItem(c *fiber.Ctx) error {
	coll, err := lookupCollection(c)
	if err != nil {
		return err
	}
	var created any
	_, err = svc.Registry.Mutate(c.UserContext(), itineraryID(c), func(s *store.Store) error {
		var err error
		created, err = coll.add(s)
		return err
	})
	if err != nil {
		return toFiberError(err)
	}
	if idx, ok := created.(int); ok {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"index": idx})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdateItem merges the body into one entry of a collection.
func (svc *ItineraryService) HandleUpdateItem(c *fiber.Ctx) error {
	coll, err := lookupCollection(c)
	if err != nil {
		return err
	}
	body, item := c.Body(), c.Params("item")
	return svc.mutate(c, func(s *store.Store) error { return coll.update(s, item, body) })
}

// HandleRemoveItem removes one entry of a collection.
func (svc *ItineraryService) HandleRemoveItem(c *fiber.Ctx) error {
	coll, err := lookupCollection(c)
	if err != nil {
		return err
	}
	item := c.Params("item")
	return svc.mutate(c, func(s *store.Store) error { return coll.remove(s, item) })
}
