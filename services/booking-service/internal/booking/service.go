package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bookwell/services/booking-service/internal/model"
)

// Actor identifies who is asking for a mutation. Authenticated actors come
// from the gateway's identity headers; public-token actors carry no
// principal at all and are scoped purely by the token they present.
type Actor struct {
	PrincipalID string
	Role        string
	BusinessID  string
}

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

func (a Actor) authenticated() bool {
	switch a.Role {
	case RoleOwner, RoleStaff, RoleAdmin:
		return a.PrincipalID != "" && a.BusinessID != ""
	}
	return false
}

// AppointmentStore is the persistence surface the core needs. The
// implementation maps Postgres failures onto the package error kinds:
// exclusion/unique violations become ErrConflict, missing rows become
// ErrNotFound, guarded updates that match no row become ErrInvalidState.
type AppointmentStore interface {
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	GetByID(ctx context.Context, businessID, id string) (model.Appointment, error)
	GetByToken(ctx context.Context, token string) (model.Appointment, error)
	Confirm(ctx context.Context, id string) (model.Appointment, error)
	Cancel(ctx context.Context, id, reason string) (model.Appointment, error)
	Reschedule(ctx context.Context, id string, startsAt, endsAt time.Time) (model.Appointment, error)
	ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error)
}

// Directory reads tenant data owned by business-service. Soft-deleted
// businesses are reported as not found.
type Directory interface {
	GetBusiness(ctx context.Context, businessID string) (model.Business, error)
	GetService(ctx context.Context, businessID, serviceID string) (model.Service, error)
	GetStaff(ctx context.Context, businessID, staffID string) (model.Staff, error)
}

// CustomerResolver finds or lazily creates the customer record for a
// booking, scoped to one business.
type CustomerResolver interface {
	Resolve(ctx context.Context, businessID string, info CustomerInfo) (model.Customer, error)
}

// Events receives lifecycle events after a successful mutation. Delivery
// is best effort: a failed emit is logged, never surfaced to the caller.
type Events interface {
	AppointmentBooked(ctx context.Context, appt model.Appointment) error
	AppointmentCancelled(ctx context.Context, appt model.Appointment) error
	AppointmentRescheduled(ctx context.Context, appt model.Appointment) error
}

type CustomerInfo struct {
	IdentityID string
	Email      string
	Name       string
	Phone      string
}

type BookRequest struct {
	BusinessID string
	ServiceID  string
	StaffID    string
	SlotStart  time.Time
	SlotEnd    time.Time
	Customer   CustomerInfo
}

// TransitionRequest references the appointment either by internal id
// (authenticated actors) or by public token (anonymous actors), never both.
type TransitionRequest struct {
	AppointmentID string
	PublicToken   string
	Actor         Actor
	NewStatus     model.Status
	SlotStart     time.Time
	SlotEnd       time.Time
	Reason        string
}

func (r TransitionRequest) reschedule() bool {
	return r.NewStatus == model.StatusConfirmed && !r.SlotStart.IsZero()
}

// View is the public-token read model: the appointment plus the display
// fields an anonymous page needs. Timestamps stay UTC; Timezone is the
// business's display timezone.
type View struct {
	Appointment model.Appointment
	Business    model.Business
	Service     model.Service
	Staff       model.Staff
}

type Service struct {
	appts     AppointmentStore
	directory Directory
	customers CustomerResolver
	events    Events
	logger    *slog.Logger
}

func NewService(appts AppointmentStore, directory Directory, customers CustomerResolver, events Events, logger *slog.Logger) *Service {
	return &Service{
		appts:     appts,
		directory: directory,
		customers: customers,
		events:    events,
		logger:    logger,
	}
}

// Book validates the selected slot against the directory, resolves the
// customer and inserts a confirmed appointment. The insert is the only
// enforcement point against double booking: the slot listing the caller
// saw is advisory, and a lost race surfaces as ErrConflict.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	switch {
	case req.BusinessID == "":
		return model.Appointment{}, validationf("business_id is required")
	case req.ServiceID == "":
		return model.Appointment{}, validationf("service_id is required")
	case req.StaffID == "":
		return model.Appointment{}, validationf("staff_id is required")
	case req.SlotStart.IsZero() || req.SlotEnd.IsZero():
		return model.Appointment{}, validationf("slot is required")
	case !req.SlotEnd.After(req.SlotStart):
		return model.Appointment{}, validationf("slot end must be after slot start")
	case req.Customer.Name == "":
		return model.Appointment{}, validationf("customer name is required")
	}

	if _, err := s.directory.GetBusiness(ctx, req.BusinessID); err != nil {
		return model.Appointment{}, err
	}
	svc, err := s.directory.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	staff, err := s.directory.GetStaff(ctx, req.BusinessID, req.StaffID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !staff.IsActive {
		return model.Appointment{}, validationf("staff member is not bookable")
	}
	if req.SlotEnd.Sub(req.SlotStart) != time.Duration(svc.DurationMins)*time.Minute {
		return model.Appointment{}, validationf("slot length must match service duration (%d minutes)", svc.DurationMins)
	}

	// The customer insert is deliberately outside the appointment write:
	// an orphan customer after a failed booking is accepted, not rolled back.
	customer, err := s.customers.Resolve(ctx, req.BusinessID, req.Customer)
	if err != nil {
		return model.Appointment{}, err
	}

	appt, err := s.appts.Create(ctx, model.Appointment{
		BusinessID:  req.BusinessID,
		ServiceID:   req.ServiceID,
		StaffID:     req.StaffID,
		CustomerID:  customer.ID,
		StartsAt:    req.SlotStart.UTC(),
		EndsAt:      req.SlotEnd.UTC(),
		Status:      model.StatusConfirmed,
		PublicToken: NewPublicToken(),
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.emit(ctx, eventBooked, appt)
	return appt, nil
}

// Transition applies a status change for an authenticated actor (by id) or
// a public-token actor (by token). Cancelled is terminal for everyone.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (model.Appointment, error) {
	if !req.NewStatus.Valid() {
		return model.Appointment{}, validationf("unknown status %q", req.NewStatus)
	}

	appt, byToken, err := s.resolveRef(ctx, req)
	if err != nil {
		return model.Appointment{}, err
	}

	if byToken {
		// Anonymous actors may only cancel or reschedule their own appointment.
		if req.NewStatus != model.StatusCancelled && !req.reschedule() {
			return model.Appointment{}, validationf("public access allows cancel or reschedule only")
		}
	}

	if appt.Status == model.StatusCancelled {
		return model.Appointment{}, invalidStatef("appointment is already cancelled")
	}

	switch {
	case req.NewStatus == model.StatusCancelled:
		updated, err := s.appts.Cancel(ctx, appt.ID, strings.TrimSpace(req.Reason))
		if err != nil {
			return model.Appointment{}, err
		}
		s.emit(ctx, eventCancelled, updated)
		return updated, nil

	case req.reschedule():
		return s.rescheduleAppointment(ctx, appt, req)

	case req.NewStatus == model.StatusConfirmed:
		if appt.Status != model.StatusPending {
			return model.Appointment{}, invalidStatef("only pending appointments can be confirmed without a new slot")
		}
		return s.appts.Confirm(ctx, appt.ID)

	default:
		// No path produces pending after creation; bookings start confirmed.
		return model.Appointment{}, invalidStatef("cannot move a %s appointment to %s", appt.Status, req.NewStatus)
	}
}

// ByToken is the public read gateway. Every anonymous read goes through
// the token, never the internal id, so ids stay non-enumerable.
func (s *Service) ByToken(ctx context.Context, token string) (View, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return View{}, validationf("token is required")
	}
	appt, err := s.appts.GetByToken(ctx, token)
	if err != nil {
		return View{}, err
	}

	biz, err := s.directory.GetBusiness(ctx, appt.BusinessID)
	if err != nil {
		return View{}, err
	}
	svc, err := s.directory.GetService(ctx, appt.BusinessID, appt.ServiceID)
	if err != nil {
		return View{}, err
	}
	staff, err := s.directory.GetStaff(ctx, appt.BusinessID, appt.StaffID)
	if err != nil {
		return View{}, err
	}
	return View{Appointment: appt, Business: biz, Service: svc, Staff: staff}, nil
}

// List returns a business's appointments, newest slot first.
func (s *Service) List(ctx context.Context, actor Actor, limit int) ([]model.Appointment, error) {
	if !actor.authenticated() {
		return nil, validationf("authenticated actor required")
	}
	return s.appts.ListByBusiness(ctx, actor.BusinessID, limit)
}

func (s *Service) resolveRef(ctx context.Context, req TransitionRequest) (model.Appointment, bool, error) {
	if token := strings.TrimSpace(req.PublicToken); token != "" {
		appt, err := s.appts.GetByToken(ctx, token)
		return appt, true, err
	}

	if req.AppointmentID == "" {
		return model.Appointment{}, false, validationf("appointment reference is required")
	}
	if !req.Actor.authenticated() {
		return model.Appointment{}, false, validationf("authenticated actor required for id access")
	}
	// Lookup is scoped to the actor's business; an id outside it reads as absent.
	appt, err := s.appts.GetByID(ctx, req.Actor.BusinessID, req.AppointmentID)
	return appt, false, err
}

func (s *Service) rescheduleAppointment(ctx context.Context, appt model.Appointment, req TransitionRequest) (model.Appointment, error) {
	if req.SlotEnd.IsZero() || !req.SlotEnd.After(req.SlotStart) {
		return model.Appointment{}, validationf("slot end must be after slot start")
	}
	// Service and staff are fixed across a reschedule; only the slot moves.
	svc, err := s.directory.GetService(ctx, appt.BusinessID, appt.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if req.SlotEnd.Sub(req.SlotStart) != time.Duration(svc.DurationMins)*time.Minute {
		return model.Appointment{}, validationf("slot length must match service duration (%d minutes)", svc.DurationMins)
	}

	updated, err := s.appts.Reschedule(ctx, appt.ID, req.SlotStart.UTC(), req.SlotEnd.UTC())
	if err != nil {
		return model.Appointment{}, err
	}
	s.emit(ctx, eventRescheduled, updated)
	return updated, nil
}

type eventKind string

const (
	eventBooked      eventKind = "booked"
	eventCancelled   eventKind = "cancelled"
	eventRescheduled eventKind = "rescheduled"
)

func (s *Service) emit(ctx context.Context, kind eventKind, appt model.Appointment) {
	if s.events == nil {
		return
	}
	var err error
	switch kind {
	case eventBooked:
		err = s.events.AppointmentBooked(ctx, appt)
	case eventCancelled:
		err = s.events.AppointmentCancelled(ctx, appt)
	case eventRescheduled:
		err = s.events.AppointmentRescheduled(ctx, appt)
	}
	if err != nil {
		s.logger.Error("lifecycle event emit failed", "kind", string(kind), "appointment_id", appt.ID, "err", err)
	}
}
