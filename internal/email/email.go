package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
)

// Recipients resolves the customer a booking event is addressed to.
type Recipients interface {
	GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
}

// Sender renders booking notifications. Delivery is a structured log line;
// there is no SMTP relay in this deployment.
type Sender struct {
	recipients Recipients
	logger     *slog.Logger
}

func NewSender(recipients Recipients, logger *slog.Logger) *Sender {
	return &Sender{recipients: recipients, logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	to := fmt.Sprintf("customer:%d", event.CustomerID)
	if s.recipients != nil {
		c, err := s.recipients.GetCustomerByID(ctx, event.CustomerID)
		switch {
		case err == nil:
			to = c.Email
		case domain.IsNotFound(err):
			s.logger.Warn("notification recipient not found", slog.Int64("customer_id", event.CustomerID))
		default:
			return fmt.Errorf("resolve recipient: %w", err)
		}
	}

	s.logger.Info("send email",
		slog.String("to", to),
		slog.String("subject", Subject(event)),
		slog.Int64("booking_id", event.BookingID),
		slog.Int64("bus_id", event.BusID),
		slog.Any("seats", event.Seats),
	)
	return nil
}

func Subject(event kafka.BookingEvent) string {
	seats := strings.Join(event.Seats, ", ")
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s confirmed: seats %s", event.Reference, seats)
	case kafka.EventBookingUpdated:
		return fmt.Sprintf("Booking %s updated: seats %s", event.Reference, seats)
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %s cancelled", event.Reference)
	default:
		return fmt.Sprintf("Booking %s: %s", event.Reference, event.Type)
	}
}
