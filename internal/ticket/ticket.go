// Package ticket renders booking e-tickets as PDF documents.
package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/phpdave11/gofpdf"
)

type Data struct {
	Booking  domain.Booking
	Bus      domain.Bus
	Schedule *domain.Schedule
}

func Filename(b domain.Booking) string {
	return fmt.Sprintf("ticket-%s.pdf", b.Reference)
}

func Render(d Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("E-Ticket "+d.Booking.Reference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		"Reference   : " + d.Booking.Reference,
		"Bus         : " + d.Bus.Name + " (" + d.Bus.NumberPlate + ")",
		"Route       : " + d.Bus.Route,
		"Destination : " + d.Booking.Destination,
		"Pickup      : " + d.Booking.PickupAddress,
		"Departure   : " + d.Booking.DepartureTime,
	}
	if d.Schedule != nil {
		lines = append(lines,
			"Travel date : "+d.Schedule.TravelDate.Format(domain.DateLayout),
			"Arrival     : "+d.Schedule.ArrivalAt.Format(domain.ClockLayout),
		)
	}
	lines = append(lines,
		"Seats       : "+strings.Join(d.Booking.SeatLabels, ", "),
		fmt.Sprintf("Total cost  : %d", d.Booking.TotalCost),
	)
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, fmt.Sprintf("Valid for %d seat(s). Show this ticket when boarding.", d.Booking.NumberOfSeats), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket: %w", err)
	}
	return buf.Bytes(), nil
}
