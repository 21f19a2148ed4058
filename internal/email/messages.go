package email

import (
	"fmt"
	"strings"
)

// Message is a rendered notification ready for Service.Send.
type Message struct {
	Subject string
	Body    string
}

// Slot describes a session in the operating timezone, already formatted.
type Slot struct {
	Date     string
	Time     string
	Duration int
}

func (s Slot) String() string {
	return fmt.Sprintf("%s at %s (%d min)", s.Date, s.Time, s.Duration)
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Hi,"
	}
	return "Hi " + name + ","
}

func BookingConfirmed(name string, slot Slot) Message {
	return Message{
		Subject: "Session confirmed - " + slot.Date + " " + slot.Time,
		Body: fmt.Sprintf(`%s

your session is confirmed for %s.

See you there!`, greeting(name), slot),
	}
}

func SharedSlotReleased(name string, slot Slot) Message {
	return Message{
		Subject: "Shared session cancelled - " + slot.Date + " " + slot.Time,
		Body: fmt.Sprintf(`%s

the shared session on %s has been cancelled and the session was returned to your package.
The slot is open again if you want to book it.`, greeting(name), slot),
	}
}

func BookingCancelledAdmin(clientName string, bookingID int, slot Slot) Message {
	return Message{
		Subject: fmt.Sprintf("Booking #%d cancelled", bookingID),
		Body: fmt.Sprintf(`Booking #%d for %s on %s was cancelled.`,
			bookingID, clientName, slot),
	}
}

func EarlierSlotAvailable(name string, freed, current Slot) Message {
	return Message{
		Subject: "An earlier slot is available on " + freed.Date,
		Body: fmt.Sprintf(`%s

a slot at %s opened up on %s, earlier than your session at %s.
Ask the trainer if you would like to move.`, greeting(name), freed.Time, freed.Date, current.Time),
	}
}

func BookingRescheduled(name string, before, after Slot) Message {
	return Message{
		Subject: "Session moved to " + after.Date + " " + after.Time,
		Body: fmt.Sprintf(`%s

your session has been moved.

Before: %s
Now:    %s`, greeting(name), before, after),
	}
}
