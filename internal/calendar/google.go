package calendar

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"trainerbook/internal/schedule"
)

// sourceKey marks events this service wrote, so BusyIntervals does not report
// a booking as blocking itself.
const (
	sourceKey   = "trainerbook_source"
	sourceValue = "booking"
	bookingKey  = "trainerbook_booking_id"
)

type Google struct {
	events     *gcal.EventsService
	calendarID string
	loc        *time.Location
}

func NewGoogle(ctx context.Context, calendarID, credentialsFile string, loc *time.Location, opts ...option.ClientOption) (*Google, error) {
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return &Google{events: svc.Events, calendarID: calendarID, loc: loc}, nil
}

func (g *Google) toGoogle(ev Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.In(g.loc).Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: ev.End.In(g.loc).Format(time.RFC3339), TimeZone: g.loc.String()},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				sourceKey:  sourceValue,
				bookingKey: strconv.Itoa(ev.BookingID),
			},
		},
	}
}

func (g *Google) CreateEvent(ctx context.Context, ev Event) (string, error) {
	created, err := g.events.Insert(g.calendarID, g.toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

func (g *Google) UpdateEvent(ctx context.Context, eventID string, ev Event) error {
	if _, err := g.events.Patch(g.calendarID, eventID, g.toGoogle(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch calendar event %s: %w", eventID, err)
	}
	return nil
}

func (g *Google) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}

func (g *Google) BusyIntervals(ctx context.Context, day time.Time) ([]schedule.Interval, error) {
	dayStart := schedule.Day(day, g.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var busy []schedule.Interval
	err := g.events.List(g.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		Context(ctx).
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				if iv, ok := g.blocking(item, dayStart); ok {
					busy = append(busy, iv)
				}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return busy, nil
}

func (g *Google) blocking(item *gcal.Event, day time.Time) (schedule.Interval, bool) {
	if item.Status == "cancelled" || item.Transparency == "transparent" {
		return schedule.Interval{}, false
	}
	if item.ExtendedProperties != nil && item.ExtendedProperties.Private[sourceKey] == sourceValue {
		return schedule.Interval{}, false
	}
	if item.Start == nil || item.End == nil {
		return schedule.Interval{}, false
	}

	start, end, err := g.bounds(item)
	if err != nil {
		return schedule.Interval{}, false
	}
	return clampToDay(start, end, day, g.loc)
}

// bounds handles both timed events and all-day events (Date only, end exclusive).
func (g *Google) bounds(item *gcal.Event) (time.Time, time.Time, error) {
	if item.Start.DateTime == "" {
		start, err := time.ParseInLocation(schedule.DateLayout, item.Start.Date, g.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := time.ParseInLocation(schedule.DateLayout, item.End.Date, g.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
