package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/iliyamo/event-booking/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// RenderLogin shows the logged-out screen.
func RenderLogin(w io.Writer) {
	fmt.Fprintln(w, "Event Booking System - Login")
	fmt.Fprintln(w, "  login    sign in with email and password")
	fmt.Fprintln(w, "  signup   create an account (customer or manager)")
	fmt.Fprintln(w, "  quit     exit")
}

// RenderManager lists every event with its attendees and fill level.
func RenderManager(w io.Writer, s *Session, events []model.Event) {
	fmt.Fprintln(w, "Manager Dashboard")
	fmt.Fprintf(w, "Welcome, %s!\n\n", s.User.Name)
	if len(events) == 0 {
		fmt.Fprintln(w, "No events yet. Use 'create' to add one.")
		return
	}
	for _, ev := range events {
		fmt.Fprintf(w, "[%d] %s - %s\n", ev.ID, ev.Title, ev.StartsAt.Format(timeLayout))
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		fmt.Fprintf(tw, "    Description:\t%s\n", ev.Description)
		fmt.Fprintf(tw, "    Location:\t%s\n", ev.Location)
		fmt.Fprintf(tw, "    Capacity:\t%d/%d\n", len(ev.Attendees), ev.Capacity)
		_ = tw.Flush()
		if len(ev.Attendees) > 0 {
			fmt.Fprintln(w, "    Attendees:")
			for _, a := range ev.Attendees {
				fmt.Fprintf(w, "      - %s (%s)\n", a.Name, a.Email)
			}
		}
	}
}

// eventStatus is the customer's standing for ev: registered, full or open.
func eventStatus(ev model.Event, userID uint64) string {
	switch {
	case ev.HasAttendee(userID):
		return "registered"
	case ev.IsFull():
		return "full"
	}
	return "open"
}

// RenderCustomer lists events with free places and the caller's standing.
func RenderCustomer(w io.Writer, s *Session, events []model.Event) {
	fmt.Fprintln(w, "Customer Dashboard")
	fmt.Fprintf(w, "Welcome, %s!\n\n", s.User.Name)
	if len(events) == 0 {
		fmt.Fprintln(w, "No events available.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tWHEN\tLOCATION\tSPOTS\tSTATUS")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			ev.ID, ev.Title, ev.StartsAt.Format(timeLayout), ev.Location,
			ev.Remaining(), ev.Capacity, eventStatus(ev, s.User.ID))
	}
	_ = tw.Flush()
	fmt.Fprintln(w, "\nUse 'register <id>' to book an open event.")
}

// renderEvents picks the view for the session's role.
func renderEvents(w io.Writer, s *Session, events []model.Event) {
	if s.User.Role == model.RoleManager {
		RenderManager(w, s, events)
		return
	}
	RenderCustomer(w, s, events)
}
