package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/event-booking/internal/client"
	"github.com/iliyamo/event-booking/internal/model"
)

// API is the part of client.Client the dashboard uses.
type API interface {
	Signup(ctx context.Context, req client.SignupRequest) (model.User, error)
	Login(ctx context.Context, email, password string) (client.LoginResponse, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	CreateEvent(ctx context.Context, token string, req client.CreateEventRequest) (model.Event, error)
	Register(ctx context.Context, token string, eventID uint64) (client.Ack, error)
}

// App is the interactive command loop.
type App struct {
	API     API
	Out     io.Writer
	Session *Session

	in *bufio.Scanner
}

// NewApp returns an App reading commands from in.
func NewApp(api API, in io.Reader, out io.Writer) *App {
	return &App{API: api, Out: out, Session: &Session{}, in: bufio.NewScanner(in)}
}

// Run reads commands until quit, end of input or ctx is done.
func (a *App) Run(ctx context.Context) error {
	RenderLogin(a.Out)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := a.prompt("> ")
		if !ok {
			return a.in.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		a.dispatch(ctx, cmd, strings.TrimSpace(arg))
	}
}

func (a *App) dispatch(ctx context.Context, cmd, arg string) {
	switch cmd {
	case "":
	case "help":
		a.help()
	case "signup":
		a.signup(ctx)
	case "login":
		a.login(ctx)
	case "logout":
		a.Session.Clear()
		fmt.Fprintln(a.Out, "Logged out.")
		RenderLogin(a.Out)
	case "events":
		a.refresh(ctx)
	case "create":
		a.create(ctx)
	case "register":
		a.register(ctx, arg)
	default:
		fmt.Fprintf(a.Out, "Unknown command %q. Type 'help'.\n", cmd)
	}
}

func (a *App) help() {
	if !a.Session.Authenticated() {
		RenderLogin(a.Out)
		return
	}
	fmt.Fprintf(a.Out, "Logged in as: %s\nRole: %s\n", a.Session.User.Name, a.Session.User.Role)
	fmt.Fprintln(a.Out, "  events          list events")
	if a.Session.User.Role == model.RoleManager {
		fmt.Fprintln(a.Out, "  create          create an event")
	} else {
		fmt.Fprintln(a.Out, "  register <id>   register for an event")
	}
	fmt.Fprintln(a.Out, "  logout          end the session")
	fmt.Fprintln(a.Out, "  quit            exit")
}

func (a *App) signup(ctx context.Context) {
	var req client.SignupRequest
	var ok bool
	if req.Name, ok = a.prompt("Name: "); !ok {
		return
	}
	if req.Email, ok = a.prompt("Email: "); !ok {
		return
	}
	if req.Password, ok = a.prompt("Password: "); !ok {
		return
	}
	if req.Role, ok = a.prompt("Role [customer/manager]: "); !ok {
		return
	}
	if req.Role == "" {
		req.Role = "customer"
	}
	if _, err := a.API.Signup(ctx, req); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.Out, "Account created successfully! Please login.")
}

func (a *App) login(ctx context.Context) {
	email, ok := a.prompt("Email: ")
	if !ok {
		return
	}
	password, ok := a.prompt("Password: ")
	if !ok {
		return
	}
	res, err := a.API.Login(ctx, email, password)
	if err != nil {
		a.fail(err)
		return
	}
	a.Session = NewSession(res)
	fmt.Fprintln(a.Out, "Login successful!")
	a.refresh(ctx)
}

// refresh fetches events and renders the view for the current role.
func (a *App) refresh(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	events, err := a.API.ListEvents(ctx)
	if err != nil {
		a.fail(err)
		return
	}
	renderEvents(a.Out, a.Session, events)
}

func (a *App) create(ctx context.Context) {
	if !a.requireLogin() {
		return
	}
	if a.Session.User.Role != model.RoleManager {
		fmt.Fprintln(a.Out, "Only managers can create events.")
		return
	}
	var req client.CreateEventRequest
	var ok bool
	if req.Title, ok = a.prompt("Event Title: "); !ok {
		return
	}
	if req.Description, ok = a.prompt("Description: "); !ok {
		return
	}
	date, ok := a.prompt("Event Date (YYYY-MM-DD): ")
	if !ok {
		return
	}
	clock, ok := a.prompt("Event Time (HH:MM): ")
	if !ok {
		return
	}
	when, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.UTC)
	if err != nil {
		fmt.Fprintln(a.Out, "! Invalid date or time.")
		return
	}
	req.Datetime = when
	if req.Location, ok = a.prompt("Location: "); !ok {
		return
	}
	capText, ok := a.prompt("Capacity [50]: ")
	if !ok {
		return
	}
	req.Capacity = 50
	if capText != "" {
		n, err := strconv.ParseInt(capText, 10, 64)
		if err != nil {
			fmt.Fprintln(a.Out, "! Capacity must be a whole number.")
			return
		}
		req.Capacity = n
	}

	if _, err := a.API.CreateEvent(ctx, a.Session.Token, req); err != nil {
		a.fail(err)
		return
	}
	fmt.Fprintln(a.Out, "Event created successfully!")
	a.refresh(ctx)
}

func (a *App) register(ctx context.Context, arg string) {
	if !a.requireLogin() {
		return
	}
	if a.Session.User.Role != model.RoleCustomer {
		fmt.Fprintln(a.Out, "Only customers can register for events.")
		return
	}
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		fmt.Fprintln(a.Out, "Usage: register <event id>")
		return
	}
	if _, err := a.API.Register(ctx, a.Session.Token, id); err != nil {
		a.fail(err)
		if a.Session.Authenticated() {
			a.refresh(ctx)
		}
		return
	}
	fmt.Fprintln(a.Out, "Registration successful!")
	a.refresh(ctx)
}

func (a *App) requireLogin() bool {
	if a.Session.Authenticated() {
		return true
	}
	fmt.Fprintln(a.Out, "Please login first.")
	RenderLogin(a.Out)
	return false
}

// fail prints err as a banner.  A 401 means the token is no longer
// usable, so the session is dropped.
func (a *App) fail(err error) {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintf(a.Out, "! Error: %d - %s\n", apiErr.Status, apiErr.Detail)
		if apiErr.Status == 401 && a.Session.Authenticated() {
			a.Session.Clear()
			RenderLogin(a.Out)
		}
	case client.IsNetwork(err):
		fmt.Fprintf(a.Out, "! Connection error: %v\n", err)
	default:
		fmt.Fprintf(a.Out, "! Error: %v\n", err)
	}
}

func (a *App) prompt(label string) (string, bool) {
	fmt.Fprint(a.Out, label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}
