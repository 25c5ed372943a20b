package cli

import (
	calendarApp "github.com/lektora/lektora/internal/calendar/application"
	schedulingApp "github.com/lektora/lektora/internal/scheduling/application"
	"github.com/lektora/lektora/internal/scheduling/domain"
)

// App holds the CLI application dependencies.
type App struct {
	BookingService      *schedulingApp.BookingService
	AvailabilityService *schedulingApp.AvailabilityService
	JoinGate            *schedulingApp.JoinGate
	Reconciler          *calendarApp.Reconciler

	Instructors domain.InstructorRepository
	Bookings    domain.BookingRepository
}

// NewApp creates a new CLI application with the provided services.
func NewApp(
	bookingService *schedulingApp.BookingService,
	availabilityService *schedulingApp.AvailabilityService,
	joinGate *schedulingApp.JoinGate,
	reconciler *calendarApp.Reconciler,
	instructors domain.InstructorRepository,
	bookings domain.BookingRepository,
) *App {
	return &App{
		BookingService:      bookingService,
		AvailabilityService: availabilityService,
		JoinGate:            joinGate,
		Reconciler:          reconciler,
		Instructors:         instructors,
		Bookings:            bookings,
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
