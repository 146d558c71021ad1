package app

import "errors"

var (
	// ErrInvalidInput marks request validation failures. errors.Is matches it
	// for every inputError below.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is shown to end users for every failed login.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")

	ErrUsernameTaken    = errors.New("Username already taken")
	ErrRoomExists       = errors.New("department already has a first aid room")
	ErrSlotTaken        = errors.New("the selected time slot has already been booked")
	ErrCannotDeleteSelf = errors.New("admins cannot delete their own account")
)

// Validation failures. Messages are user facing.
var (
	ErrUsernamePasswordRequired error = inputError("username and password required")
	ErrUnknownDepartment        error = inputError("unknown department")
	ErrUnknownHostel            error = inputError("unknown hostel")
	ErrQueryRequired            error = inputError("Please enter a valid query.")
	ErrSymptomsRequired         error = inputError("Please describe your symptoms.")
	ErrInvalidDuration          error = inputError("duration must not be negative")
	ErrInvalidDate              error = inputError("dates must use YYYY-MM-DD")
	ErrInvalidDateRange         error = inputError("start date is after end date")
	ErrAppointmentFields        error = inputError("All fields are required to book an appointment. Please fill in all details.")
	ErrInvalidEnrollment        error = inputError("enrollment number must be at most 11 characters")
	ErrInvalidContact           error = inputError("contact number must be at most 10 digits")
	ErrInvalidHosteller         error = inputError("hosteller must be Hosteller or Commuter")
	ErrDateInPast               error = inputError("appointment date is in the past")
	ErrDoctorUnavailable        error = inputError("the selected doctor is not available on that date")
	ErrUnknownSlot              error = inputError("time slot is outside the doctor's work hours")
	ErrInvalidDoctor            error = inputError("doctor name and valid work hours required")
	ErrInvalidWeekday           error = inputError("availability days must be weekday names")
	ErrUnknownExportFormat      error = inputError("export format must be csv or xlsx")
	ErrInvalidRoom              error = inputError("room number required")
)

type inputError string

func (e inputError) Error() string { return string(e) }

func (e inputError) Is(target error) bool { return target == ErrInvalidInput }
