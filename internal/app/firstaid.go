package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/paradise-007/healthally/pkg/domain"
)

// FirstAidAvailability says where suggested medicines can be picked up on campus.
type FirstAidAvailability struct {
	Department string `json:"department"`
	// HasRecord is false when the department has no first aid room on file.
	HasRecord bool `json:"hasRecord"`
	// Available is true when the department's own room stocks one of the medicines.
	Available   bool                `json:"available"`
	Room        *domain.RoomDetails `json:"room,omitempty"`
	Departments []string            `json:"alternativeDepartments,omitempty"`
	Message     string              `json:"message"`
}

// FirstAid checks the department's room for any of medicines, then every other room.
// label is how the medicines are named in the message.
func (a *App) FirstAid(ctx context.Context, department string, medicines []string, label string) (FirstAidAvailability, error) {
	out := FirstAidAvailability{Department: department}
	room, ok, err := a.store.GetFirstAidRoom(ctx, department)
	if err != nil {
		return FirstAidAvailability{}, fmt.Errorf("fetch first aid room: %w", err)
	}
	if !ok {
		out.Message = fmt.Sprintf("Unfortunately, there are no first aid room records available for the %s department. "+
			"Please consider consulting a doctor for further assistance.", department)
		return out, nil
	}
	out.HasRecord = true
	if room.Room.Stocks(medicines) {
		out.Available = true
		details := room.Room
		out.Room = &details
		out.Message = fmt.Sprintf("You can find **%s** in the first aid room at:\nLocation: %s\nFaculty in Charge: %s\nContact: %s",
			label, details.RoomNumber, details.FacultyInCharge.Name, details.FacultyInCharge.Contact)
		return out, nil
	}

	rooms, err := a.store.ListFirstAidRooms(ctx)
	if err != nil {
		return FirstAidAvailability{}, fmt.Errorf("list first aid rooms: %w", err)
	}
	for _, r := range rooms {
		if r.Room.Stocks(medicines) {
			out.Departments = append(out.Departments, r.Department)
		}
	}
	if len(out.Departments) > 0 {
		out.Message = fmt.Sprintf("Unfortunately, **%s** is not available in the %s first aid room. "+
			"You may find it in the following departments: %s.", label, department, strings.Join(out.Departments, ", "))
		return out, nil
	}
	out.Message = fmt.Sprintf("**%s** is currently not available in any department first aid room. "+
		"Please consult a doctor if symptoms persist.", label)
	return out, nil
}
