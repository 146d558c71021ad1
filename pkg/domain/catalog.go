package domain

import "slices"

// Departments lists the campus colleges a user, appointment or first aid room can belong to.
var Departments = []string{
	"AMPICS", "BSPP", "CCE", "CHAS", "CHSS", "CMEC", "CMS", "CMSR", "DCS", "DMARI", "DSW",
	"GNUR", "ICT", "IOA", "IOD", "IOO", "IOP", "IOT", "JIM", "KBION", "KKIASR", "MUIS",
	"SKPCPER", "UVPCE", "VMPCMS", "VMPIM", "GANPAT VIDHYALAY", "SMGPSS",
}

// Hostels lists residences selectable at signup and booking.
var Hostels = []string{
	"B1 TOWER HOSTEL", "HOSTEL BLOCK - A", "HOSTEL BLOCK - B", "HOSTEL BLOCK - C",
	"HOSTEL BLOCK - D", "HOSTEL BLOCK - E", "HOSTEL BLOCK - F", "HOSTEL BLOCK - G",
	"HOSTEL BLOCK - H", "HOSTEL BLOCK - K", "HOSTEL BLOCK - L", "HOSTEL BLOCK - M",
	"HOSTEL BLOCK - N", "HOSTEL-UMA(400)", "I.M.J SARVA VIDHYALAY - BALOL",
	"KVK FARMERS HOSTEL", "MARINE HOSTEL BLOCK - A", "MARINE HOSTEL BLOCK - B",
	"MARINE HOSTEL BLOCK - C", "N G INTERNATIONAL SCHOOL", "NAYI HOSTEL (MULSAN)",
	"PARA KELAVANI MANDAL-MEHSANA", "RAMPURA HOSTEL", "SERVANT QUARTER HOSTEL",
	"VISHWA HOSTEL", "GITANJALI BLOCK - 1", "GITANJALI BLOCK - 2",
	"ANMOL HEIGHTS HOSTEL", "GIRLS EXECUTIVE A1", "GIRLS EXECUTIVE A2", "Virtuous",
}

func IsDepartment(name string) bool {
	return slices.Contains(Departments, name)
}

func IsHostel(name string) bool {
	return slices.Contains(Hostels, name)
}

// OtherDepartment is accepted on user profiles only; first aid rooms and
// appointments always name a real college.
const OtherDepartment = "OTHERS"

func IsUserDepartment(name string) bool {
	return name == OtherDepartment || IsDepartment(name)
}
