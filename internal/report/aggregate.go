package report

import (
	"sort"

	"facetrack/internal/attendance"
	"facetrack/internal/employee"
)

// Entry is one employee's totals for a period. Hours stay unrounded;
// presentation layers round.
type Entry struct {
	EmployeeID    string  `json:"employee_id"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	TotalCheckIns int     `json:"total_check_ins"`
	TotalHours    float64 `json:"total_hours"`
}

// Aggregate groups attendance records by employee. Every record counts as a
// check-in; only closed records contribute hours. Entries come back sorted
// by employee id so output is deterministic.
func Aggregate(records []attendance.Record, directory map[string]employee.Employee) []Entry {
	byEmployee := make(map[string]*Entry)
	for _, rec := range records {
		entry, ok := byEmployee[rec.EmployeeID]
		if !ok {
			entry = &Entry{EmployeeID: rec.EmployeeID}
			if emp, known := directory[rec.EmployeeID]; known {
				entry.Name = emp.Name
				entry.Role = emp.Role
			}
			byEmployee[rec.EmployeeID] = entry
		}
		entry.TotalCheckIns++
		entry.TotalHours += rec.Hours()
	}

	entries := make([]Entry, 0, len(byEmployee))
	for _, entry := range byEmployee {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EmployeeID < entries[j].EmployeeID
	})
	return entries
}
