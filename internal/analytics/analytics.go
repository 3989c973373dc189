// Package analytics aggregates the document into the numbers the
// dashboard renders. Pure computation, no I/O.
package analytics

import (
	"sort"
	"time"

	"patient-education/internal/store"
)

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ChatStats summarizes chat usage across patients.
type ChatStats struct {
	TotalMessages     int `json:"total_messages"`
	PatientsWithChats int `json:"patients_with_chats"`
}

// Summary holds everything the analytics dashboard shows.
type Summary struct {
	TotalPatients          int            `json:"total_patients"`
	TotalMaterials         int            `json:"total_materials"`
	TotalInjuryAssessments int            `json:"total_injury_assessments"`
	TotalAssessments       int            `json:"total_assessments"`
	MaterialsByCondition   map[string]int `json:"materials_by_condition"`
	MaterialsByPatient     map[string]int `json:"materials_by_patient"`
	MaterialsPerDay        []DayCount     `json:"materials_per_day"`
	InjuriesPerDay         []DayCount     `json:"injuries_per_day"`
	Chats                  ChatStats      `json:"chats"`
}

func perDay(times []time.Time) []DayCount {
	counts := map[string]int{}
	for _, t := range times {
		counts[t.UTC().Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, DayCount{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Summarize computes dashboard statistics over a document. Materials use
// their denormalized patient name and condition, so records of deleted
// patients still count.
func Summarize(doc *store.Document) *Summary {
	s := &Summary{
		TotalPatients:          len(doc.Patients),
		TotalMaterials:         len(doc.Materials),
		TotalInjuryAssessments: len(doc.InjuryAssessments),
		TotalAssessments:       len(doc.Assessments),
		MaterialsByCondition:   map[string]int{},
		MaterialsByPatient:     map[string]int{},
	}

	var materialTimes []time.Time
	for _, m := range doc.Materials {
		s.MaterialsByCondition[m.Condition]++
		name := m.PatientName
		if name == "" {
			name = "Unknown"
		}
		s.MaterialsByPatient[name]++
		materialTimes = append(materialTimes, m.CreatedAt)
	}
	s.MaterialsPerDay = perDay(materialTimes)

	var injuryTimes []time.Time
	for _, a := range doc.InjuryAssessments {
		injuryTimes = append(injuryTimes, a.CreatedAt)
	}
	s.InjuriesPerDay = perDay(injuryTimes)

	patientsWithChats := map[string]bool{}
	for _, msg := range doc.Chats {
		s.Chats.TotalMessages++
		patientsWithChats[msg.PatientID] = true
	}
	s.Chats.PatientsWithChats = len(patientsWithChats)

	return s
}
