package store

import "fmt"

// Problem describes one consistency finding. Orphaned records are still
// served by the list accessors; Check only reports them.
type Problem struct {
	Collection string `json:"collection"`
	RecordID   string `json:"record_id"`
	Detail     string `json:"detail"`
}

// Check flags duplicate identifiers within a collection and child
// records whose patient identifier does not resolve to a live patient.
// Anonymous injury assessments are exempt.
func (d *Document) Check() []Problem {
	var problems []Problem

	live := make(map[string]bool, len(d.Patients))
	seen := map[string]bool{}
	for _, p := range d.Patients {
		if seen[p.ID] {
			problems = append(problems, Problem{"patients", p.ID, "duplicate identifier"})
		}
		seen[p.ID] = true
		live[p.ID] = true
	}

	checkChild := func(collection, id, patientID string, anonymousOK bool, seen map[string]bool) {
		if seen[id] {
			problems = append(problems, Problem{collection, id, "duplicate identifier"})
		}
		seen[id] = true
		if patientID == "" {
			if !anonymousOK {
				problems = append(problems, Problem{collection, id, "missing patient identifier"})
			}
			return
		}
		if !live[patientID] {
			problems = append(problems, Problem{collection, id,
				fmt.Sprintf("orphaned: patient %s not found", patientID)})
		}
	}

	seen = map[string]bool{}
	for _, m := range d.Materials {
		checkChild("materials", m.ID, m.PatientID, false, seen)
	}
	seen = map[string]bool{}
	for _, c := range d.Chats {
		checkChild("chats", c.ID, c.PatientID, false, seen)
	}
	seen = map[string]bool{}
	for _, a := range d.Assessments {
		checkChild("assessments", a.ID, a.PatientID, false, seen)
	}
	seen = map[string]bool{}
	for _, a := range d.InjuryAssessments {
		checkChild("injury_assessments", a.ID, a.PatientID, true, seen)
	}
	return problems
}
