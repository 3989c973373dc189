package store

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a demographic/medical profile. The identifier is generated
// once and never changes; everything else is mutable.
type Patient struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	EducationLevel string    `json:"education_level"`
	Language       string    `json:"language"`
	Condition      string    `json:"condition"`
	Treatment      string    `json:"treatment"`
	Medications    string    `json:"medications"`
	LearningStyle  string    `json:"learning_style"`
	SpecialNeeds   string    `json:"special_needs"`
	CreatedAt      time.Time `json:"created_at"`
}

// Material is generated education content. PatientName and Condition are
// denormalized copies taken at generation time so the record stays
// meaningful after the patient changes or is removed.
type Material struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Condition   string    `json:"condition"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	RolePatient   = "patient-question"
	RoleAssistant = "assistant-response"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// InjuryAssessment may be anonymous (empty PatientID). The uploaded image
// is analyzed transiently and never persisted.
type InjuryAssessment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id,omitempty"`
	Description string    `json:"description"`
	Analysis    string    `json:"analysis"`
	CreatedAt   time.Time `json:"created_at"`
}

type QuizQuestion struct {
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Category    string   `json:"category"`
}

// Assessment is a knowledge quiz. Unstructured marks quizzes whose model
// response did not follow the delimiter convention; RawContent then holds
// the prose and Questions is empty.
type Assessment struct {
	ID           string         `json:"id"`
	PatientID    string         `json:"patient_id"`
	Questions    []QuizQuestion `json:"questions"`
	Responses    []string       `json:"responses,omitempty"`
	Score        *int           `json:"score,omitempty"`
	Unstructured bool           `json:"unstructured,omitempty"`
	RawContent   string         `json:"raw_content,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Document is the full persisted state. It is an explicit value: callers
// Load it, mutate it, and Save it back. Load/Save are the only I/O
// boundary; concurrent processes get last-write-wins.
type Document struct {
	Patients          []Patient          `json:"patients"`
	Materials         []Material         `json:"materials"`
	Chats             []ChatMessage      `json:"chats"`
	Assessments       []Assessment       `json:"assessments"`
	InjuryAssessments []InjuryAssessment `json:"injury_assessments"`
}

func NewDocument() *Document {
	return &Document{
		Patients:          []Patient{},
		Materials:         []Material{},
		Chats:             []ChatMessage{},
		Assessments:       []Assessment{},
		InjuryAssessments: []InjuryAssessment{},
	}
}

func newID() string { return uuid.NewString() }

func (d *Document) AddPatient(p Patient) string {
	p.ID = newID()
	p.CreatedAt = time.Now().UTC()
	d.Patients = append(d.Patients, p)
	return p.ID
}

func (d *Document) Patient(id string) (Patient, bool) {
	for _, p := range d.Patients {
		if p.ID == id {
			return p, true
		}
	}
	return Patient{}, false
}

// UpdatePatient replaces every field except the identifier and creation
// timestamp. Returns false if the patient does not exist.
func (d *Document) UpdatePatient(id string, p Patient) bool {
	for i := range d.Patients {
		if d.Patients[i].ID == id {
			p.ID = id
			p.CreatedAt = d.Patients[i].CreatedAt
			d.Patients[i] = p
			return true
		}
	}
	return false
}

func (d *Document) RemovePatient(id string) bool {
	for i := range d.Patients {
		if d.Patients[i].ID == id {
			d.Patients = append(d.Patients[:i], d.Patients[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Document) AddMaterial(m Material) string {
	m.ID = newID()
	m.CreatedAt = time.Now().UTC()
	d.Materials = append(d.Materials, m)
	return m.ID
}

func (d *Document) Material(id string) (Material, bool) {
	for _, m := range d.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

func (d *Document) RemoveMaterial(id string) bool {
	for i := range d.Materials {
		if d.Materials[i].ID == id {
			d.Materials = append(d.Materials[:i], d.Materials[i+1:]...)
			return true
		}
	}
	return false
}

// MaterialsFor returns the patient's materials in insertion order. An
// empty patientID returns everything.
func (d *Document) MaterialsFor(patientID string) []Material {
	if patientID == "" {
		return append([]Material{}, d.Materials...)
	}
	out := []Material{}
	for _, m := range d.Materials {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out
}

func (d *Document) AddChatMessage(msg ChatMessage) string {
	msg.ID = newID()
	msg.CreatedAt = time.Now().UTC()
	d.Chats = append(d.Chats, msg)
	return msg.ID
}

func (d *Document) ChatThread(patientID string) []ChatMessage {
	out := []ChatMessage{}
	for _, msg := range d.Chats {
		if msg.PatientID == patientID {
			out = append(out, msg)
		}
	}
	return out
}

func (d *Document) ClearChatThread(patientID string) {
	kept := d.Chats[:0]
	for _, msg := range d.Chats {
		if msg.PatientID != patientID {
			kept = append(kept, msg)
		}
	}
	d.Chats = kept
}

func (d *Document) AddInjuryAssessment(a InjuryAssessment) string {
	a.ID = newID()
	a.CreatedAt = time.Now().UTC()
	d.InjuryAssessments = append(d.InjuryAssessments, a)
	return a.ID
}

func (d *Document) InjuryAssessment(id string) (InjuryAssessment, bool) {
	for _, a := range d.InjuryAssessments {
		if a.ID == id {
			return a, true
		}
	}
	return InjuryAssessment{}, false
}

func (d *Document) AddAssessment(a Assessment) string {
	a.ID = newID()
	a.CreatedAt = time.Now().UTC()
	d.Assessments = append(d.Assessments, a)
	return a.ID
}

func (d *Document) Assessment(id string) (Assessment, bool) {
	for _, a := range d.Assessments {
		if a.ID == id {
			return a, true
		}
	}
	return Assessment{}, false
}

func (d *Document) SetAssessment(a Assessment) bool {
	for i := range d.Assessments {
		if d.Assessments[i].ID == a.ID {
			d.Assessments[i] = a
			return true
		}
	}
	return false
}

func (d *Document) AssessmentsFor(patientID string) []Assessment {
	out := []Assessment{}
	for _, a := range d.Assessments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out
}
