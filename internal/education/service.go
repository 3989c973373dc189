// Package education drives the full flow behind each user action: load
// the document, build a prompt, call the model gateway, interpret the
// response, and persist the outcome.
package education

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"patient-education/internal/interpret"
	"patient-education/internal/llm"
	"patient-education/internal/prompt"
	"patient-education/internal/store"
)

// NotFoundError reports a missing patient or record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

type Service struct {
	store   *store.Store
	client  llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

func New(st *store.Store, client llm.Client, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{store: st, client: client, timeout: timeout, logger: logger}
}

func (s *Service) generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Generate(ctx, req)
}

// GenerateMaterial builds education content for a patient and stores it
// as a Material with the condition denormalized at generation time.
func (s *Service) GenerateMaterial(ctx context.Context, patientID string) (store.Material, error) {
	doc := s.store.Load()
	p, ok := doc.Patient(patientID)
	if !ok {
		return store.Material{}, &NotFoundError{Kind: "patient", ID: patientID}
	}
	pr, err := prompt.Education(p)
	if err != nil {
		return store.Material{}, err
	}
	resp, err := s.generate(ctx, llm.Request{Prompt: pr})
	if err != nil {
		return store.Material{}, err
	}

	m := store.Material{
		PatientID:   p.ID,
		PatientName: p.Name,
		Condition:   p.Condition,
		Content:     resp.Content,
	}
	id := doc.AddMaterial(m)
	if err := s.store.Save(doc); err != nil {
		return store.Material{}, err
	}
	s.logger.Info("material generated",
		zap.String("material_id", id),
		zap.String("patient_id", p.ID),
		zap.Int("tokens", resp.TotalTokens))
	saved, _ := doc.Material(id)
	return saved, nil
}

// Chat answers a patient question and appends both sides of the
// exchange to the patient's thread.
func (s *Service) Chat(ctx context.Context, patientID, question string) ([]store.ChatMessage, error) {
	doc := s.store.Load()
	p, ok := doc.Patient(patientID)
	if !ok {
		return nil, &NotFoundError{Kind: "patient", ID: patientID}
	}
	pr, err := prompt.Chat(p, question)
	if err != nil {
		return nil, err
	}
	resp, err := s.generate(ctx, llm.Request{Prompt: pr})
	if err != nil {
		return nil, err
	}

	doc.AddChatMessage(store.ChatMessage{PatientID: p.ID, Role: store.RolePatient, Text: question})
	doc.AddChatMessage(store.ChatMessage{PatientID: p.ID, Role: store.RoleAssistant, Text: resp.Content})
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return doc.ChatThread(p.ID), nil
}

func (s *Service) ClearChat(patientID string) error {
	doc := s.store.Load()
	if _, ok := doc.Patient(patientID); !ok {
		return &NotFoundError{Kind: "patient", ID: patientID}
	}
	doc.ClearChatThread(patientID)
	return s.store.Save(doc)
}

// allowed image types for injury uploads.
var allowedImageMIMEs = []string{"image/jpeg", "image/png"}

// InjuryInput is one injury analysis request. PatientID may be empty
// for anonymous assessments.
type InjuryInput struct {
	PatientID   string
	Description string
	Image       []byte
}

// AnalyzeInjury sniffs the upload's MIME type, sends image plus
// description to the gateway, and stores the analysis. The image itself
// is processed transiently and never persisted.
func (s *Service) AnalyzeInjury(ctx context.Context, in InjuryInput) (store.InjuryAssessment, error) {
	doc := s.store.Load()
	if in.PatientID != "" {
		if _, ok := doc.Patient(in.PatientID); !ok {
			return store.InjuryAssessment{}, &NotFoundError{Kind: "patient", ID: in.PatientID}
		}
	}
	if len(in.Image) == 0 {
		return store.InjuryAssessment{}, &prompt.ValidationError{Field: "image", Reason: "must not be empty"}
	}
	mime := mimetype.Detect(in.Image)
	ok := false
	for _, allowed := range allowedImageMIMEs {
		if mime.Is(allowed) {
			ok = true
			break
		}
	}
	if !ok {
		return store.InjuryAssessment{}, &prompt.ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("unsupported type %s, expected JPEG or PNG", mime.String()),
		}
	}

	pr, err := prompt.Injury(in.Description)
	if err != nil {
		return store.InjuryAssessment{}, err
	}
	resp, err := s.generate(ctx, llm.Request{
		Prompt: pr,
		Image:  &llm.Image{Data: in.Image, MIME: mime.String()},
	})
	if err != nil {
		return store.InjuryAssessment{}, err
	}

	a := store.InjuryAssessment{
		PatientID:   in.PatientID,
		Description: in.Description,
		Analysis:    resp.Content,
	}
	id := doc.AddInjuryAssessment(a)
	if err := s.store.Save(doc); err != nil {
		return store.InjuryAssessment{}, err
	}
	saved, _ := doc.InjuryAssessment(id)
	return saved, nil
}

// GenerateAssessment creates a knowledge quiz for a patient. A model
// response that breaks the delimiter convention is stored raw and
// flagged unstructured rather than rejected.
func (s *Service) GenerateAssessment(ctx context.Context, patientID string) (store.Assessment, error) {
	doc := s.store.Load()
	p, ok := doc.Patient(patientID)
	if !ok {
		return store.Assessment{}, &NotFoundError{Kind: "patient", ID: patientID}
	}
	pr, err := prompt.Quiz(p)
	if err != nil {
		return store.Assessment{}, err
	}
	resp, err := s.generate(ctx, llm.Request{Prompt: pr})
	if err != nil {
		return store.Assessment{}, err
	}

	result := interpret.ParseQuiz(resp.Content)
	a := store.Assessment{PatientID: p.ID}
	if result.Kind == interpret.Structured {
		a.Questions = result.Quiz
	} else {
		a.Unstructured = true
		a.RawContent = result.Raw
		s.logger.Warn("quiz response did not follow the delimiter convention, storing raw",
			zap.String("patient_id", p.ID))
	}
	id := doc.AddAssessment(a)
	if err := s.store.Save(doc); err != nil {
		return store.Assessment{}, err
	}
	saved, _ := doc.Assessment(id)
	return saved, nil
}

// SubmissionResult pairs the stored assessment with its grading and,
// when the gateway cooperates, a prose summary for the patient.
type SubmissionResult struct {
	Assessment store.Assessment  `json:"assessment"`
	Grading    interpret.Grading `json:"grading"`
	Summary    string            `json:"summary,omitempty"`
}

// SubmitAssessment grades submitted responses and persists the score.
// Grading an unstructured quiz yields a degraded result, not an error.
// The feedback summary is best-effort: a gateway failure there is
// logged and the graded result still returned.
func (s *Service) SubmitAssessment(ctx context.Context, assessmentID string, responses []string) (SubmissionResult, error) {
	doc := s.store.Load()
	a, ok := doc.Assessment(assessmentID)
	if !ok {
		return SubmissionResult{}, &NotFoundError{Kind: "assessment", ID: assessmentID}
	}

	grading := interpret.Grade(a, responses)
	a.Responses = responses
	if !grading.Degraded {
		score := grading.Correct
		a.Score = &score
	}
	doc.SetAssessment(a)
	if err := s.store.Save(doc); err != nil {
		return SubmissionResult{}, err
	}

	out := SubmissionResult{Assessment: a, Grading: grading}
	if grading.Degraded {
		return out, nil
	}
	if p, ok := doc.Patient(a.PatientID); ok {
		if pr, err := prompt.GradingFeedback(p, grading.Correct, grading.Total); err == nil {
			if resp, err := s.generate(ctx, llm.Request{Prompt: pr}); err == nil {
				out.Summary = strings.TrimSpace(resp.Content)
			} else {
				s.logger.Warn("grading feedback generation failed", zap.Error(err))
			}
		}
	}
	return out, nil
}
