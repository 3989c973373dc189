package education

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"patient-education/internal/llm"
	"patient-education/internal/prompt"
	"patient-education/internal/store"
)

// fakeClient returns canned responses and records the requests it saw.
type fakeClient struct {
	responses []llm.Response
	err       error
	requests  []llm.Request
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16))

func newTestService(t *testing.T, client llm.Client) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "data.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return New(st, client, 5*time.Second, zap.NewNop()), st
}

func addPatient(t *testing.T, st *store.Store, p store.Patient) string {
	t.Helper()
	doc := st.Load()
	id := doc.AddPatient(p)
	if err := st.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	return id
}

func TestGenerateMaterialEndToEnd(t *testing.T) {
	fake := &fakeClient{responses: []llm.Response{{Content: "Manage your diet..."}}}
	svc, st := newTestService(t, fake)
	pid := addPatient(t, st, store.Patient{Name: "Jane Doe", Condition: "Type 2 Diabetes"})

	m, err := svc.GenerateMaterial(context.Background(), pid)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if m.Content != "Manage your diet..." || m.PatientID != pid {
		t.Fatalf("unexpected material: %+v", m)
	}
	if m.Condition != "Type 2 Diabetes" {
		t.Fatalf("condition not denormalized: %+v", m)
	}

	got := st.Load().MaterialsFor(pid)
	if len(got) != 1 || got[0].Content != "Manage your diet..." {
		t.Fatalf("material not persisted: %+v", got)
	}
	if len(fake.requests) != 1 || !strings.Contains(fake.requests[0].Prompt, "Jane Doe") {
		t.Fatalf("prompt not built from patient profile")
	}
}

func TestGenerateMaterialUnknownPatient(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{responses: []llm.Response{{Content: "x"}}})
	_, err := svc.GenerateMaterial(context.Background(), "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestGenerateMaterialGatewayErrorNotPersisted(t *testing.T) {
	fake := &fakeClient{err: &llm.TransportError{Err: errors.New("timeout")}}
	svc, st := newTestService(t, fake)
	pid := addPatient(t, st, store.Patient{Name: "Jane", Condition: "Flu"})

	_, err := svc.GenerateMaterial(context.Background(), pid)
	var transport *llm.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("gateway error not passed through: %v", err)
	}
	if got := st.Load().MaterialsFor(pid); len(got) != 0 {
		t.Fatalf("material persisted despite gateway failure: %+v", got)
	}
}

func TestChatAppendsBothSides(t *testing.T) {
	fake := &fakeClient{responses: []llm.Response{{Content: "Fruit in moderation is fine."}}}
	svc, st := newTestService(t, fake)
	pid := addPatient(t, st, store.Patient{Name: "Jane", Condition: "Type 2 Diabetes"})

	thread, err := svc.Chat(context.Background(), pid, "Can I eat fruit?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("want 2 messages, got %d", len(thread))
	}
	if thread[0].Role != store.RolePatient || thread[0].Text != "Can I eat fruit?" {
		t.Fatalf("unexpected first message: %+v", thread[0])
	}
	if thread[1].Role != store.RoleAssistant || thread[1].Text != "Fruit in moderation is fine." {
		t.Fatalf("unexpected second message: %+v", thread[1])
	}
	if thread[1].CreatedAt.Before(thread[0].CreatedAt) {
		t.Fatalf("timestamps not non-decreasing")
	}

	if err := svc.ClearChat(pid); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := st.Load().ChatThread(pid); len(got) != 0 {
		t.Fatalf("thread survived clear: %+v", got)
	}
}

func TestChatEmptyQuestionRejected(t *testing.T) {
	svc, st := newTestService(t, &fakeClient{responses: []llm.Response{{Content: "x"}}})
	pid := addPatient(t, st, store.Patient{Name: "Jane", Condition: "Flu"})
	_, err := svc.Chat(context.Background(), pid, "   ")
	var verr *prompt.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestAnalyzeInjuryAnonymous(t *testing.T) {
	fake := &fakeClient{responses: []llm.Response{{Content: "Looks like a minor abrasion."}}}
	svc, st := newTestService(t, fake)

	a, err := svc.AnalyzeInjury(context.Background(), InjuryInput{
		Description: "Scraped my knee on gravel yesterday",
		Image:       pngBytes,
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.PatientID != "" || a.Analysis != "Looks like a minor abrasion." {
		t.Fatalf("unexpected assessment: %+v", a)
	}

	req := fake.requests[0]
	if req.Image == nil || req.Image.MIME != "image/png" {
		t.Fatalf("image not forwarded with sniffed MIME: %+v", req.Image)
	}

	// image is transient: nothing image-like in the persisted document
	saved := st.Load().InjuryAssessments
	if len(saved) != 1 || saved[0].Analysis == "" {
		t.Fatalf("assessment not persisted: %+v", saved)
	}
}

func TestAnalyzeInjuryRejectsNonImage(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{responses: []llm.Response{{Content: "x"}}})
	_, err := svc.AnalyzeInjury(context.Background(), InjuryInput{
		Description: "something",
		Image:       []byte("%PDF-1.4 not an image"),
	})
	var verr *prompt.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError for non-image, got %v", err)
	}
}

const structuredQuizResponse = `Question 1: What is insulin?
A) A hormone
B) A vitamin
C) A mineral
D) A protein shake
Answer: A hormone
Explanation: Insulin regulates blood sugar.
Category: Basic condition information`

func TestGenerateAssessmentStructured(t *testing.T) {
	fake := &fakeClient{responses: []llm.Response{{Content: structuredQuizResponse}}}
	svc, st := newTestService(t, fake)
	pid := addPatient(t, st, store.Patient{Name: "Jane", Condition: "Type 2 Diabetes"})

	a, err := svc.GenerateAssessment(context.Background(), pid)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Unstructured || len(a.Questions) != 1 {
		t.Fatalf("unexpected assessment: %+v", a)
	}
	if a.Questions[0].Answer != "A hormone" {
		t.Fatalf("unexpected answer: %q", a.Questions[0].Answer)
	}

	result, err := svc.SubmitAssessment(context.Background(), a.ID, []string{"A hormone"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Grading.Degraded || result.Grading.Correct != 1 {
		t.Fatalf("unexpected grading: %+v", result.Grading)
	}
	saved, _ := st.Load().Assessment(a.ID)
	if saved.Score == nil || *saved.Score != 1 {
		t.Fatalf("score not persisted: %+v", saved)
	}
}

func TestQuizWithoutDelimitersDegradesGracefully(t *testing.T) {
	fake := &fakeClient{responses: []llm.Response{
		{Content: "Here are some questions you could think about, in prose."},
	}}
	svc, st := newTestService(t, fake)
	pid := addPatient(t, st, store.Patient{Name: "Jane", Condition: "Type 2 Diabetes"})

	a, err := svc.GenerateAssessment(context.Background(), pid)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !a.Unstructured || a.RawContent == "" {
		t.Fatalf("expected unstructured assessment with raw text: %+v", a)
	}

	result, err := svc.SubmitAssessment(context.Background(), a.ID, []string{"anything"})
	if err != nil {
		t.Fatalf("grading an unstructured quiz must not fail: %v", err)
	}
	if !result.Grading.Degraded {
		t.Fatalf("want degraded grading, got %+v", result.Grading)
	}
	saved, _ := st.Load().Assessment(a.ID)
	if saved.Score != nil {
		t.Fatalf("degraded quiz must not record a score: %+v", saved)
	}
}
