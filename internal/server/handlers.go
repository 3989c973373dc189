package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patient-education/internal/analytics"
	"patient-education/internal/education"
	"patient-education/internal/llm"
	"patient-education/internal/prompt"
	"patient-education/internal/store"
)

// respondError maps the error taxonomy onto HTTP statuses. Every
// failure ends in a JSON body; nothing crashes the session.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		validationErr *prompt.ValidationError
		notFoundErr   *education.NotFoundError
		storageErr    *store.StorageError
		authErr       *llm.AuthError
		transportErr  *llm.TransportError
		refusalErr    *llm.RefusalError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &authErr):
		s.logger.Error("gateway auth failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "the AI provider rejected the request, check your credentials or quota",
		})
	case errors.As(err, &refusalErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "the model declined to answer",
			"refusal": refusalErr.Message,
		})
	case errors.As(err, &transportErr):
		s.logger.Warn("gateway transport failure", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":     "could not reach the AI provider, please try again",
			"retryable": true,
		})
	case errors.As(err, &storageErr):
		s.logger.Error("storage failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist data"})
	default:
		s.logger.Error("unexpected failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, analytics.Summarize(s.store.Load()))
}

func (s *Server) handleConsistency(c *gin.Context) {
	problems := s.store.Load().Check()
	c.JSON(http.StatusOK, gin.H{"problems": problems, "count": len(problems)})
}

type patientInput struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	EducationLevel string `json:"education_level"`
	Language       string `json:"language"`
	Condition      string `json:"condition"`
	Treatment      string `json:"treatment"`
	Medications    string `json:"medications"`
	LearningStyle  string `json:"learning_style"`
	SpecialNeeds   string `json:"special_needs"`
}

func (in patientInput) validate() error {
	if in.Name == "" {
		return &prompt.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.Condition == "" {
		return &prompt.ValidationError{Field: "condition", Reason: "must not be empty"}
	}
	if in.Age < 0 || in.Age > 120 {
		return &prompt.ValidationError{Field: "age", Reason: "must be between 0 and 120"}
	}
	return nil
}

func (in patientInput) toPatient() store.Patient {
	return store.Patient{
		Name:           in.Name,
		Age:            in.Age,
		Gender:         in.Gender,
		EducationLevel: in.EducationLevel,
		Language:       in.Language,
		Condition:      in.Condition,
		Treatment:      in.Treatment,
		Medications:    in.Medications,
		LearningStyle:  in.LearningStyle,
		SpecialNeeds:   in.SpecialNeeds,
	}
}

func (s *Server) handleCreatePatient(c *gin.Context) {
	var in patientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := in.validate(); err != nil {
		s.respondError(c, err)
		return
	}
	doc := s.store.Load()
	id := doc.AddPatient(in.toPatient())
	if err := s.store.Save(doc); err != nil {
		s.respondError(c, err)
		return
	}
	p, _ := doc.Patient(id)
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleListPatients(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Load().Patients)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	p, ok := s.store.Load().Patient(c.Param("id"))
	if !ok {
		s.respondError(c, &education.NotFoundError{Kind: "patient", ID: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdatePatient(c *gin.Context) {
	var in patientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := in.validate(); err != nil {
		s.respondError(c, err)
		return
	}
	doc := s.store.Load()
	if !doc.UpdatePatient(c.Param("id"), in.toPatient()) {
		s.respondError(c, &education.NotFoundError{Kind: "patient", ID: c.Param("id")})
		return
	}
	if err := s.store.Save(doc); err != nil {
		s.respondError(c, err)
		return
	}
	p, _ := doc.Patient(c.Param("id"))
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeletePatient(c *gin.Context) {
	doc := s.store.Load()
	if !doc.RemovePatient(c.Param("id")) {
		s.respondError(c, &education.NotFoundError{Kind: "patient", ID: c.Param("id")})
		return
	}
	if err := s.store.Save(doc); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleGenerateMaterial(c *gin.Context) {
	m, err := s.education.GenerateMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) handleListPatientMaterials(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Load().MaterialsFor(c.Param("id")))
}

func (s *Server) handleListMaterials(c *gin.Context) {
	materials := s.store.Load().MaterialsFor(c.Query("patient_id"))
	if condition := c.Query("condition"); condition != "" {
		filtered := []store.Material{}
		for _, m := range materials {
			if m.Condition == condition {
				filtered = append(filtered, m)
			}
		}
		materials = filtered
	}
	c.JSON(http.StatusOK, materials)
}

func (s *Server) handleDeleteMaterial(c *gin.Context) {
	doc := s.store.Load()
	if !doc.RemoveMaterial(c.Param("id")) {
		s.respondError(c, &education.NotFoundError{Kind: "material", ID: c.Param("id")})
		return
	}
	if err := s.store.Save(doc); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// sendDownload streams text as a plain-text attachment.
func sendDownload(c *gin.Context, name, content string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func (s *Server) handleDownloadMaterial(c *gin.Context) {
	m, ok := s.store.Load().Material(c.Param("id"))
	if !ok {
		s.respondError(c, &education.NotFoundError{Kind: "material", ID: c.Param("id")})
		return
	}
	name := fmt.Sprintf("education_material_%s.txt", m.CreatedAt.Format("20060102_150405"))
	sendDownload(c, name, m.Content)
}

func (s *Server) handleGetChat(c *gin.Context) {
	doc := s.store.Load()
	if _, ok := doc.Patient(c.Param("id")); !ok {
		s.respondError(c, &education.NotFoundError{Kind: "patient", ID: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, doc.ChatThread(c.Param("id")))
}

func (s *Server) handlePostChat(c *gin.Context) {
	var in struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	thread, err := s.education.Chat(c.Request.Context(), c.Param("id"), in.Question)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (s *Server) handleClearChat(c *gin.Context) {
	if err := s.education.ClearChat(c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleAnalyzeInjury(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		s.respondError(c, &prompt.ValidationError{Field: "image", Reason: "file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}

	a, err := s.education.AnalyzeInjury(c.Request.Context(), education.InjuryInput{
		PatientID:   c.PostForm("patient_id"),
		Description: c.PostForm("description"),
		Image:       data,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleListInjuries(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Load().InjuryAssessments)
}

func (s *Server) handleDownloadInjury(c *gin.Context) {
	a, ok := s.store.Load().InjuryAssessment(c.Param("id"))
	if !ok {
		s.respondError(c, &education.NotFoundError{Kind: "injury assessment", ID: c.Param("id")})
		return
	}
	name := fmt.Sprintf("injury_assessment_%s.txt", a.CreatedAt.Format("20060102_150405"))
	sendDownload(c, name, a.Analysis)
}

func (s *Server) handleGenerateAssessment(c *gin.Context) {
	a, err := s.education.GenerateAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleListAssessments(c *gin.Context) {
	doc := s.store.Load()
	if _, ok := doc.Patient(c.Param("id")); !ok {
		s.respondError(c, &education.NotFoundError{Kind: "patient", ID: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, doc.AssessmentsFor(c.Param("id")))
}

func (s *Server) handleSubmitAssessment(c *gin.Context) {
	var in struct {
		Responses []string `json:"responses"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.education.SubmitAssessment(c.Request.Context(), c.Param("id"), in.Responses)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
