package handlers

import (
	"net/http"
	"strconv"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"
	"cfdiag-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// DiagnosisHandler serves the questionnaire flow and stored results.
type DiagnosisHandler struct {
	service *services.DiagnosisService
}

// NewDiagnosisHandler creates a handler over service.
func NewDiagnosisHandler(service *services.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{service: service}
}

func hypothesisParam(c *gin.Context) (int, error) {
	raw := c.Param("hypothesisId")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound("hypothesis", raw)
	}
	return id, nil
}

// ListHypotheses handles GET /hypotheses.
func (h *DiagnosisHandler) ListHypotheses(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListHypotheses())
}

// GetQuestions handles GET /questions/:hypothesisId.
func (h *DiagnosisHandler) GetQuestions(c *gin.Context) {
	id, err := hypothesisParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	questions, err := h.service.SelectQuestions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// GetCFScale handles GET /cf-scale.
func (h *DiagnosisHandler) GetCFScale(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.KnowledgeBase().CFScale())
}

// SubmitUserInfo handles POST /user-info. The identity is validated and
// echoed back normalized; nothing is stored.
func (h *DiagnosisHandler) SubmitUserInfo(c *gin.Context) {
	var subject models.SubjectIdentity
	if err := c.ShouldBindJSON(&subject); err != nil {
		respondError(c, bindingError(err))
		return
	}
	subject = subject.Normalize()
	if err := subject.Validate(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userInfo": subject})
}

// SelectHypothesis handles POST /selected-hypothesis.
func (h *DiagnosisHandler) SelectHypothesis(c *gin.Context) {
	var req models.SelectHypothesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}
	resp, err := h.service.SelectHypothesis(req.HypothesisID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitQuestionnaire handles POST /submit-questionnaire.
func (h *DiagnosisHandler) SubmitQuestionnaire(c *gin.Context) {
	var req models.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}
	result, err := h.service.SubmitAnswers(c.Request.Context(), req.HypothesisID, req.Subject, req.ToAnswers())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SubmitAnswersResponse{
		ResultID:       result.ID,
		CFPercentage:   result.CFPercentage,
		AddictionLevel: result.AddictionLevel,
	})
}

// GetResult handles GET /result/:id.
func (h *DiagnosisHandler) GetResult(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteResult handles DELETE /result/:id.
func (h *DiagnosisHandler) DeleteResult(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteResult(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Result deleted", "id": id})
}
