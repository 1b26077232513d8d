package models

import "math"

// AnswerInput is one answer as submitted over HTTP. CFUser is a pointer so a
// legitimate 0.0 answer is distinguishable from a missing field.
type AnswerInput struct {
	SymptomID int      `json:"symptomId"`
	CFUser    *float64 `json:"cfUser"`
}

// SubmitAnswersRequest is the body of POST /submit-questionnaire.
// Field validation is left to the engine so that its check order (hypothesis,
// subject, answers) holds for HTTP callers too.
type SubmitAnswersRequest struct {
	HypothesisID int             `json:"hypothesisId"`
	Subject      SubjectIdentity `json:"userInfo" binding:"-"`
	Answers      []AnswerInput   `json:"answers"`
}

// ToAnswers converts the HTTP shape to engine answers. A missing cfUser
// becomes NaN, which the engine rejects as off the scale.
func (r SubmitAnswersRequest) ToAnswers() []Answer {
	out := make([]Answer, 0, len(r.Answers))
	for _, a := range r.Answers {
		cf := math.NaN()
		if a.CFUser != nil {
			cf = *a.CFUser
		}
		out = append(out, Answer{SymptomID: a.SymptomID, CFUser: cf})
	}
	return out
}

// SubmitAnswersResponse is returned after a result has been stored.
type SubmitAnswersResponse struct {
	ResultID       string         `json:"resultId"`
	CFPercentage   float64        `json:"cfPercentage"`
	AddictionLevel AddictionLevel `json:"addictionLevel"`
}

// SelectHypothesisRequest is the body of POST /selected-hypothesis.
type SelectHypothesisRequest struct {
	UserID       string `json:"userId"`
	HypothesisID int    `json:"hypothesisId" binding:"required,gt=0"`
}

// SelectHypothesisResponse confirms the chosen goal and how many questions it needs.
type SelectHypothesisResponse struct {
	HypothesisID  int    `json:"hypothesisId"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount"`
}

// Question is the public shape of a symptom; the expert CF is not exposed to subjects.
type Question struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	SymptomCode string `json:"symptomCode"`
}

// QuestionsFromSymptoms maps selected symptoms to question DTOs, preserving order.
func QuestionsFromSymptoms(symptoms []Symptom) []Question {
	out := make([]Question, 0, len(symptoms))
	for _, s := range symptoms {
		out = append(out, Question{ID: s.ID, Text: s.Text, SymptomCode: s.Code})
	}
	return out
}
