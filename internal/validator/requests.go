package validator

import "encoding/json"

// SubmitForm - текстовые поля multipart формы /api/submit
type SubmitForm struct {
	Email         string `form:"email" validate:"study-email"`
	ParticipantID string `form:"participantId" validate:"participant-id"`
	SurveyData    string `form:"surveyData"`
}

// RequestHelpRequest - тело /api/request-help
type RequestHelpRequest struct {
	Email      string          `json:"email" validate:"study-email"`
	SurveyData json.RawMessage `json:"surveyData"`
}

// FollowupRequest - тело /api/followup-interest
type FollowupRequest struct {
	Email         string `json:"email" validate:"study-email"`
	ParticipantID string `json:"participantId" validate:"participant-id"`
}
