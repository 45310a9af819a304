package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"energy_study_backend/internal/logger"
	"energy_study_backend/internal/services/dto"
	"energy_study_backend/internal/validator"
	"energy_study_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	err      error
	lastHelp *dto.HelpRequest
}

func (s *stubService) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SubmitResponse{Success: true, ParticipantID: req.ParticipantID, FilesCount: len(req.Files)}, nil
}

func (s *stubService) RequestHelp(ctx context.Context, req *dto.HelpRequest) error {
	s.lastHelp = req
	return s.err
}

func (s *stubService) RegisterFollowup(ctx context.Context, req *dto.FollowupRequest) error {
	return s.err
}

func (s *stubService) Wait() {}

func newRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.InitWithWriter("test", io.Discard)

	h := NewSubmissionHandler(NewBaseHandler(validator.New(), 10<<20), svc)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func postJSON(r *gin.Engine, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &parsed)
	return w, parsed
}

func TestRequestHelpPassesSurvey(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w, body := postJSON(r, "/api/request-help", `{"email":"resident@example.com","surveyData":{"a":1}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, svc.lastHelp)
	assert.JSONEq(t, `{"a":1}`, string(svc.lastHelp.Survey))
}

func TestUnexpectedServiceErrorIsGeneric(t *testing.T) {
	r := newRouter(&stubService{err: errors.New("disk on fire")})

	w, body := postJSON(r, "/api/followup-interest", `{"email":"resident@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Request failed. Please try again.", body["message"])
}

func TestServiceAppErrorIsTranslated(t *testing.T) {
	r := newRouter(&stubService{err: apperrors.ErrNoNewFiles})

	req := httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader("email=resident%40example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"No valid new files uploaded"}`, w.Body.String())
}

func TestMalformedJSONBody(t *testing.T) {
	r := newRouter(&stubService{})

	w, body := postJSON(r, "/api/request-help", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", body["message"])
}

func TestIsBodyTooLarge(t *testing.T) {
	assert.True(t, isBodyTooLarge(&http.MaxBytesError{Limit: 10}))
	assert.True(t, isBodyTooLarge(errors.New("multipart: NextPart: http: request body too large")))
	assert.False(t, isBodyTooLarge(errors.New("unexpected EOF")))
}
