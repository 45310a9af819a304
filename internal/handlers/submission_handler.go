package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"energy_study_backend/internal/services"
	"energy_study_backend/internal/services/dto"
	"energy_study_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

const billsField = "bills"

// ============================================
// SUBMISSION HANDLER
// ============================================

type SubmissionHandler struct {
	*BaseHandler
	submissionService services.SubmissionService
}

func NewSubmissionHandler(base *BaseHandler, submissionService services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       base,
		submissionService: submissionService,
	}
}

func (h *SubmissionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/submit", h.Submit)
	r.POST("/request-help", h.RequestHelp)
	r.POST("/followup-interest", h.FollowupInterest)
}

// ============================================
// HANDLERS
// ============================================

// Submit - загрузка счетов участником
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var form validator.SubmitForm
	if !h.BindAndValidate(c, &form) {
		return
	}

	var parts []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		parts = c.Request.MultipartForm.File[billsField]
	}

	req := &dto.SubmitRequest{
		Email:         form.Email,
		ParticipantID: form.ParticipantID,
		Survey:        json.RawMessage(form.SurveyData),
		IP:            c.ClientIP(),
		Files:         make([]dto.IncomingFile, 0, len(parts)),
	}
	for _, fh := range parts {
		req.Files = append(req.Files, incomingFile(fh))
	}

	resp, err := h.submissionService.Submit(c.Request.Context(), req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RequestHelp - участник просит помочь с загрузкой
func (h *SubmissionHandler) RequestHelp(c *gin.Context) {
	var body validator.RequestHelpRequest
	if !h.BindAndValidate(c, &body) {
		return
	}

	err := h.submissionService.RequestHelp(c.Request.Context(), &dto.HelpRequest{
		Email:  body.Email,
		Survey: body.SurveyData,
		IP:     c.ClientIP(),
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// FollowupInterest - согласие на дальнейший контакт
func (h *SubmissionHandler) FollowupInterest(c *gin.Context) {
	var body validator.FollowupRequest
	if !h.BindAndValidate(c, &body) {
		return
	}

	err := h.submissionService.RegisterFollowup(c.Request.Context(), &dto.FollowupRequest{
		Email:         body.Email,
		ParticipantID: body.ParticipantID,
		IP:            c.ClientIP(),
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func incomingFile(fh *multipart.FileHeader) dto.IncomingFile {
	return dto.IncomingFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadSeekCloser, error) {
			return fh.Open()
		},
	}
}
