package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	SubmissionHandler *SubmissionHandler
	PageHandler       *PageHandler
}
