package email

// Email - простое текстовое письмо
type Email struct {
	To      []string
	Subject string
	Body    string
}

// TemplateData - данные для шаблонов писем
type TemplateData map[string]interface{}

// Receipt - подтверждение, которое получает участник после отправки
type Receipt struct {
	Email         string
	ParticipantID string
	FilesCount    int
	Skipped       int
	Assistance    bool
}
