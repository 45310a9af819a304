package email

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

const (
	TemplateUploadReceipt = "upload_receipt"
	TemplateHelpReceipt   = "help_receipt"
)

var builtinTemplates = map[string]string{
	TemplateUploadReceipt: `Thank you for taking part in the NJ Energy Study.

We received {{.FilesCount}} new file(s) for participant {{.ParticipantID}}.
{{- if .Skipped}}
{{.Skipped}} file(s) were already on record and were skipped.
{{- end}}

You can reply to this email if you have any questions.
`,
	TemplateHelpReceipt: `Thank you for your interest in the NJ Energy Study.

A member of the research team will contact you at {{.Email}} to help with your bills.
`,
}

// TemplateManager реализует TemplateRenderer для текстовых писем
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, body := range builtinTemplates {
		// встроенные шаблоны проверены тестами
		_ = tm.AddTemplate(name, body)
	}
	return tm
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет или заменяет шаблон
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}

// RenderReceipt возвращает тему и текст подтверждения
func RenderReceipt(renderer TemplateRenderer, receipt Receipt) (string, string, error) {
	name := TemplateUploadReceipt
	subject := "NJ Energy Study: bills received"
	if receipt.Assistance {
		name = TemplateHelpReceipt
		subject = "NJ Energy Study: help request received"
	}

	body, err := renderer.Render(name, TemplateData{
		"Email":         receipt.Email,
		"ParticipantID": receipt.ParticipantID,
		"FilesCount":    receipt.FilesCount,
		"Skipped":       receipt.Skipped,
	})
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}
