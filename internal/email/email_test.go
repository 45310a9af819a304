package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderUploadReceipt(t *testing.T) {
	subject, body, err := RenderReceipt(NewTemplateManager(), Receipt{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		FilesCount:    2,
		Skipped:       1,
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "bills received")
	assert.Contains(t, body, "2 new file(s) for participant p-1")
	assert.Contains(t, body, "1 file(s) were already on record")
}

func TestRenderUploadReceiptWithoutSkipped(t *testing.T) {
	_, body, err := RenderReceipt(NewTemplateManager(), Receipt{ParticipantID: "p-1", FilesCount: 1})
	require.NoError(t, err)
	assert.NotContains(t, body, "already on record")
}

func TestRenderHelpReceipt(t *testing.T) {
	subject, body, err := RenderReceipt(NewTemplateManager(), Receipt{Email: "helpme@example.com", Assistance: true})
	require.NoError(t, err)
	assert.Contains(t, subject, "help request")
	assert.Contains(t, body, "helpme@example.com")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := NewTemplateManager().Render("missing", nil)
	assert.Error(t, err)
}

func TestSMTPProviderValidate(t *testing.T) {
	cfg := DefaultConfig()
	p := NewSMTPProvider(cfg, nil)
	assert.Error(t, p.Validate(), "from email is required")

	cfg.FromEmail = "study@example.org"
	assert.NoError(t, p.Validate())

	cfg.Port = 0
	assert.Error(t, p.Validate())
}

func TestSMTPProviderSendWithoutRecipients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FromEmail = "study@example.org"
	err := NewSMTPProvider(cfg, nil).Send(&Email{Subject: "x"})
	assert.Error(t, err)
}

func TestNoopProviderRecordsReceipts(t *testing.T) {
	p := NewNoopProvider()
	require.NoError(t, p.SendReceipt(Receipt{Email: "a@example.com", FilesCount: 1}))
	assert.Len(t, p.Receipts(), 1)
}
