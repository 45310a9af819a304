package email

import "sync"

// NoopProvider ничего не отправляет. Используется, когда письма
// выключены в конфигурации, и в тестах.
type NoopProvider struct {
	mu       sync.Mutex
	receipts []Receipt
}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Send(email *Email) error {
	return nil
}

func (p *NoopProvider) SendReceipt(receipt Receipt) error {
	p.mu.Lock()
	p.receipts = append(p.receipts, receipt)
	p.mu.Unlock()
	return nil
}

func (p *NoopProvider) Validate() error {
	return nil
}

// Receipts возвращает копию принятых подтверждений
func (p *NoopProvider) Receipts() []Receipt {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Receipt, len(p.receipts))
	copy(out, p.receipts)
	return out
}
