package intake

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash возвращает хэш содержимого файла
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Deduplicator отслеживает хэши уже сохраненных файлов участника и файлов
// текущей отправки. Дубликаты внутри одной отправки тоже отбрасываются.
type Deduplicator struct {
	seen    map[string]struct{}
	skipped int
}

func NewDeduplicator(existing []string) *Deduplicator {
	seen := make(map[string]struct{}, len(existing))
	for _, h := range existing {
		seen[h] = struct{}{}
	}
	return &Deduplicator{seen: seen}
}

// Check возвращает хэш и признак дубликата. Новый хэш запоминается,
// для дубликата увеличивается счетчик пропущенных.
func (d *Deduplicator) Check(content []byte) (string, bool) {
	h := Hash(content)
	if _, ok := d.seen[h]; ok {
		d.skipped++
		return h, true
	}
	d.seen[h] = struct{}{}
	return h, false
}

// Skipped - сколько файлов отброшено как дубликаты
func (d *Deduplicator) Skipped() int {
	return d.skipped
}
