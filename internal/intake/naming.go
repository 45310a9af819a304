package intake

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// asciiFold раскладывает символы (NFKD) и выбрасывает всё не-ASCII
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
})))

// SanitizeFilename оставляет только безопасные ASCII символы имени файла.
// Разделители путей превращаются в "_", точки и "_" по краям убираются.
func SanitizeFilename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}

	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeFilenameChars.ReplaceAllString(folded, "")
	folded = strings.Trim(folded, "._")

	if folded == "" {
		return "file"
	}
	return folded
}

// Namer выдает имена для сохранения: метка времени с микросекундами плюс
// очищенное имя. Метки строго возрастают в пределах процесса.
type Namer struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// StoredName возвращает имя вида 20060102_150405_000000_name.pdf
func (n *Namer) StoredName(sanitized string) string {
	n.mu.Lock()
	t := n.now().Truncate(time.Microsecond)
	if !t.After(n.last) {
		t = n.last.Add(time.Microsecond)
	}
	n.last = t
	n.mu.Unlock()

	return fmt.Sprintf("%s_%06d_%s", t.Format("20060102_150405"), t.Nanosecond()/1000, sanitized)
}
