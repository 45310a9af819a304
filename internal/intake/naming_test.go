package intake

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"bill.pdf":             "bill.pdf",
		"My Electric Bill.pdf": "My_Electric_Bill.pdf",
		"../../etc/passwd":     "etc_passwd",
		`C:\Users\me\bill.png`: "C_Users_me_bill.png",
		"café-résumé.jpg":      "cafe-resume.jpg",
		"  .hidden.pdf ":       "hidden.pdf",
		"bill (1).pdf":         "bill_1.pdf",
		"счёт":                 "file",
		"":                     "file",
	}

	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}

func TestNamerIsMonotonic(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	n := NewNamer(func() time.Time { return fixed })

	first := n.StoredName("a.pdf")
	second := n.StoredName("a.pdf")

	assert.Equal(t, "20260314_092653_589793_a.pdf", first)
	assert.Equal(t, "20260314_092653_589794_a.pdf", second)
}

func TestNamerFormat(t *testing.T) {
	n := NewNamer(nil)
	name := n.StoredName("bill.pdf")
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_\d{6}_bill\.pdf$`), name)
}
