package normalization

import (
	"strings"
)

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// Phone canonicalizes a raw phone string to "+<digits>". Inputs with fewer
// than 10 digits are not usable as a lookup key and normalize to "".
// Phone(Phone(x)) == Phone(x) for every input.
func Phone(raw string) string {
	digits := Digits(raw)
	if len(digits) < 10 {
		return ""
	}
	return "+" + digits
}

// ChatHandle reduces a provider chat identifier to its phone-like key.
// Provider handles often carry a server suffix ("5511999999999@c.us"); only
// the part before the first "@" participates.
func ChatHandle(raw string) string {
	handle := strings.TrimSpace(raw)
	if at := strings.Index(handle, "@"); at >= 0 {
		handle = handle[:at]
	}
	return Phone(handle)
}

// Document canonicalizes a tax-id-like identifier to digits only.
// Document(Document(x)) == Document(x) for every input.
func Document(raw string) string {
	return Digits(raw)
}
