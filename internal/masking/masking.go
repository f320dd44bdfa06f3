// Package masking reduces sensitive values to display forms that are safe to
// return to callers not authorized for raw PHI.
//
// Handlers decide per field whether to emit the raw value or one of these
// transforms; nothing here is applied implicitly. Every function is total:
// empty input yields "" and no input can cause a panic.
package masking

import (
	"strings"
	"unicode"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// maskRun is the fixed prefix used by MaskLast4. Its length is constant so
// the masked form does not reveal the length of the original value.
const maskRun = "*********"

// MaskLast4 reveals only the last four characters of v behind a fixed run of
// asterisks. Values of four characters or fewer are masked entirely.
func MaskLast4(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	r := []rune(v)
	if len(r) <= 4 {
		return maskRun
	}
	return maskRun + string(r[len(r)-4:])
}

// MaskZip generalizes a postal code to its three-digit prefix, which is
// enough for regional payer routing without exposing the exact location.
func MaskZip(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < 3 {
		return ""
	}
	for _, c := range v[:3] {
		if !unicode.IsDigit(c) {
			return ""
		}
	}
	return v[:3] + "**"
}

// MaskDate keeps only the year of d.
func MaskDate(d models.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()[:4] + "-**-**"
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(v string) string {
	v = strings.TrimSpace(v)
	at := strings.LastIndex(v, "@")
	if at < 1 || at == len(v)-1 {
		return MaskLast4(v)
	}
	local := []rune(v[:at])
	return string(local[0]) + "***" + v[at:]
}

// DisplayName renders a name as first name plus last initial ("Jane D.").
func DisplayName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	switch {
	case first == "" && last == "":
		return ""
	case last == "":
		return first
	case first == "":
		return string([]rune(last)[0]) + "."
	}
	return first + " " + string([]rune(last)[0]) + "."
}
