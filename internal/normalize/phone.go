package normalize

import (
	"fmt"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// Phone formats a US phone number. The bool is false when the number is
// absent or cannot be parsed; unparseable input yields model.PhoneInvalid.
func Phone(s string) (string, bool) {
	d := digits(s)
	if d == "" {
		return "", false
	}
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	switch len(d) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:]), true
	case 7:
		return fmt.Sprintf("%s-%s", d[:3], d[3:]), true
	default:
		return model.PhoneInvalid, false
	}
}
