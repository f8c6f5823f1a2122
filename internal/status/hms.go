package status

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/bambu-core/internal/protocol"
)

// HMSWikiBase is the troubleshooting page prefix for HMS codes.
const HMSWikiBase = "https://wiki.bambulab.com/en/x1/troubleshooting/hmscode/"

// ParseHMS formats raw alert pairs as HMS_XXXX_XXXX_XXXX_XXXX codes with
// their wiki URL. Descriptions are resolved separately.
func ParseHMS(in []protocol.HMSCode) []HMS {
	out := make([]HMS, 0, len(in))
	for _, h := range in {
		code := FormatHMSCode(h.Attr, h.Code)
		out = append(out, HMS{
			Code: "HMS_" + code,
			URL:  HMSWikiBase + code,
			Attr: h.Attr,
			Raw:  h.Code,
		})
	}
	return out
}

// FormatHMSCode renders attr and code as two's-complement hex words joined in
// groups of four, e.g. 0300_0100_0001_0007.
func FormatHMSCode(attr, code int64) string {
	hex := twosComplementHex(attr) + twosComplementHex(code)
	var b strings.Builder
	for i := 0; i < len(hex); i += 4 {
		if i > 0 {
			b.WriteByte('_')
		}
		end := min(i+4, len(hex))
		b.WriteString(hex[i:end])
	}
	return b.String()
}

// twosComplementHex pads to a multiple of 8 hex digits.
func twosComplementHex(v int64) string {
	mag := v
	if mag < 0 {
		mag = -mag
	}
	digits := len(strconv.FormatUint(uint64(mag), 16))
	width := (digits + 7) / 8 * 8

	u := uint64(v)
	if v < 0 {
		if bits := uint(width * 4); bits < 64 {
			u &= 1<<bits - 1
		}
	}
	return fmt.Sprintf("%0*X", width, u)
}
