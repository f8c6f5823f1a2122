package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// PushInfo is a machine log line (mc_print/push_info).
type PushInfo struct {
	Command    string `json:"command"`
	SequenceID Text   `json:"sequence_id"`
	Param      string `json:"param"`
}

// CleanPushInfo is a push_info line split into its bracketed parts.
type CleanPushInfo struct {
	SequenceID  int    `json:"sequenceId"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Content     string `json:"content"`
	RawParam    string `json:"rawParam"`
}

// pushInfoPattern matches "[category][subcategory]: content", subcategory optional.
var pushInfoPattern = regexp.MustCompile(`^\[(.+?)](?:\[(.+?)])?:\s*(.+)$`)

// Clean splits the log line. ok is false when the param is not a structured line.
func (p *PushInfo) Clean() (CleanPushInfo, bool) {
	m := pushInfoPattern.FindStringSubmatch(p.Param)
	if m == nil {
		return CleanPushInfo{}, false
	}
	return CleanPushInfo{
		SequenceID:  p.SequenceID.Int(),
		Category:    m[1],
		Subcategory: m[2],
		Content:     m[3],
		RawParam:    p.Param,
	}, true
}

// AMSReading is the humidity and temperature side data an AMS unit reports
// through push_info lines.
type AMSReading struct {
	RealTemp        int `json:"realTemp"`
	HumidityPercent int `json:"humidityPercent"`
	HumidityIdx     int `json:"humidityIdx"`
}

var amsUnitPattern = regexp.MustCompile(`(?i)^ams(\d+)$`)

// ParseAMSReading extracts an AMS reading from a cleaned line such as
// "[AMS][ams0]: temp:25.3;humidity:40%;humidity_idx:2".
//
// Returns the bay index the reading belongs to. ok is false when the line is
// not an AMS reading or carries none of the known keys.
func ParseAMSReading(c CleanPushInfo) (bay int, reading AMSReading, ok bool) {
	if !strings.EqualFold(c.Category, "AMS") {
		return 0, AMSReading{}, false
	}
	m := amsUnitPattern.FindStringSubmatch(c.Subcategory)
	if m == nil {
		return 0, AMSReading{}, false
	}
	bay, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, AMSReading{}, false
	}

	found := false
	for _, part := range strings.Split(c.Content, ";") {
		key, value, cut := strings.Cut(strings.TrimSpace(part), ":")
		if !cut {
			continue
		}
		n := Text(strings.TrimSuffix(strings.TrimSpace(value), "%")).Int()
		switch strings.TrimSpace(key) {
		case "temp":
			reading.RealTemp = n
			found = true
		case "humidity":
			reading.HumidityPercent = n
			found = true
		case "humidity_idx":
			reading.HumidityIdx = n
			found = true
		}
	}
	return bay, reading, found
}
