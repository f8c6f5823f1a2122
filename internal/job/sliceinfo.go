package job

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoPlate is returned when slice_info.config describes no plate.
var ErrNoPlate = errors.New("slice info has no plate")

// SliceInfo is the slicer's summary of the printed plate.
type SliceInfo struct {
	Index       int        `json:"index"`
	Prediction  int        `json:"prediction"`
	Weight      float64    `json:"weight"`
	Outside     bool       `json:"outside"`
	SupportUsed bool       `json:"supportUsed"`
	Filaments   []Filament `json:"filaments"`
}

// Filament is one filament used by the plate.
type Filament struct {
	ID    int     `json:"id"`
	Type  string  `json:"type"`
	Color string  `json:"color"`
	UsedM float64 `json:"usedM"`
	UsedG float64 `json:"usedG"`
}

type xmlConfig struct {
	XMLName xml.Name   `xml:"config"`
	Plates  []xmlPlate `xml:"plate"`
}

type xmlPlate struct {
	Metadata  []xmlMetadata `xml:"metadata"`
	Filaments []xmlFilament `xml:"filament"`
}

type xmlMetadata struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type xmlFilament struct {
	ID    string `xml:"id,attr"`
	Type  string `xml:"type,attr"`
	Color string `xml:"color,attr"`
	UsedM string `xml:"used_m,attr"`
	UsedG string `xml:"used_g,attr"`
}

// ParseSliceInfo decodes the first plate of a slice_info.config document.
// Unparseable numbers decode as zero.
func ParseSliceInfo(data []byte) (*SliceInfo, error) {
	var cfg xmlConfig
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing slice info: %w", err)
	}
	if len(cfg.Plates) == 0 {
		return nil, ErrNoPlate
	}

	plate := cfg.Plates[0]
	info := &SliceInfo{Filaments: make([]Filament, 0, len(plate.Filaments))}

	for _, m := range plate.Metadata {
		switch m.Key {
		case "index":
			info.Index = atoi(m.Value)
		case "prediction":
			info.Prediction = atoi(m.Value)
		case "weight":
			info.Weight = atof(m.Value)
		case "outside":
			info.Outside = m.Value == "true"
		case "support_used":
			info.SupportUsed = m.Value == "true"
		}
	}

	for _, f := range plate.Filaments {
		info.Filaments = append(info.Filaments, Filament{
			ID:    atoi(f.ID),
			Type:  f.Type,
			Color: f.Color,
			UsedM: atof(f.UsedM),
			UsedG: atof(f.UsedG),
		})
	}

	return info, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
