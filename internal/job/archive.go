package job

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Archive entry names inside a .3mf project.
const (
	entrySliceInfo       = "Metadata/slice_info.config"
	entryModelSettings   = "Metadata/model_settings.config"
	entryProjectSettings = "Metadata/project_settings.config"
)

// maxEntrySize bounds how much of a single archive entry is read into memory.
const maxEntrySize = 64 << 20

// PlateName derives the plate base name from the printer's gcode path,
// e.g. "/data/Metadata/plate_1.gcode" becomes "plate_1".
func PlateName(gcodeFile string) string {
	if gcodeFile == "" {
		return ""
	}
	return strings.TrimSuffix(path.Base(gcodeFile), ".gcode")
}

// UpdateZipFields enriches the job from its project archive.
//
// Each artifact is read independently. Missing entries leave the matching
// field unset; entries that cannot be read or parsed are reported in the
// returned error while the rest are still applied.
func (j *Job) UpdateZipFields(zr *zip.Reader) error {
	plate := PlateName(j.Status().GcodeFile)

	var errs []error
	read := func(name string) []byte {
		data, err := readEntry(zr, name)
		if err != nil && !errors.Is(err, errEntryMissing) {
			errs = append(errs, err)
		}
		return data
	}

	var thumbnail, plateInfo []byte
	if plate != "" {
		thumbnail = read("Metadata/" + plate + ".png")
		plateInfo = read("Metadata/" + plate + ".json")
	}
	modelSettings := read(entryModelSettings)
	projectSettings := read(entryProjectSettings)

	var info *SliceInfo
	if raw := read(entrySliceInfo); raw != nil {
		parsed, err := ParseSliceInfo(raw)
		if err != nil {
			errs = append(errs, err)
		} else {
			info = parsed
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if thumbnail != nil {
		j.gcodeThumbnail = thumbnail
	}
	if plateInfo != nil {
		j.plateInfo = plateInfo
	}
	if modelSettings != nil {
		j.modelSettings = modelSettings
	}
	if projectSettings != nil {
		j.projectSettings = projectSettings
	}
	if info != nil {
		j.sliceInfo = info
	}

	return errors.Join(errs...)
}

var errEntryMissing = errors.New("archive entry missing")

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return data, nil
	}
	return nil, errEntryMissing
}
