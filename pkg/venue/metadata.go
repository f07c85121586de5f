package venue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// uiName is the only field read from the game content ui documents.
type uiName struct {
	Name string `json:"name"`
}

// trackDisplayName resolves a track directory (and optional layout) to
// its display name from the content metadata, falling back to the
// directory name.
func (vt *Tracker) trackDisplayName(track, layout string) string {
	candidates := []string{}
	if layout != "" {
		candidates = append(candidates, filepath.Join(vt.contentDir, "tracks", track, "ui", layout, "ui_track.json"))
	}
	candidates = append(candidates, filepath.Join(vt.contentDir, "tracks", track, "ui", "ui_track.json"))

	for _, path := range candidates {
		if name := readUIName(path); name != "" {
			return name
		}
	}
	return track
}

// carDisplayName resolves a car directory to its display name.
func (vt *Tracker) carDisplayName(car string) string {
	if name := readUIName(filepath.Join(vt.contentDir, "cars", car, "ui", "ui_car.json")); name != "" {
		return name
	}
	return car
}

func readUIName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var ui uiName
	if err := json.Unmarshal(data, &ui); err != nil {
		return ""
	}
	return ui.Name
}

// LoadCarsets reads the curated carset membership lists: one file per
// carset, the file name is the carset name, one car directory per
// line. Blank lines and ';' comments are skipped.
func LoadCarsets(dir string) (map[string][]string, error) {
	carsets := map[string][]string{}
	if dir == "" {
		return carsets, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return carsets, nil
		}
		return nil, errors.Wrap(err, "reading carsets dir")
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		cars := []string{}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, ";") {
				continue
			}
			cars = append(cars, line)
		}
		if len(cars) > 0 {
			carsets[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = cars
		}
	}
	return carsets, nil
}
