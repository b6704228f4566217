package availability

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JandsonS/teste-sub000/internal/reservation"
)

// FileSettings serves establishment hours loaded from a YAML document:
//
//	default:
//	  open_hour: 8
//	  close_hour: 19
//	establishments:
//	  studio-ana:
//	    open_hour: 9
//	    close_hour: 18
//	    pauses: [{start: "12:00", end: "13:00"}]
//	    deposit_percent: 30
type FileSettings struct {
	Default        *Settings           `yaml:"default"`
	Establishments map[string]Settings `yaml:"establishments"`
}

func LoadFile(path string) (*FileSettings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSettings(b)
}

func ParseSettings(b []byte) (*FileSettings, error) {
	var fs FileSettings
	if err := yaml.Unmarshal(b, &fs); err != nil {
		return nil, fmt.Errorf("parse establishments: %w", err)
	}
	if fs.Default != nil {
		if err := fs.Default.Validate(); err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
	}
	for id, s := range fs.Establishments {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("establishment %s: %w", id, err)
		}
	}
	return &fs, nil
}

func (f *FileSettings) Settings(_ context.Context, establishmentID string) (Settings, error) {
	if s, ok := f.Establishments[establishmentID]; ok {
		return s, nil
	}
	if f.Default != nil {
		return *f.Default, nil
	}
	return Settings{}, fmt.Errorf("establishment %q: %w", establishmentID, reservation.ErrNotFound)
}
