// Package setup performs the one-time environment initialization: the
// account token and the settings file. A marker file in the setup
// directory records completion so later runs skip the side effects.
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const MarkerFile = ".qtally-init"

type Options struct {
	Dir    string
	Reload bool

	// Fallback files copied into Dir when the setup file is missing.
	AccountFallback  string
	SettingsFallback string

	// Prompter is asked for a token when neither the environment nor the
	// account file has one. Nil disables prompting.
	Prompter Prompter
	Log      zerolog.Logger
}

type Step struct {
	Name    string
	Message string
}

type Report struct {
	Skipped bool // a previous run completed and Reload was not set
	Marker  Marker
	Steps   []Step
}

// Marker is the content of the marker file.
type Marker struct {
	ID        string    `yaml:"id"`
	Completed time.Time `yaml:"completed"`
	Steps     []string  `yaml:"steps"`
}

var mu sync.Mutex

// Init runs the setup steps unless the marker shows they already ran.
// Concurrent calls are serialized.
func Init(ctx context.Context, opts Options) (*Report, error) {
	mu.Lock()
	defer mu.Unlock()

	if opts.Dir == "" {
		return nil, errors.New("setup: no directory")
	}
	log := opts.Log.With().Str("dir", opts.Dir).Logger()
	markerPath := filepath.Join(opts.Dir, MarkerFile)

	if m, err := readMarker(markerPath); err == nil && !opts.Reload {
		log.Debug().Str("id", m.ID).Msg("already initialized")
		return &Report{Skipped: true, Marker: m}, nil
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("setup: read marker: %w", err)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	steps := []struct {
		name string
		run  func(context.Context, Options) (string, error)
	}{
		{"account", setupAccount},
		{"settings", setupSettings},
	}
	rep := &Report{}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := s.run(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("setup %s: %w", s.name, err)
		}
		log.Info().Str("step", s.name).Msg(msg)
		rep.Steps = append(rep.Steps, Step{Name: s.name, Message: msg})
		rep.Marker.Steps = append(rep.Marker.Steps, s.name)
	}

	rep.Marker.ID = uuid.NewString()
	rep.Marker.Completed = time.Now().UTC()
	if err := writeMarker(markerPath, rep.Marker); err != nil {
		return nil, fmt.Errorf("setup: write marker: %w", err)
	}
	return rep, nil
}

// Initialized reports whether dir holds a completion marker.
func Initialized(dir string) bool {
	_, err := readMarker(filepath.Join(dir, MarkerFile))
	return err == nil
}

func setupAccount(_ context.Context, opts Options) (string, error) {
	path, src, err := CheckSetupFile(opts.Dir, AccountFile, opts.AccountFallback)
	if err != nil {
		return "", err
	}
	var current Account
	if src != FileMissing {
		if current, err = readAccount(path); err != nil {
			return "", err
		}
	}

	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		current.Token = tok
		if err := writeAccount(path, current); err != nil {
			return "", err
		}
		return "token taken from " + TokenEnv, nil
	}
	if current.Token != "" && !opts.Reload {
		return "token loaded (" + src.String() + ")", nil
	}
	if opts.Prompter == nil {
		if current.Token != "" {
			return "token loaded (" + src.String() + ")", nil
		}
		return "", ErrNoToken
	}
	tok, err := opts.Prompter.Token(current.Token)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", ErrNoToken
	}
	current.Token = tok
	if err := writeAccount(path, current); err != nil {
		return "", err
	}
	return "token saved", nil
}

func setupSettings(_ context.Context, opts Options) (string, error) {
	path, src, err := CheckSetupFile(opts.Dir, SettingsFile, opts.SettingsFallback)
	if err != nil {
		return "", err
	}
	if src != FileMissing {
		if _, err := LoadSettings(path); err != nil {
			return "", err
		}
		return src.String(), nil
	}
	if err := writeSettings(path, DefaultSettings()); err != nil {
		return "", err
	}
	return "created with default content", nil
}

func readMarker(path string) (Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}
	var m Marker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Marker{}, err
	}
	return m, nil
}

func writeMarker(path string, m Marker) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
