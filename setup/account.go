package setup

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

const (
	AccountFile  = "account.yaml"
	SettingsFile = "settings.yaml"
	TokenEnv     = "QTALLY_TOKEN"
)

var ErrNoToken = errors.New("no API token provided")

// Account is the on-disk account file.
type Account struct {
	Token string `yaml:"token"`
	URL   string `yaml:"url,omitempty"`
}

// Prompter asks the user for an API token. current is the token already on
// record, if any.
type Prompter interface {
	Token(current string) (string, error)
}

// HuhPrompter reads the token from a masked terminal input.
type HuhPrompter struct{}

func (HuhPrompter) Token(current string) (string, error) {
	token := current
	err := huh.NewInput().
		Title("API token").
		Description("Stored in the account file with owner-only permissions.").
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return ErrNoToken
			}
			return nil
		}).
		Value(&token).
		Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func readAccount(path string) (Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Account{}, err
	}
	var a Account
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Account{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return a, nil
}

func writeAccount(path string, a Account) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

// Settings is the on-disk settings file.
type Settings struct {
	CircuitDrawer string `yaml:"circuit_drawer"`
}

func DefaultSettings() Settings {
	return Settings{CircuitDrawer: "text"}
}

func writeSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSettings reads a settings file, filling absent keys with defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}
