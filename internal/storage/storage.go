// Package storage persists the client identity and the last viewed city between
// runs. Listings and filters are never stored.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/propmap/internal/validate"
)

// DefaultPath is used when no storage file is configured.
const DefaultPath = "~/.config/propmap/state.json"

// systemConfigPath is the managed system-wide config consulted for identifiers.
//
//nolint:gochecknoglobals // overridden by tests.
var systemConfigPath = "/etc/propmap/config.yaml"

// Data represents the structure of the storage file.
type Data struct {
	ClientUUID string `json:"client_uuid,omitempty" validate:"omitempty,uuid4"`
	OrgUUID    string `json:"org_uuid,omitempty" validate:"omitempty,uuid_rfc4122"`
	LastCity   string `json:"last_city,omitempty"`
}

// Storage handles the loading and saving of the storage file.
type Storage struct {
	Path string `validate:"required,filepath"`
	Data Data
}

// NewStorage creates a new Storage instance.
func NewStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	s := &Storage{Path: expandedPath}

	// Attempt to read system-wide managed config for client/org UUIDs.
	if sysOrg, sysClient := readSystemManagedConfig(); sysOrg != "" || sysClient != "" {
		if sysOrg != "" {
			s.Data.OrgUUID = sysOrg
		}
		if sysClient != "" {
			s.Data.ClientUUID = sysClient
		}
	}

	if err := s.Load(); err != nil {
		// If the file doesn't exist, we can ignore the error.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Ensure ClientUUID present: if not provided by system config and not present in storage, generate one.
	if s.Data.ClientUUID == "" {
		s.Data.ClientUUID = uuid.NewString()
	}

	return s, nil
}

// NewOrExistingStorage returns existing storage if the file exists, or creates a new one otherwise.
// When creating a new storage, it writes the initial structure to disk immediately.
func NewOrExistingStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(expandedPath)
	switch {
	case statErr == nil:
		return NewStorage(path)
	case os.IsNotExist(statErr):
		s, err := NewStorage(path)
		if err != nil {
			return nil, err
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, statErr
	}
}

func (s *Storage) Load() error {
	logrus.Debug("Loading storage file from: ", s.Path)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.Data); err != nil {
		return err
	}

	// Validate loaded data and self-heal when possible.
	if err := validate.Struct(s.Data); err != nil {
		changed := false
		if s.Data.ClientUUID == "" || validate.Var(s.Data.ClientUUID, "uuid4") != nil {
			s.Data.ClientUUID = uuid.NewString()
			changed = true
		}
		// If OrgUUID present but invalid, clear it.
		if s.Data.OrgUUID != "" && validate.Var(s.Data.OrgUUID, "uuid_rfc4122") != nil {
			logrus.Warn("Invalid org_uuid found in storage; clearing.")
			s.Data.OrgUUID = ""
			changed = true
		}
		if changed {
			if err := s.Save(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes the storage data to the file.
func (s *Storage) Save() error {
	logrus.Debug("Saving storage file to: ", s.Path)
	// Ensure parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0o600)
}

// RememberCity records the city shown last and saves when it changed.
func (s *Storage) RememberCity(name string) error {
	if name == "" || name == s.Data.LastCity {
		return nil
	}
	s.Data.LastCity = name
	return s.Save()
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// readSystemManagedConfig reads org_uuid and client_uuid from the managed
// system-wide config. Unparseable identifiers are ignored.
func readSystemManagedConfig() (orgUUID string, clientUUID string) {
	data, err := os.ReadFile(systemConfigPath)
	if err != nil {
		return "", ""
	}
	var managed struct {
		OrgUUID    string `yaml:"org_uuid"`
		ClientUUID string `yaml:"client_uuid"`
	}
	if err := yaml.Unmarshal(data, &managed); err != nil {
		logrus.Debugf("error reading system config: %v", err)
		return "", ""
	}
	orgUUID, clientUUID = managed.OrgUUID, managed.ClientUUID
	// Validate basic UUID format without forcing version.
	if orgUUID != "" {
		if _, err := uuid.Parse(orgUUID); err != nil {
			logrus.Warn("Invalid org_uuid in system config; ignoring.")
			orgUUID = ""
		}
	}
	if clientUUID != "" {
		if _, err := uuid.Parse(clientUUID); err != nil {
			logrus.Warn("Invalid client_uuid in system config; ignoring.")
			clientUUID = ""
		}
	}
	return orgUUID, clientUUID
}
