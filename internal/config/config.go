// Package config assembles the pipeline configuration from environment
// variables, an optional config file, and the embedded source definitions.
// Secrets (client IDs and secrets) come from the environment or .env files
// via viper; endpoint shapes and organizational scopes have embedded
// defaults that a sources.yaml file may override.
//
// Missing or placeholder values are not errors here: collectors treat an
// unreachable or unauthenticated source as an ordinary soft failure.
package config

import (
	"os"

	"github.com/spf13/viper"
)

// Config enumerates every recognized configuration field for a run.
type Config struct {
	Directory          DirectoryConfig
	DeviceManagement   DeviceManagementConfig
	StudentInformation StudentInformationConfig

	// OutDir is where snapshots and the widget are written.
	OutDir string

	// StudentTolerance is the allowed student-count spread between the
	// student-information and directory services before a discrepancy
	// note is recorded. Zero means use the default.
	StudentTolerance int
}

// DirectoryConfig configures the directory-service collector.
type DirectoryConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`

	// AdminSubject is the administrative identity used for domain-wide
	// delegation when exchanging credentials.
	AdminSubject string `yaml:"admin_subject"`

	StaffOrgUnit      string `yaml:"staff_org_unit"`
	StudentOrgUnit    string `yaml:"student_org_unit"`
	ChromebookOrgUnit string `yaml:"chromebook_org_unit"`
}

// DeviceManagementConfig configures the device-management collector.
type DeviceManagementConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

// StudentInformationConfig configures the student-information collector.
type StudentInformationConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`

	// StaffEndpoints is the ordered fallback chain of resource names
	// probed for the staff count; deployments disagree on the schema.
	StaffEndpoints []string `yaml:"staff_endpoints"`
}

// Load builds the configuration from viper (environment variables, flags,
// and any config file read by the CLI layer) over the embedded defaults.
func Load() (*Config, error) {
	defs, err := LoadSourceDefaults("")
	if err != nil {
		return nil, err
	}
	return load(defs), nil
}

// LoadWithSourcesFile is Load with an explicit sources.yaml override file.
func LoadWithSourcesFile(path string) (*Config, error) {
	defs, err := LoadSourceDefaults(path)
	if err != nil {
		return nil, err
	}
	return load(defs), nil
}

func load(defs *SourceDefaults) *Config {
	cfg := &Config{
		Directory: DirectoryConfig{
			BaseURL:           firstOf(getString("DIRECTORY_BASE_URL"), defs.Directory.BaseURL),
			TokenURL:          firstOf(getString("DIRECTORY_TOKEN_URL"), defs.Directory.TokenURL),
			ClientID:          getString("DIRECTORY_CLIENT_ID"),
			ClientSecret:      getString("DIRECTORY_CLIENT_SECRET"),
			AdminSubject:      firstOf(getString("DIRECTORY_ADMIN_EMAIL"), defs.Directory.AdminSubject),
			StaffOrgUnit:      firstOf(getString("DIRECTORY_STAFF_OU"), defs.Directory.StaffOrgUnit),
			StudentOrgUnit:    firstOf(getString("DIRECTORY_STUDENT_OU"), defs.Directory.StudentOrgUnit),
			ChromebookOrgUnit: firstOf(getString("DIRECTORY_CHROMEBOOK_OU"), defs.Directory.ChromebookOrgUnit),
		},
		DeviceManagement: DeviceManagementConfig{
			BaseURL:      firstOf(getString("MDM_URL"), defs.DeviceManagement.BaseURL),
			ClientID:     getString("MDM_CLIENT_ID"),
			ClientSecret: getString("MDM_CLIENT_SECRET"),
		},
		StudentInformation: StudentInformationConfig{
			BaseURL:        firstOf(getString("SIS_BASE_URL"), defs.StudentInformation.BaseURL),
			TokenURL:       firstOf(getString("SIS_TOKEN_URL"), defs.StudentInformation.TokenURL),
			ClientID:       getString("SIS_CLIENT_ID"),
			ClientSecret:   getString("SIS_CLIENT_SECRET"),
			StaffEndpoints: defs.StudentInformation.StaffEndpoints,
		},
		OutDir:           firstOf(getString("STATS_OUT_DIR"), "."),
		StudentTolerance: viper.GetInt("STATS_STUDENT_TOLERANCE"),
	}
	return cfg
}

// getString checks both OS environment variables and viper configuration.
func getString(key string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(key)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
