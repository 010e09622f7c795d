package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys
const EnvPrefix = "EPCI"

// Environment variables holding the requirements system credentials
const (
	PolarionUserEnv     = "POLARION_USERNAME"
	PolarionPasswordEnv = "POLARION_PWD"
)

// Defaults holds every config key with its default value
var Defaults = map[string]any{
	"ep.url":                       "http://localhost:29267",
	"ep.timeout":                   "30m",
	"ep.poll_interval":             "2s",
	"workflow.work_dir":            "test",
	"workflow.report_dir":          "reports",
	"workflow.init_script":         "model/init.m",
	"workflow.mil_config":          "SL MIL",
	"workflow.sil_config":          "SIL",
	"workflow.mil_report_template": "rbt-sl",
	"workflow.sil_report_template": "rbt-b2b-ec",
	"workflow.testcase_dir":        "",
	"workflow.subsystem":           "",
	"polarion.url":                 "",
	"polarion.project":             "",
	"polarion.query":               "",
	"hook.command":                 "",
	"log.level":                    "info",
}

// SetDefaults registers Defaults and the environment binding on v
func SetDefaults(v *viper.Viper) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Dir returns the directory of the default config file
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "epci"), nil
}

// GetEPURL returns the EmbeddedPlatform REST base URL
func GetEPURL() string {
	return viper.GetString("ep.url")
}

// GetEPTimeout returns the per-request timeout
func GetEPTimeout() time.Duration {
	return viper.GetDuration("ep.timeout")
}

// GetPollInterval returns the wait between progress queries
func GetPollInterval() time.Duration {
	return viper.GetDuration("ep.poll_interval")
}

// GetWorkDir returns the directory searched for test projects
func GetWorkDir() string {
	return viper.GetString("workflow.work_dir")
}

// GetReportDir returns the output directory for reports
func GetReportDir() string {
	return viper.GetString("workflow.report_dir")
}

// GetInitScript returns the model init script used for architecture conversion
func GetInitScript() string {
	return viper.GetString("workflow.init_script")
}

// GetMILConfig returns the execution config name for model-in-the-loop tests
func GetMILConfig() string {
	return viper.GetString("workflow.mil_config")
}

// GetSILConfig returns the execution config name for software-in-the-loop tests
func GetSILConfig() string {
	return viper.GetString("workflow.sil_config")
}

// GetMILReportTemplate returns the report template of the MIL report
func GetMILReportTemplate() string {
	return viper.GetString("workflow.mil_report_template")
}

// GetSILReportTemplate returns the report template of the SIL report
func GetSILReportTemplate() string {
	return viper.GetString("workflow.sil_report_template")
}

// GetTestCaseDir returns the directory with test cases to import, if any
func GetTestCaseDir() string {
	return viper.GetString("workflow.testcase_dir")
}

// GetSubsystem returns the scope name tested on SIL, empty for the toplevel
func GetSubsystem() string {
	return viper.GetString("workflow.subsystem")
}

// GetLogLevel returns the configured log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// Polarion describes the requirements system connection
type Polarion struct {
	URL     string
	Project string
	Query   string
}

// Enabled reports whether requirements are imported and results published
func (p Polarion) Enabled() bool {
	return p.URL != ""
}

// GetPolarion returns the requirements system settings
func GetPolarion() Polarion {
	return Polarion{
		URL:     viper.GetString("polarion.url"),
		Project: viper.GetString("polarion.project"),
		Query:   viper.GetString("polarion.query"),
	}
}

// PolarionCredentials reads the requirements system credentials from the
// environment. They are never stored in the config.
func PolarionCredentials() (user, password string) {
	return os.Getenv(PolarionUserEnv), os.Getenv(PolarionPasswordEnv)
}

// GetHookCommand returns the command line EP runs for hook calls.
// Defaults to the hook subcommand of the running executable.
func GetHookCommand() string {
	if cmd := viper.GetString("hook.command"); cmd != "" {
		return cmd
	}
	return DefaultHookCommand()
}

// DefaultHookCommand returns the hook subcommand of the running executable
func DefaultHookCommand() string {
	exe, err := os.Executable()
	if err != nil {
		exe = "epci"
	}
	return hookCommand(exe)
}

// hookCommand quotes exe for a raw command line; backslashes stay as they are
func hookCommand(exe string) string {
	return `"` + exe + `" hook`
}
