package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the terminal binaries.
type Config struct {
	// ListenAddress is the gRPC status API address, also dialed by terminal-monitor.
	ListenAddress string `yaml:"listen_addr"`
	// OpsAddress serves /metrics, /healthz and /state. Empty disables it.
	OpsAddress string `yaml:"ops_addr,omitempty"`
	// Database is the SQLite file holding the access log and security audit.
	Database string `yaml:"database"`
	// DirectoryFile is the YAML file listing known identities.
	DirectoryFile string `yaml:"directory_file"`
	// DirectoryRefresh is how often the directory is reloaded besides file events.
	DirectoryRefresh time.Duration `yaml:"directory_refresh"`
	// FramesDir is the folder replayed as the camera feed.
	FramesDir string `yaml:"frames_dir"`

	// TickInterval is the nominal period between cycle attempts.
	TickInterval time.Duration `yaml:"tick_interval"`
	// CycleDeadline bounds a whole detection cycle.
	CycleDeadline time.Duration `yaml:"cycle_deadline"`
	// SlowCycle is the duration above which a finished cycle is reported as slow.
	SlowCycle time.Duration `yaml:"slow_cycle"`
	// GrantedWindow suppresses cycles after access is granted.
	GrantedWindow time.Duration `yaml:"granted_window"`
	// DeniedWindow suppresses cycles after access is denied.
	DeniedWindow time.Duration `yaml:"denied_window"`
	// EmergencyWindow suppresses cycles after a threat is detected.
	EmergencyWindow time.Duration `yaml:"emergency_window"`

	// WeaponThreshold is the detection score an alert must exceed.
	WeaponThreshold float64 `yaml:"weapon_threshold"`
	// QRPayload selects how decoded QR text is turned into a token: auto, raw or json.
	QRPayload string `yaml:"qr_payload"`
	// FaceDistanceThreshold is the largest descriptor distance accepted as a match.
	FaceDistanceThreshold float64 `yaml:"face_distance_threshold"`
	// AccessPolicy is an expression deciding whether an identified person may pass.
	AccessPolicy string `yaml:"access_policy,omitempty"`

	// InferenceURL is the base URL of the weapon and face inference sidecar.
	InferenceURL string `yaml:"inference_url,omitempty"`
	// InferenceTimeout bounds one sidecar request.
	InferenceTimeout time.Duration `yaml:"inference_timeout"`

	// RedisAddress enables publishing security alerts to Redis when set.
	RedisAddress string `yaml:"redis_addr,omitempty"`
	// RedisChannel is the pub/sub channel for security alerts.
	RedisChannel string `yaml:"redis_channel,omitempty"`
	// OTLPEndpoint enables cycle tracing export when set.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	// AlarmCommand is run on emergency to sound a local siren.
	AlarmCommand []string `yaml:"alarm_command,omitempty"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level,omitempty"`
	// Timeout is the per-call timeout used by gRPC clients.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "access-terminal-settings.yaml"
	// DefaultListenAddress is the default gRPC status API address.
	DefaultListenAddress = "127.0.0.1:50071"
	// DefaultDatabase is the default journal file.
	DefaultDatabase = "access-terminal.db"
	// DefaultDirectoryFile is the default identity directory file.
	DefaultDirectoryFile = "directory.yaml"
	// DefaultFramesDir is the default replay folder.
	DefaultFramesDir = "frames"
	// DefaultRedisChannel is the default channel for security alerts.
	DefaultRedisChannel = "access-terminal:alerts"

	// DefaultTickInterval is the nominal cycle period.
	DefaultTickInterval = time.Second
	// DefaultCycleDeadline bounds one cycle.
	DefaultCycleDeadline = 3 * time.Second
	// DefaultSlowCycle marks cycles worth a diagnostic.
	DefaultSlowCycle = 500 * time.Millisecond
	// DefaultGrantedWindow is the suppression after a grant.
	DefaultGrantedWindow = 5 * time.Second
	// DefaultDeniedWindow is the suppression after a denial.
	DefaultDeniedWindow = 3 * time.Second
	// DefaultEmergencyWindow is the suppression after a threat.
	DefaultEmergencyWindow = 10 * time.Second
	// DefaultDirectoryRefresh is the directory reload period.
	DefaultDirectoryRefresh = 30 * time.Second
	// DefaultInferenceTimeout bounds one sidecar call.
	DefaultInferenceTimeout = 2 * time.Second
	// DefaultTimeout is the default per-call gRPC timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultWeaponThreshold is the alert score; older terminals used 0.25.
	DefaultWeaponThreshold = 0.3
	// DefaultFaceDistanceThreshold is the usual cut-off for 128-d face descriptors.
	DefaultFaceDistanceThreshold = 0.6

	// DefaultFilePermissions is the mode of files written by Save.
	DefaultFilePermissions = 0o600
)

// QR payload conventions.
const (
	// QRPayloadAuto tries a JSON envelope first and falls back to the raw text.
	QRPayloadAuto = "auto"
	// QRPayloadRaw uses the decoded text as the identity id.
	QRPayloadRaw = "raw"
	// QRPayloadJSON requires a JSON envelope.
	QRPayloadJSON = "json"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBadThreshold is returned for a weapon threshold outside (0, 1].
	errBadThreshold = errors.New("weapon threshold must be within (0, 1]")
	// errBadFaceThreshold is returned for a non-positive face distance threshold.
	errBadFaceThreshold = errors.New("face distance threshold must be positive")
	// errBadQRPayload is returned for an unknown QR payload mode.
	errBadQRPayload = errors.New("qr payload must be auto, raw or json")
	// errWindowTooShort is returned when a suppression window is negative.
	errWindowTooShort = errors.New("suppression windows must not be negative")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save validates cfg and writes it to path atomically.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := renameio.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks formatting of the provided settings.
//
//nolint:cyclop,funlen // A flat list of field checks reads best.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.OpsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.OpsAddress); err != nil {
			return fmt.Errorf("invalid ops address: %w", err)
		}
	}

	setDefault(&cfg.Database, DefaultDatabase)
	setDefault(&cfg.DirectoryFile, DefaultDirectoryFile)
	setDefault(&cfg.FramesDir, DefaultFramesDir)
	setDefault(&cfg.QRPayload, QRPayloadAuto)

	setDefaultDuration(&cfg.DirectoryRefresh, DefaultDirectoryRefresh)
	setDefaultDuration(&cfg.TickInterval, DefaultTickInterval)
	setDefaultDuration(&cfg.CycleDeadline, DefaultCycleDeadline)
	setDefaultDuration(&cfg.SlowCycle, DefaultSlowCycle)
	setDefaultDuration(&cfg.InferenceTimeout, DefaultInferenceTimeout)
	setDefaultDuration(&cfg.Timeout, DefaultTimeout)

	if cfg.GrantedWindow < 0 || cfg.DeniedWindow < 0 || cfg.EmergencyWindow < 0 {
		return errWindowTooShort
	}

	setDefaultDuration(&cfg.GrantedWindow, DefaultGrantedWindow)
	setDefaultDuration(&cfg.DeniedWindow, DefaultDeniedWindow)
	setDefaultDuration(&cfg.EmergencyWindow, DefaultEmergencyWindow)

	if cfg.WeaponThreshold == 0 {
		cfg.WeaponThreshold = DefaultWeaponThreshold
	}

	if cfg.WeaponThreshold < 0 || cfg.WeaponThreshold > 1 {
		return fmt.Errorf("%w: %v", errBadThreshold, cfg.WeaponThreshold)
	}

	if cfg.FaceDistanceThreshold == 0 {
		cfg.FaceDistanceThreshold = DefaultFaceDistanceThreshold
	}

	if cfg.FaceDistanceThreshold < 0 {
		return errBadFaceThreshold
	}

	switch cfg.QRPayload {
	case QRPayloadAuto, QRPayloadRaw, QRPayloadJSON:
	default:
		return fmt.Errorf("%w: %q", errBadQRPayload, cfg.QRPayload)
	}

	if cfg.RedisAddress != "" {
		setDefault(&cfg.RedisChannel, DefaultRedisChannel)
	}

	if cfg.InferenceURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.InferenceURL); err != nil {
		return fmt.Errorf("invalid inference URL: %w", err)
	}

	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setDefaultDuration(field *time.Duration, value time.Duration) {
	if *field <= 0 {
		*field = value
	}
}
