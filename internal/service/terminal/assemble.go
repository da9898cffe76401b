package terminal

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/detector"
	"github.com/oshokin/access-terminal/internal/detector/face"
	"github.com/oshokin/access-terminal/internal/detector/qr"
	"github.com/oshokin/access-terminal/internal/detector/remote"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/policy"
	"github.com/oshokin/access-terminal/internal/repository/alerts"
	repository "github.com/oshokin/access-terminal/internal/repository/directory"
	"github.com/oshokin/access-terminal/internal/repository/journal"
	"github.com/oshokin/access-terminal/internal/service/alarm"
	"github.com/oshokin/access-terminal/internal/service/common"
	"github.com/oshokin/access-terminal/internal/service/directory"
	"github.com/oshokin/access-terminal/internal/service/recognition"
)

// Terminal is a fully wired terminal, ready to run.
type Terminal struct {
	// Scheduler drives recognition cycles.
	Scheduler *recognition.Scheduler
	// Snapshot is the directory seen by cycles.
	Snapshot *directory.Snapshot
	// Refresher keeps Snapshot current.
	Refresher *directory.Refresher
	// Journal stores the access log and security audit.
	Journal *journal.Store
	// Alerts publishes security alerts; nil when Redis is not configured.
	Alerts *alerts.Publisher

	// settings is the validated configuration.
	settings *config.Config
}

// Deps overrides components that Assemble otherwise builds from settings.
type Deps struct {
	// Source replaces the replay folder.
	Source frame.Source
	// Threats replaces the inference sidecar weapon detector.
	Threats detector.ThreatDetector
	// Faces replaces the inference sidecar face matcher.
	Faces detector.FaceMatcher
	// OnEmergency replaces the siren.
	OnEmergency recognition.EmergencyHook
}

// Assemble builds a terminal from settings. The caller must Close it.
//
//nolint:funlen // Linear wiring of every component.
func Assemble(ctx context.Context, settings *config.Config, deps Deps) (*Terminal, error) {
	store, err := journal.Open(ctx, settings.Database)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	t := &Terminal{
		Journal:  store,
		settings: settings,
	}

	audit := recognition.AuditSinks{journal.NewAuditLog(store)}

	if settings.RedisAddress != "" {
		t.Alerts, err = alerts.Connect(ctx, settings.RedisAddress, settings.RedisChannel)
		if err != nil {
			_ = t.Close()

			return nil, fmt.Errorf("connect alerts: %w", err)
		}

		audit = append(audit, t.Alerts)
	}

	repo := repository.NewFileRepository(settings.DirectoryFile)

	identities, err := repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		logger.WarnKV(ctx, "Directory file not found, starting empty", "path", repo.Path())
	default:
		_ = t.Close()

		return nil, fmt.Errorf("load directory: %w", err)
	}

	t.Snapshot = directory.NewSnapshot(identities)
	t.Refresher = directory.NewRefresher(t.Snapshot, repo, repo.Path(), settings.DirectoryRefresh)

	accessPolicy, err := policy.Compile(settings.AccessPolicy)
	if err != nil {
		_ = t.Close()

		return nil, fmt.Errorf("compile access policy: %w", err)
	}

	threats, faces, err := detectors(settings, deps)
	if err != nil {
		_ = t.Close()

		return nil, err
	}

	source := deps.Source
	if source == nil {
		source = frame.NewReplaySource(settings.FramesDir)
	}

	onEmergency := deps.OnEmergency
	if onEmergency == nil {
		onEmergency = alarm.NewSiren(settings.AlarmCommand).Hook()
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.Warnf(ctx, "Unable to detect host name: %v", err)

		actor = common.SystemUser
	}

	executor := recognition.NewExecutor(recognition.ExecutorOptions{
		QR:              qr.NewDecoder(),
		Threats:         threats,
		Faces:           faces,
		Directory:       t.Snapshot,
		WeaponThreshold: settings.WeaponThreshold,
		QRPayload:       settings.QRPayload,
		Deadline:        settings.CycleDeadline,
	})

	t.Scheduler, err = recognition.NewScheduler(&recognition.Options{
		Source:    source,
		Runner:    executor,
		Directory: t.Snapshot,
		Rules: access.Rules{
			Policy: accessPolicy,
			Windows: access.Windows{
				Granted:   settings.GrantedWindow,
				Denied:    settings.DeniedWindow,
				Emergency: settings.EmergencyWindow,
			},
			AuditUser: actor,
		},
		AccessLog:   journal.NewAccessLog(store),
		Audit:       audit,
		Interval:    settings.TickInterval,
		SlowCycle:   settings.SlowCycle,
		OnEmergency: onEmergency,
	})
	if err != nil {
		_ = t.Close()

		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	logger.InfoKV(ctx, "Terminal assembled",
		"identities", t.Snapshot.Len(),
		"policy", accessPolicy.String(),
		"audit_user", actor,
		"inference", settings.InferenceURL != "")

	return t, nil
}

// detectors picks the weapon and face stages. Without an inference sidecar
// both stages are disabled and only QR tokens are recognized.
func detectors(settings *config.Config, deps Deps) (detector.ThreatDetector, detector.FaceMatcher, error) {
	var (
		threats detector.ThreatDetector = detector.Disabled{}
		faces   detector.FaceMatcher    = detector.Disabled{}
	)

	if settings.InferenceURL != "" {
		client, err := remote.NewClient(settings.InferenceURL, settings.InferenceTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("create inference client: %w", err)
		}

		threats = client
		faces = face.NewMatcher(client, settings.FaceDistanceThreshold)
	}

	if deps.Threats != nil {
		threats = deps.Threats
	}

	if deps.Faces != nil {
		faces = deps.Faces
	}

	return threats, faces, nil
}

// Settings returns the configuration the terminal was built from.
func (t *Terminal) Settings() *config.Config {
	return t.settings
}

// Close releases the journal and the alert connection.
func (t *Terminal) Close() error {
	var errs []error

	if t.Alerts != nil {
		errs = append(errs, t.Alerts.Close())
	}

	if t.Journal != nil {
		errs = append(errs, t.Journal.Close())
	}

	return errors.Join(errs...)
}
