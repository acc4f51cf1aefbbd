package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/keydash/internal/config"
	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/keyservice"
	"github.com/bekirdag/keydash/internal/logging"
	"github.com/bekirdag/keydash/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: user config dir)")
	backend := flag.String("backend", "", "Backend override: http or local")
	theme := flag.String("theme", "", "Color theme: dark or light")
	flag.Parse()

	if err := run(*configPath, *backend, *theme); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, backend, theme string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if theme != "" {
		cfg.Theme = theme
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setMarkdownTheme(markdownThemeFromString(cfg.Theme))

	log, closeLog, err := logging.NewFile("keydash", cfg.LogEnv, cfg.LogPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	b, err := openBackends(cfg)
	if err != nil {
		log.Errorw("backend setup failed", "backend", cfg.Backend, "error", err)
		return err
	}
	defer func() { _ = b.close() }()

	log = log.WithFields(map[string]interface{}{
		"user_id":         b.session.UserID,
		"organization_id": b.session.OrganizationID,
	})
	log.Infow("starting dashboard", "backend", cfg.Backend)

	dir := config.Dir()
	ui, uiPath := loadUIConfig(dir)
	telemetry := newTelemetryLogger(
		filepath.Join(dir, "audit.ndjson"),
		newTelemetrySessionID(),
		resolveTelemetryUserID(b.session.UserID),
		b.session.OrganizationID,
	)

	m := newModel(modelDeps{
		provider:  b.provider,
		keys:      b.keys,
		session:   b.session,
		cfg:       cfg,
		log:       log,
		telemetry: telemetry,
		ui:        ui,
		uiPath:    uiPath,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	log.Infow("dashboard closed")
	return nil
}

type backends struct {
	provider identity.Provider
	keys     keyservice.Service
	session  identity.Session
	close    func() error
}

func openBackends(cfg config.Config) (*backends, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		session, err := identity.ParseSession(cfg.SessionToken, cfg.SessionSecret)
		if err != nil {
			return nil, err
		}
		orgID := session.OrganizationID
		if orgID == "" {
			orgID = cfg.OrganizationID
		}
		provider, err := identity.NewHTTPProvider(cfg.IdentityURL, orgID, cfg.APIToken)
		if err != nil {
			return nil, err
		}
		keys, err := keyservice.NewHTTPService(cfg.KeyServiceURL, cfg.SessionToken, nil)
		if err != nil {
			return nil, err
		}
		return &backends{provider: provider, keys: keys, session: session, close: func() error { return nil }}, nil

	case config.BackendLocal:
		s, err := store.Open(cfg.DatabasePath, cfg.OrganizationID)
		if err != nil {
			return nil, err
		}
		session, err := localSession(s, cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return &backends{provider: s, keys: s, session: session, close: s.Close}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// localSession uses the session token when one is configured, otherwise the
// configured local user with the role the store has on record.
func localSession(s *store.Store, cfg config.Config) (identity.Session, error) {
	if cfg.SessionToken != "" {
		return identity.ParseSession(cfg.SessionToken, cfg.SessionSecret)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session := identity.Session{UserID: cfg.LocalUserID, OrganizationID: cfg.OrganizationID}
	role, err := s.MemberRole(ctx, cfg.LocalUserID)
	switch {
	case err == nil:
		session.OrgRole = role
	case errors.Is(err, identity.ErrNotFound):
		// Not a member: keys still work, team actions stay read-only.
	default:
		return identity.Session{}, err
	}
	return session, nil
}
