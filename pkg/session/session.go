package session

import (
	"context"
	"errors"
	"fmt"

	"osintgram/pkg/config"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/instagram"
	"osintgram/pkg/logger"
	"osintgram/pkg/record"
	"osintgram/pkg/report"
	"osintgram/pkg/storage"
)

// State is the lifecycle position of a session
type State int

const (
	Unauthenticated State = iota
	Authenticated
	TargetSelected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case TargetSelected:
		return "target selected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrPrivateProfile is returned by Guard for a private target the caller does not follow
	ErrPrivateProfile = errors.New("target has a private profile and is not followed")
	// ErrNotAuthenticated is returned when an action needs a login first
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrNoTarget is returned when an action needs a selected target
	ErrNoTarget = errors.New("no target selected")
)

// API is the part of the Instagram client a session drives
type API interface {
	Login(ctx context.Context, username, password string) (*instagram.Session, error)
	Session() *instagram.Session
	UseSession(s *instagram.Session)
	ResolveUser(ctx context.Context, username string) (record.Record, error)
	Friendship(ctx context.Context, userID string) (record.Record, error)
	Follow(ctx context.Context, userID string) error
}

// Cache persists login sessions between runs
type Cache interface {
	Load() (*instagram.Session, error)
	Save(s *instagram.Session) error
	Clear() error
}

// Target is the account under investigation
type Target struct {
	Username  string
	ID        string
	FullName  string
	IsPrivate bool
	// Following is true when the logged-in account follows the target
	Following bool
	Profile   record.Record
}

// Session is the per-run state machine:
// Unauthenticated -> Authenticated -> TargetSelected.
type Session struct {
	api    API
	cache  Cache
	logger logger.Logger

	baseDir string
	export  report.ExportTarget

	state  State
	target *Target
}

// New creates an unauthenticated session. cache may be nil.
func New(api API, cache Cache, cfg config.OutputConfig, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		api:     api,
		cache:   cache,
		logger:  log.WithField("component", "session"),
		baseDir: cfg.BaseDirectory,
		export:  report.ExportTarget{ToConsole: true, ToText: cfg.WriteFile, ToJSON: cfg.JSONDump, OutputDirectory: cfg.BaseDirectory},
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// Target returns the selected target, or nil
func (s *Session) Target() *Target {
	return s.target
}

// Username returns the logged-in account name
func (s *Session) Username() string {
	if sess := s.api.Session(); sess != nil {
		return sess.Username
	}
	return ""
}

// Export returns the export settings for the current target
func (s *Session) Export() report.ExportTarget {
	return s.export
}

// SetTextExport toggles text file export for later operations
func (s *Session) SetTextExport(on bool) {
	s.export = s.export.WithText(on)
}

// SetJSONExport toggles JSON export for later operations
func (s *Session) SetJSONExport(on bool) {
	s.export = s.export.WithJSON(on)
}

// Login authenticates the caller. A cached session for the same account (or
// a session already carried by the client) is reused without contacting the
// platform. Fresh sessions are written back to the cache.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if s.state != Unauthenticated {
		return nil
	}

	if cached := s.cachedSession(username); cached != nil {
		s.api.UseSession(cached)
		s.state = Authenticated
		s.logger.DebugWithFields("reusing cached session", map[string]interface{}{"username": cached.Username})
		return nil
	}

	if username == "" || password == "" {
		if current := s.api.Session(); current.Valid() {
			s.state = Authenticated
			return nil
		}
		return fmt.Errorf("%w: credentials required", ErrNotAuthenticated)
	}

	sess, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s.state = Authenticated

	if s.cache != nil {
		if err := s.cache.Save(sess); err != nil {
			s.logger.WithError(err).Warn("failed to cache session")
		}
	}
	return nil
}

func (s *Session) cachedSession(username string) *instagram.Session {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Load()
	if err != nil {
		s.logger.WithError(err).Warn("ignoring unreadable session cache")
		return nil
	}
	if cached == nil || (username != "" && cached.Username != username) {
		return nil
	}
	return cached
}

// ClearCache empties the persisted session
func (s *Session) ClearCache() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear()
}

// SelectTarget resolves username and makes it the session target. Its output
// directory is created and, with text export on, the numeric id is written
// to "<target>_user_id.txt".
func (s *Session) SelectTarget(ctx context.Context, username string) (*Target, error) {
	if s.state == Unauthenticated {
		return nil, ErrNotAuthenticated
	}

	username = instagram.SanitizeUsername(username)
	if !instagram.IsValidUsername(username) {
		return nil, errs.New(errs.ErrorTypeNotFound, 404, "invalid username %q", username)
	}

	target, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	export := s.export.ForTarget(s.baseDir, target.Username)
	store, err := storage.NewManager(export.OutputDirectory)
	if err != nil {
		return nil, err
	}
	if export.ToText {
		path, err := store.WriteFile(export.FileName("user_id", "txt"), []byte(target.ID))
		logger.LogExport(s.logger, "text", path, err)
	}

	s.target = target
	s.export = export
	s.state = TargetSelected

	s.logger.InfoWithFields("target selected", map[string]interface{}{
		"target":    target.Username,
		"id":        target.ID,
		"private":   target.IsPrivate,
		"following": target.Following,
	})
	return target, nil
}

// ChangeTarget switches to another account. Authentication is kept, and on
// failure the previous target stays selected.
func (s *Session) ChangeTarget(ctx context.Context, username string) (*Target, error) {
	return s.SelectTarget(ctx, username)
}

func (s *Session) resolve(ctx context.Context, username string) (*Target, error) {
	profile, err := s.api.ResolveUser(ctx, username)
	if err != nil {
		return nil, err
	}

	id, ok := profile.String("id")
	if !ok {
		return nil, record.MissingField("id")
	}

	t := &Target{
		Username: profile.StringOr("username", username),
		ID:       id,
		FullName: profile.StringOr("full_name", ""),
		Profile:  profile,
	}
	t.IsPrivate, _ = profile.Bool("is_private")

	if following, ok := profile.Bool("followed_by_viewer"); ok {
		t.Following = following
	} else if t.IsPrivate {
		rel, err := s.api.Friendship(ctx, id)
		if err != nil {
			return nil, err
		}
		t.Following, _ = rel.Bool("following")
	}
	return t, nil
}

// Guard returns ErrPrivateProfile when the target is private and not
// followed. It never contacts the platform.
func (s *Session) Guard() error {
	if s.state != TargetSelected || s.target == nil {
		return ErrNoTarget
	}
	if s.target.IsPrivate && !s.target.Following {
		return ErrPrivateProfile
	}
	return nil
}

// SendFollowRequest asks to follow the current target
func (s *Session) SendFollowRequest(ctx context.Context) error {
	if s.target == nil {
		return ErrNoTarget
	}
	if err := s.api.Follow(ctx, s.target.ID); err != nil {
		return err
	}
	s.logger.InfoWithFields("follow request sent", map[string]interface{}{"target": s.target.Username})
	return nil
}
