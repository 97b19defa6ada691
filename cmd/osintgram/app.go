package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"osintgram/pkg/auth"
	"osintgram/pkg/config"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/geocode"
	"osintgram/pkg/instagram"
	"osintgram/pkg/logger"
	"osintgram/pkg/osint"
	"osintgram/pkg/ratelimit"
	"osintgram/pkg/report"
	"osintgram/pkg/retry"
	"osintgram/pkg/session"
	"osintgram/pkg/sessioncache"
	"osintgram/pkg/ui"
)

// Process exit statuses
const (
	exitOK        = 0
	exitError     = 1
	exitNotFound  = 2
	exitChallenge = 9
)

// errAbandoned marks an operation the user backed out of; it has already
// been reported
var errAbandoned = errors.New("operation abandoned")

// targetError wraps a failure to resolve the requested target
type targetError struct {
	name string
	err  error
}

func (e *targetError) Error() string {
	return fmt.Sprintf("select target %q: %v", e.name, e.err)
}

func (e *targetError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var te *targetError
	switch {
	case err == nil:
		return exitOK
	case errs.IsChallenge(err):
		return exitChallenge
	case errors.As(err, &te), errs.IsNotFound(err):
		return exitNotFound
	default:
		return exitError
	}
}

func challengeURL(err error) string {
	if !errs.IsChallenge(err) {
		return ""
	}
	if url := errs.ChallengeURL(err); url != "" {
		return url
	}
	return "https://www.instagram.com/challenge/"
}

// app is one logged-in session with everything an operation needs
type app struct {
	cfg      *config.Config
	log      logger.Logger
	session  *session.Session
	runner   *osint.Runner
	notifier *ui.Notifier
	prompt   *prompter
	out      io.Writer
}

// loadConfig merges the explicitly set command line flags over the file and
// environment layers
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if cmd.Flags().Changed("file") {
		flags["file"] = writeFile
	}
	if cmd.Flags().Changed("json") {
		flags["json"] = jsonDump
	}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	return config.Load(configFile, flags)
}

// newApp loads configuration, logs in and wires the pipeline. No target is
// selected yet.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	applyStoredAccount(&cfg.Instagram, log)

	client := instagram.NewClient(cfg.Instagram, log.WithField("component", "instagram"),
		instagram.WithRetry(retry.FromConfig(cfg.Retry, log)),
		instagram.WithLimiter(ratelimit.FromConfig(cfg.RateLimit)),
	)

	cache := sessioncache.New(cfg.Output.SessionFile, log)
	sess := session.New(client, cache, cfg.Output, log)

	if clearCookies {
		if err := sess.ClearCache(); err != nil {
			return nil, fmt.Errorf("failed to clear session cache: %w", err)
		}
		ui.PrintSuccess("Cache Cleared.")
	}

	if err := sess.Login(ctx, cfg.Instagram.Username, cfg.Instagram.Password); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return nil, fmt.Errorf("%w: run 'osintgram auth login' or set OSINTGRAM_USERNAME and OSINTGRAM_PASSWORD", err)
		}
		return nil, err
	}

	out := cmd.OutOrStdout()
	reporter := report.New(out, log)
	reporter.SetStyled(ui.ColorEnabled())

	notifier := ui.NewNotifier(cfg.Notifications)
	geo := geocode.NewClient(cfg.Geocode, log)

	runner := osint.NewRunner(client, geo, sess, reporter, log,
		osint.WithFeedLimit(cfg.Instagram.FeedLimit),
		osint.WithProgress(func(noun string) osint.Progress { return ui.NewCounter(cmd.ErrOrStderr(), noun) }),
		osint.WithThrottleHook(notifier.Throttled),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		session:  sess,
		runner:   runner,
		notifier: notifier,
		prompt:   newPrompter(cmd.InOrStdin(), out),
		out:      out,
	}, nil
}

// applyStoredAccount fills missing login details from the credential store.
// Explicit configuration always wins.
func applyStoredAccount(cfg *config.InstagramConfig, log logger.Logger) {
	if cfg.Password != "" || cfg.SessionID != "" {
		return
	}

	manager, err := auth.NewManager("")
	if err != nil {
		log.WithError(err).Debug("credential store unavailable")
		return
	}

	var account *auth.Account
	if cfg.Username != "" {
		account, err = manager.Retrieve(cfg.Username)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		log.WithError(err).Debug("no stored account")
		return
	}

	cfg.Username = account.Username
	cfg.Password = account.Password
	if account.HasCookies() {
		cfg.SessionID = account.SessionID
		cfg.CSRFToken = account.CSRFToken
	}
	log.DebugWithFields("using stored account", map[string]interface{}{"username": account.Username})
}

// selectTarget resolves name, makes it the session target and prints the banner
func (a *app) selectTarget(ctx context.Context, name string) error {
	target, err := a.session.SelectTarget(ctx, name)
	if err != nil {
		return &targetError{name: name, err: err}
	}
	a.banner(target)
	return nil
}

// changeTarget switches targets; the previous one stays selected on failure
func (a *app) changeTarget(ctx context.Context, name string) error {
	target, err := a.session.ChangeTarget(ctx, name)
	if err != nil {
		return &targetError{name: name, err: err}
	}
	a.banner(target)
	return nil
}

func (a *app) banner(target *session.Target) {
	ui.PrintTarget(ui.TargetBanner{
		LoggedInAs: a.session.Username(),
		Target:     target.Username,
		ID:         target.ID,
		Private:    target.IsPrivate,
		Following:  target.Following,
	})
}

// runOperation runs name on the current target. Count prompts, the
// private-profile follow offer and notifications live here so the pipeline
// itself never reads from the terminal.
func (a *app) runOperation(ctx context.Context, name string, interactive bool) error {
	op, ok := osint.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown command %q, run 'help' for the list", name)
	}

	opts := osint.Options{Limit: limit}
	if op.UsesLimit && interactive && limit == 0 && !assumeYes && a.session.Guard() == nil {
		n, proceed, err := a.prompt.askLimit(limitNoun(name))
		if err != nil {
			if errors.Is(err, errInvalidInput) {
				ui.PrintError("Error", err)
				return errAbandoned
			}
			return err
		}
		if !proceed {
			return errAbandoned
		}
		opts.Limit = n
	}

	err := a.runner.Run(ctx, name, opts)
	switch {
	case errors.Is(err, session.ErrPrivateProfile):
		ui.PrintError("Impossible to execute command: user has private profile")
		if ferr := a.offerFollowRequest(ctx); ferr != nil {
			return ferr
		}
		return errAbandoned
	case err != nil:
		return err
	}

	a.notifier.Complete(name, a.session.Target().Username)
	return nil
}

// runSingle runs one operation outside the shell; a failure also raises a
// desktop notification when enabled
func (a *app) runSingle(ctx context.Context, name string, interactive bool) error {
	err := a.runOperation(ctx, name, interactive)
	if err != nil && !errors.Is(err, errAbandoned) {
		a.notifier.SendError(name, err)
	}
	return err
}

func (a *app) offerFollowRequest(ctx context.Context) error {
	send := assumeYes
	if !send {
		var err error
		if send, err = a.prompt.confirm("Do you want send a follow request?"); err != nil {
			return err
		}
	}
	if !send {
		return nil
	}

	if err := a.session.SendFollowRequest(ctx); err != nil {
		return fmt.Errorf("follow request failed: %w", err)
	}
	ui.PrintSuccess("Sent a follow request to target. Use this command after target accepting the request.")
	return nil
}

func limitNoun(operation string) string {
	switch operation {
	case "fwersemail", "fwingsemail":
		return "emails"
	case "fwersnumber", "fwingsnumber":
		return "phone numbers"
	case "photos":
		return "photos"
	default:
		return "results"
	}
}

// stdinIsInteractive reports whether prompts can be answered
func stdinIsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
