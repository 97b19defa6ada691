package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"osintgram/pkg/auth"
	"osintgram/pkg/instagram"
	"osintgram/pkg/logger"
	"osintgram/pkg/ratelimit"
	"osintgram/pkg/retry"
	"osintgram/pkg/sessioncache"
	"osintgram/pkg/ui"
)

var (
	useCookies bool
	showGuide  bool
	skipVerify bool
	logoutAll  bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Instagram account osintgram logs in with",
	Long: `Store, remove and list the credentials of your own Instagram account.

Credentials are kept in the system keychain when available and in an
encrypted file under the user configuration directory otherwise.
OSINTGRAM_USERNAME and OSINTGRAM_PASSWORD take precedence when set.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store credentials for an account",
	Long: `Store credentials for an account.

By default you are asked for the password, which is checked against Instagram
before it is stored; the resulting session is cached so later runs do not log
in again. With --cookies you paste the sessionid and csrftoken cookies of a
browser session instead, useful when password login keeps hitting a challenge.`,
	Example: `  osintgram auth login myaccount
  osintgram auth login myaccount --cookies --guide`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd)

	loginCmd.Flags().BoolVar(&useCookies, "cookies", false, "store browser session cookies instead of a password")
	loginCmd.Flags().BoolVar(&showGuide, "guide", false, "show how to copy the session cookies from a browser")
	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store the password without logging in first")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	account := &auth.Account{}
	if len(args) > 0 {
		account.Username = args[0]
	} else if account.Username, err = p.line("Instagram username: "); err != nil {
		return err
	}
	account.Username = instagram.SanitizeUsername(account.Username)
	if account.Username == "" {
		return errors.New("username is required")
	}

	if useCookies {
		if showGuide {
			auth.WriteCookieGuide(cmd.OutOrStdout())
		} else {
			ui.PrintInfo("Cookies", auth.QuickCookieGuide)
		}
		if account.SessionID, err = p.line("sessionid: "); err != nil {
			return err
		}
		if account.CSRFToken, err = p.line("csrftoken: "); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		if account.Password, err = readPassword(p); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if account.Password == "" {
			return errors.New("password is required")
		}
		if !skipVerify {
			if err := verifyLogin(cmd, account); err != nil {
				return err
			}
		}
	}

	if err := manager.Store(account); err != nil {
		return err
	}
	ui.PrintSuccess("Account saved: " + account.Username)
	return nil
}

// verifyLogin logs in with the account, caches the resulting session and
// keeps its cookies on the account
func verifyLogin(cmd *cobra.Command, account *auth.Account) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()

	client := instagram.NewClient(cfg.Instagram, log,
		instagram.WithRetry(retry.FromConfig(cfg.Retry, log)),
		instagram.WithLimiter(ratelimit.FromConfig(cfg.RateLimit)),
	)
	sess, err := client.Login(cmd.Context(), account.Username, account.Password)
	if err != nil {
		return err
	}

	account.SessionID = sess.SessionID
	account.CSRFToken = sess.CSRFToken
	if err := sessioncache.New(cfg.Output.SessionFile, log).Save(sess); err != nil {
		log.WithError(err).Warn("failed to cache session")
	}
	ui.PrintSuccess("Logged in as " + account.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			return err
		}
		clearCachedSession(cmd, "")
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		switch len(accounts) {
		case 0:
			ui.PrintWarning("No stored accounts")
			return nil
		case 1:
			username = accounts[0].Username
		default:
			return errors.New("several accounts stored, name the one to remove or use --all")
		}

		ok, err := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).confirm(fmt.Sprintf("Remove account '%s'?", username))
		if err != nil || !ok {
			return err
		}
	}

	if err := manager.Delete(username); err != nil {
		return err
	}
	clearCachedSession(cmd, username)
	ui.PrintSuccess("Account removed: " + username)
	return nil
}

// clearCachedSession empties the session cache when it belongs to username,
// or unconditionally for an empty username
func clearCachedSession(cmd *cobra.Command, username string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return
	}
	cache := sessioncache.New(cfg.Output.SessionFile, logger.NewNopLogger())
	cached, err := cache.Load()
	if err != nil || cached == nil {
		return
	}
	if username == "" || cached.Username == username {
		_ = cache.Clear()
	}
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'osintgram auth login' to add one")
		return nil
	}

	out := cmd.OutOrStdout()
	ui.PrintHighlight("Stored accounts")
	for i, account := range accounts {
		masked := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. %s\n", i+1, masked.Username)
		if masked.Password != "" {
			fmt.Fprintf(out, "   Password:   %s\n", masked.Password)
		}
		if masked.SessionID != "" {
			fmt.Fprintf(out, "   Session ID: %s\n", masked.SessionID)
			fmt.Fprintf(out, "   CSRF Token: %s\n", masked.CSRFToken)
		}
		fmt.Fprintf(out, "   Modified:   %s\n", masked.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// readPassword reads a password without echo on a terminal, or a plain line
// from p otherwise
func readPassword(p *prompter) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	input, err := p.in.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimRight(input, "\r\n"), nil
}
