package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"osintgram/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("Osintgram").Show($toast)
	`, title, message)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

// Notifier tells the user about throttling and finished operations
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
}

// NewNotifier creates a Notifier for the current platform. Desktop
// notifications are only sent when enabled in cfg; console messages are
// always printed.
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender
	if cfg.Enabled {
		sender = platformSender()
	}
	return NewNotifierWithSender(cfg, sender)
}

// NewNotifierWithSender creates a Notifier delivering through sender; nil
// disables desktop notifications
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, cfg: cfg}
}

func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Throttled reports that an operation stopped early with partial results
func (n *Notifier) Throttled(operation string, collected int) {
	msg := fmt.Sprintf("%s stopped after %d results, Instagram is throttling requests", operation, collected)
	fmt.Fprintf(Output, "%s: %s\n", Yellow("Throttled"), Yellow(msg))
	if n.cfg.OnThrottled {
		n.send("Osintgram throttled", msg)
	}
}

// Complete reports a finished operation
func (n *Notifier) Complete(operation, target string) {
	if n.cfg.OnComplete {
		n.send("Osintgram", fmt.Sprintf("%s on %s completed", operation, target))
	}
}

// SendError forwards a failed operation as a desktop notification. The
// console message is left to the caller.
func (n *Notifier) SendError(operation string, err error) {
	if n.cfg.OnError {
		n.send("Osintgram error", fmt.Sprintf("%s failed: %v", operation, err))
	}
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
