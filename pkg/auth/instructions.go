package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy the sessionid and csrftoken cookies out
// of a logged-in browser, for accounts where password login hits a challenge
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"INSTAGRAM SESSION COOKIES",
		rule,
		"",
		"1. Log in at https://www.instagram.com in your browser.",
		"2. Open the developer tools (F12, or Cmd+Option+I on macOS).",
		"3. Chrome/Edge: Application > Cookies. Firefox: Storage > Cookies.",
		"4. Select https://www.instagram.com and copy these values:",
		"",
		"   sessionid   long string containing %3A, e.g. 12345678%3Aabcdef...",
		"   csrftoken   32 characters, e.g. YTQHujAgMhyveLvvuwCfw9CPI8ROAHoy",
		"",
		"Copy the whole value without quotes or semicolons. Cookies expire, so",
		"repeat this when commands start failing with authentication errors.",
		"",
		"These cookies give full access to the account. Never share them.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// QuickCookieGuide is the one-line reminder shown next to the cookie prompts
const QuickCookieGuide = "F12 > Application/Storage > Cookies > instagram.com: copy sessionid and csrftoken"
