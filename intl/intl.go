// Package intl provides locale-aware formatting of the diagnostic strings
// produced by the core's error types. It is the only place in the module
// that deals with human language; callers format once and keep the result
// as a plain string.
package intl

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("xr32: intl: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From formats an en-US Sprintf-style reference string into the
// process locale.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
