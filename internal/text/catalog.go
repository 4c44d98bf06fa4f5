// Package text renders the user-facing messages sent while provisioning
// rooms. Strings live in a golang.org/x/text message catalog keyed by
// message ID; English is the only bundled language and the fallback.
package text

import (
	"fmt"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message IDs.
const (
	keyInvitation          = "invitation"
	keyInvitationFinal     = "invitation.final"
	keyInvitationButton    = "invitation.button"
	keyWelcomeTitle        = "welcome.title"
	keyWelcomeTitleFinal   = "welcome.title.final"
	keyWelcomeLink         = "welcome.link"
	keyWelcomeMembers      = "welcome.members"
	keyWelcomeNoHandle     = "welcome.no_handle"
	keyPhotoCaption        = "photo.caption"
	keyOperatorAlert       = "operator.alert"
	keyOperatorAlertNoRoom = "operator.alert.no_room"
)

var builder = newBuilder()

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	en := language.English

	must(b.SetString(en, keyInvitation,
		"Eden election, round %d: your group is ready. Use the button below to join it. "+
			"The link stops working once a newer one is issued."))
	must(b.SetString(en, keyInvitationFinal,
		"Eden election: the Chief Delegates group is ready. Use the button below to join it."))
	must(b.SetString(en, keyInvitationButton, "Join the group"))

	must(b.SetString(en, keyWelcomeTitle, "Welcome to Eden election round %d, group %d."))
	must(b.SetString(en, keyWelcomeTitleFinal, "Welcome to the Eden Chief Delegates group."))
	must(b.SetString(en, keyWelcomeLink, "Invitation link: %s"))
	must(b.Set(en, keyWelcomeMembers, plural.Selectf(1, "%d",
		"=0", "No participants were allocated to this room.",
		plural.One, "One participant in this room:",
		plural.Other, "%[1]d participants in this room:",
	)))
	must(b.SetString(en, keyWelcomeNoHandle, "no handle"))

	must(b.SetString(en, keyPhotoCaption, "How to start a video call in this group."))

	must(b.SetString(en, keyOperatorAlert, "Provisioning alert (run %s)\nRoom: %s\nStep: %s\nTarget: %s\nError: %s"))
	must(b.SetString(en, keyOperatorAlertNoRoom, "Provisioning alert (run %s)\nStep: %s\nTarget: %s\nError: %s"))
	return b
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("text: catalog: %v", err))
	}
}

// Catalog renders messages in one language.
type Catalog struct {
	tag language.Tag
	p   *message.Printer
}

// New returns a Catalog for the BCP 47 language tag lang, falling back to
// English when the language has no translations. An empty lang means
// English.
func New(lang string) (*Catalog, error) {
	tag := language.English
	if lang != "" {
		requested, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("text: language %q: %w", lang, err)
		}
		matcher := language.NewMatcher(builder.Languages())
		_, i, _ := matcher.Match(requested)
		tag = builder.Languages()[i]
	}
	return &Catalog{tag: tag, p: message.NewPrinter(tag, message.Catalog(builder))}, nil
}

// English returns the English catalog.
func English() *Catalog {
	c, _ := New("")
	return c
}

// Language returns the tag messages are rendered in.
func (c *Catalog) Language() language.Tag {
	return c.tag
}
