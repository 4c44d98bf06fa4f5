package text

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/roach88/electrooms/internal/domain"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func member(account, name, handle string) domain.ExtendedParticipant {
	return domain.ExtendedParticipant{Participant: domain.Participant{
		AccountName:     account,
		ParticipantName: name,
		TelegramID:      handle,
	}}
}

func TestWelcome_Golden(t *testing.T) {
	c := English()
	g := newGolden(t)

	room := domain.ExtendedRoom{
		Room: domain.Room{Round: 0, Index: 1},
		Members: []domain.ExtendedParticipant{
			member("alice", "Alice", "alice_tg"),
			member("bob", "Jose\u0301", "@bob"),
			member("carol", "", ""),
		},
	}
	g.Assert(t, "welcome_round", []byte(c.Welcome(room, "https://t.me/+abc", false)))

	final := domain.ExtendedRoom{
		Room:    domain.Room{Round: 4, Index: 0},
		Members: []domain.ExtendedParticipant{member("dave", "Dave", "dave_tg")},
	}
	g.Assert(t, "welcome_final", []byte(c.Welcome(final, "", true)))

	empty := domain.ExtendedRoom{Room: domain.Room{Round: 2, Index: 0}}
	g.Assert(t, "welcome_empty", []byte(c.Welcome(empty, "", false)))
}

func TestOperatorAlert_Golden(t *testing.T) {
	c := English()
	alert := c.OperatorAlert(Alert{
		RunID:  "0190a7f2-0000-7000-8000-000000000001",
		Room:   "Eden R1G2 election S5,2026.",
		Step:   "add_members",
		Target: "@alice_tg",
		Err:    errors.New("chat not found"),
	})
	newGolden(t).Assert(t, "operator_alert", []byte(alert))
}

func TestOperatorAlert_WithoutRoom(t *testing.T) {
	alert := English().OperatorAlert(Alert{RunID: "r1", Step: "notify"})
	assert.Equal(t, "Provisioning alert (run r1)\nStep: notify\nTarget: -\nError: unknown error", alert)
}

func TestInvitation(t *testing.T) {
	c := English()
	assert.Contains(t, c.Invitation(0, false), "round 1:")
	assert.Contains(t, c.Invitation(3, false), "round 4:")
	assert.Contains(t, c.Invitation(3, true), "Chief Delegates")
	assert.Equal(t, "Join the group", c.InvitationButton())
	assert.Equal(t, "How to start a video call in this group.", c.PhotoCaption())
}

func TestWelcome_MemberCountPlural(t *testing.T) {
	c := English()
	room := domain.ExtendedRoom{Room: domain.Room{Round: 0, Index: 0}}
	for i := 0; i < 12; i++ {
		room.AddMember(member("m", "", "@handle"))
	}
	assert.Contains(t, c.Welcome(room, "", false), "\n12 participants in this room:\n")
}

func TestNew_Languages(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, language.English, c.Language())

	c, err = New("de-CH")
	require.NoError(t, err)
	assert.Equal(t, language.English, c.Language(), "unsupported languages fall back to English")
	assert.Equal(t, "Join the group", c.InvitationButton())

	_, err = New("not a tag!")
	require.Error(t, err)
}
