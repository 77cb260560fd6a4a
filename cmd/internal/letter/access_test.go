package letter

import (
	"testing"

	"letterbox/cmd/internal/apperr"

	"github.com/stretchr/testify/require"
)

const (
	ownerID    = "0190f5a4-7b7e-7c3a-9c1e-2f4b5d6e7f80"
	strangerID = "0190f5a4-7b7e-7c3a-9c1e-2f4b5d6e7f81"
	guestTok   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	otherTok   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func userLetter(public bool) Letter {
	return Letter{ID: "l1", IsPublic: public, Owner: UserOwner(ownerID)}
}

func guestLetter(public bool) Letter {
	return Letter{ID: "l2", IsPublic: public, Owner: Owner{GuestID: "g", GuestToken: guestTok}}
}

func TestDecide_Read(t *testing.T) {
	cases := []struct {
		name string
		l    Letter
		p    Principal
		want Decision
	}{
		{"public anon counts", userLetter(true), Anonymous(), AllowAndCount},
		{"public stranger counts", userLetter(true), User(strangerID), AllowAndCount},
		{"public owner no count", userLetter(true), User(ownerID), Allow},
		{"public guest letter counts", guestLetter(true), Anonymous(), AllowAndCount},
		{"private owner", userLetter(false), User(ownerID), Allow},
		{"private anon", userLetter(false), Anonymous(), Deny},
		{"private stranger", userLetter(false), User(strangerID), Deny},
		{"private guest letter anon", guestLetter(false), Anonymous(), Deny},
		{"private guest letter token holder", guestLetter(false), Guest(guestTok), Deny},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Decide(ActionRead, tc.l, tc.p))
		})
	}
}

func TestDecide_ReadOwn(t *testing.T) {
	require.Equal(t, Allow, Decide(ActionReadOwn, userLetter(false), User(ownerID)))
	require.Equal(t, Allow, Decide(ActionReadOwn, userLetter(true), User(ownerID)))
	require.Equal(t, Deny, Decide(ActionReadOwn, userLetter(true), User(strangerID)))
	require.Equal(t, Deny, Decide(ActionReadOwn, guestLetter(true), Anonymous()))
}

func TestDecide_Mutate(t *testing.T) {
	cases := []struct {
		name string
		l    Letter
		p    Principal
		want Decision
	}{
		{"owner", userLetter(true), User(ownerID), Allow},
		{"stranger", userLetter(true), User(strangerID), Deny},
		{"anon", userLetter(true), Anonymous(), Deny},
		{"guest correct token", guestLetter(false), Guest(guestTok), Allow},
		{"guest wrong token", guestLetter(false), Guest(otherTok), Deny},
		{"guest token on user letter", userLetter(true), Guest(guestTok), Deny},
		{"user on guest letter", guestLetter(true), User(ownerID), Deny},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Decide(ActionMutate, tc.l, tc.p))
		})
	}
}

func TestAuthorize_Messages(t *testing.T) {
	count, err := Authorize("op", ActionRead, userLetter(true), Anonymous())
	require.NoError(t, err)
	require.True(t, count)

	_, err = Authorize("op", ActionRead, userLetter(false), Anonymous())
	require.True(t, apperr.IsForbidden(err))
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, MsgForbidden, ae.Msg)

	_, err = Authorize("op", ActionMutate, guestLetter(true), Guest(otherTok))
	ae, ok = apperr.As(err)
	require.True(t, ok)
	require.Equal(t, MsgInvalidGuestToken, ae.Msg)

	_, err = Authorize("op", ActionMutate, userLetter(true), Guest(guestTok))
	ae, ok = apperr.As(err)
	require.True(t, ok)
	require.Equal(t, MsgInvalidGuestToken, ae.Msg)
}
