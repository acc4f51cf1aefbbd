package rowmodel

import (
	"strings"

	"github.com/bekirdag/keydash/internal/identity"
)

type MemberRow struct {
	Member identity.Member
}

func NewMemberRow(member identity.Member) MemberRow {
	return MemberRow{Member: member}
}

func NewMemberRows(members []identity.Member) []MemberRow {
	rows := make([]MemberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, NewMemberRow(m))
	}
	return rows
}

// ID keys the row by user so dispatchers survive a membership re-fetch.
func (r MemberRow) ID() string {
	if r.Member.UserID != "" {
		return r.Member.UserID
	}
	return r.Member.ID
}

func (r MemberRow) UserID() string { return r.Member.UserID }

func (r MemberRow) DisplayName() string {
	name := strings.TrimSpace(r.Member.FirstName + " " + r.Member.LastName)
	if name == "" {
		return r.Member.Identifier
	}
	return name
}

func (r MemberRow) Identifier() string { return r.Member.Identifier }

func (r MemberRow) Initials() string {
	runes := []rune(r.Member.Identifier)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

func (r MemberRow) Role() identity.Role { return r.Member.Role }

func (r MemberRow) FilterText() string {
	return r.DisplayName() + " " + r.Member.Identifier
}

type InvitationRow struct {
	Invitation identity.Invitation
}

func NewInvitationRow(inv identity.Invitation) InvitationRow {
	return InvitationRow{Invitation: inv}
}

func NewInvitationRows(invs []identity.Invitation) []InvitationRow {
	rows := make([]InvitationRow, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, NewInvitationRow(inv))
	}
	return rows
}

func (r InvitationRow) ID() string    { return r.Invitation.ID }
func (r InvitationRow) Email() string { return r.Invitation.EmailAddress }

func (r InvitationRow) Status() identity.InvitationStatus { return r.Invitation.Status }

func (r InvitationRow) Revocable() bool {
	return r.Invitation.Status == identity.InvitationPending
}

func (r InvitationRow) FilterText() string { return r.Invitation.EmailAddress }

// StatusBadge maps an invitation status to its badge label. Only pending
// invitations get the primary badge. Unknown statuses have no badge.
func StatusBadge(status identity.InvitationStatus) (label string, primary bool, ok bool) {
	switch status {
	case identity.InvitationPending:
		return "Pending", true, true
	case identity.InvitationAccepted:
		return "Accepted", false, true
	case identity.InvitationRevoked:
		return "Revoked", false, true
	}
	return "", false, false
}
