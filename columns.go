package main

import (
	"github.com/bekirdag/keydash/internal/dispatch"
	"github.com/bekirdag/keydash/internal/grid"
	"github.com/bekirdag/keydash/internal/rowmodel"
)

// teamCells is what team cell renderers may read besides the row itself: the
// in-flight state of row actions and what the acting user may do. Reading it
// never triggers a request.
type teamCells interface {
	spinnerGlyph() string
	roleSelector(userID string) (*dispatch.RoleSelector, bool)
	removing(userID string) bool
	revokingInvitation(id string) bool
	canRemove(row rowmodel.MemberRow) bool
	canRevokeInvitation(row rowmodel.InvitationRow) bool
}

type keyCells interface {
	spinnerGlyph() string
	revokingKey(id string) bool
}

func memberColumns(st teamCells) grid.Registry[rowmodel.MemberRow] {
	return grid.MustRegistry(
		grid.Column[rowmodel.MemberRow]{
			ID:       "member",
			Header:   "Member",
			Accessor: func(r rowmodel.MemberRow) any { return r.DisplayName() },
			Cell: func(r rowmodel.MemberRow) grid.Cell {
				label := "[" + r.Initials() + "] " + r.DisplayName()
				if r.Identifier() != "" && r.Identifier() != r.DisplayName() {
					label += "  " + r.Identifier()
				}
				return grid.Text(label)
			},
		},
		grid.Column[rowmodel.MemberRow]{
			ID:     "role",
			Header: "Role",
			Width:  18,
			Cell: func(r rowmodel.MemberRow) grid.Cell {
				sel, ok := st.roleSelector(r.UserID())
				if !ok {
					return grid.Muted(r.Role().Label())
				}
				label := sel.Displayed().Label()
				switch {
				case sel.Busy():
					return grid.Loading(st.spinnerGlyph() + " " + label)
				case sel.Self():
					return grid.Muted(label + " (you)")
				}
				return grid.Text(label + " ▾")
			},
		},
		grid.Column[rowmodel.MemberRow]{
			ID:     "actions",
			Header: "",
			Width:  12,
			Cell: func(r rowmodel.MemberRow) grid.Cell {
				if st.removing(r.UserID()) {
					return grid.Loading(st.spinnerGlyph() + " Removing")
				}
				if st.canRemove(r) {
					return grid.Action("Remove")
				}
				return grid.Text("")
			},
		},
	)
}

func invitationColumns(st teamCells) grid.Registry[rowmodel.InvitationRow] {
	return grid.MustRegistry(
		grid.Column[rowmodel.InvitationRow]{
			ID:       "email",
			Header:   "Email",
			Accessor: func(r rowmodel.InvitationRow) any { return r.Email() },
			Cell:     func(r rowmodel.InvitationRow) grid.Cell { return grid.Text(r.Email()) },
		},
		grid.Column[rowmodel.InvitationRow]{
			ID:     "status",
			Header: "Status",
			Width:  10,
			Cell: func(r rowmodel.InvitationRow) grid.Cell {
				label, primary, ok := rowmodel.StatusBadge(r.Status())
				switch {
				case !ok:
					return grid.Empty()
				case primary:
					return grid.PrimaryBadge(label)
				}
				return grid.Badge(label)
			},
		},
		grid.Column[rowmodel.InvitationRow]{
			ID:     "actions",
			Header: "",
			Width:  12,
			Cell: func(r rowmodel.InvitationRow) grid.Cell {
				if st.revokingInvitation(r.ID()) {
					return grid.Loading(st.spinnerGlyph() + " Revoking")
				}
				if st.canRevokeInvitation(r) {
					return grid.Action("Revoke")
				}
				return grid.Text("")
			},
		},
	)
}

func keyColumns(st keyCells) grid.Registry[rowmodel.KeyRow] {
	return grid.MustRegistry(
		grid.SelectColumn[rowmodel.KeyRow](),
		grid.Column[rowmodel.KeyRow]{
			ID:       "key",
			Header:   "Key",
			Hideable: true,
			Accessor: func(r rowmodel.KeyRow) any { return r.Key.Start },
			Cell:     func(r rowmodel.KeyRow) grid.Cell { return grid.Badge(r.MaskedPrefix()) },
		},
		grid.Column[rowmodel.KeyRow]{
			ID:       "created_at",
			Header:   "Created At",
			Sortable: true,
			Hideable: true,
			Accessor: func(r rowmodel.KeyRow) any { return r.CreatedAtTime() },
			Cell:     func(r rowmodel.KeyRow) grid.Cell { return grid.Text(r.CreatedAt()) },
		},
		grid.Column[rowmodel.KeyRow]{
			ID:       "expires",
			Header:   "Expires",
			Hideable: true,
			Accessor: func(r rowmodel.KeyRow) any { return r.Key.Expires },
			Cell: func(r rowmodel.KeyRow) grid.Cell {
				v, ok := r.Expiry()
				if ok && r.Expired() {
					return grid.Muted(v)
				}
				return grid.Optional(v, ok, grid.KindPlain)
			},
		},
		grid.Column[rowmodel.KeyRow]{
			ID:       "remaining",
			Header:   "Remaining",
			Hideable: true,
			Accessor: func(r rowmodel.KeyRow) any { return r.Key.RemainingRequests },
			Cell: func(r rowmodel.KeyRow) grid.Cell {
				v, ok := r.Remaining()
				return grid.Optional(v, ok, grid.KindPlain)
			},
		},
		grid.Column[rowmodel.KeyRow]{
			ID:       "owner",
			Header:   "Owner",
			Hideable: true,
			Accessor: func(r rowmodel.KeyRow) any { return r.Key.OwnerID },
			Cell: func(r rowmodel.KeyRow) grid.Cell {
				v, ok := r.Owner()
				return grid.Optional(v, ok, grid.KindBadge)
			},
		},
		grid.Column[rowmodel.KeyRow]{
			ID:       "name",
			Header:   "Name",
			Hideable: true,
			Accessor: func(r rowmodel.KeyRow) any { return r.Key.Name },
			Cell: func(r rowmodel.KeyRow) grid.Cell {
				v, ok := r.Name()
				return grid.Optional(v, ok, grid.KindBadge)
			},
		},
		grid.Column[rowmodel.KeyRow]{
			ID:       "ratelimit",
			Header:   "Ratelimit",
			Hideable: true,
			Cell: func(r rowmodel.KeyRow) grid.Cell {
				v, ok := r.RateLimit()
				return grid.Optional(v, ok, grid.KindPlain)
			},
		},
		grid.Column[rowmodel.KeyRow]{
			ID:     "actions",
			Header: "",
			Width:  12,
			Cell: func(r rowmodel.KeyRow) grid.Cell {
				if st.revokingKey(r.ID()) {
					return grid.Loading(st.spinnerGlyph() + " Revoking")
				}
				return grid.Action("Revoke")
			},
		},
	)
}
