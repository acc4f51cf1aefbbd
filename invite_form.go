package main

import (
	"net/mail"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bekirdag/keydash/internal/identity"
)

type inviteEvent int

const (
	inviteTyping inviteEvent = iota
	inviteSubmit
	inviteCancel
)

// inviteForm collects an email address and a role for a new invitation.
type inviteForm struct {
	input textinput.Model
	role  identity.Role
	err   string
}

func newInviteForm() *inviteForm {
	ti := textinput.New()
	ti.Prompt = "email › "
	ti.Placeholder = "name@example.com"
	ti.CharLimit = 254
	ti.Width = 40
	ti.Focus()
	return &inviteForm{input: ti, role: identity.RoleBasicMember}
}

func (f *inviteForm) Email() string { return strings.TrimSpace(f.input.Value()) }

func (f *inviteForm) Role() identity.Role { return f.role }

func (f *inviteForm) cycleRole() {
	opts := identity.SelectableRoles
	for i, r := range opts {
		if r == f.role {
			f.role = opts[(i+1)%len(opts)]
			return
		}
	}
	f.role = opts[0]
}

// validate returns the normalized address or sets err.
func (f *inviteForm) validate() (string, bool) {
	email := f.Email()
	if email == "" {
		f.err = "Enter an email address"
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		f.err = "Enter a valid email address"
		return "", false
	}
	f.err = ""
	return strings.ToLower(addr.Address), true
}

func (f *inviteForm) Update(msg tea.KeyMsg) (inviteEvent, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return inviteCancel, nil
	case "enter":
		return inviteSubmit, nil
	case "tab", "shift+tab":
		f.cycleRole()
		return inviteTyping, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	f.err = ""
	return inviteTyping, cmd
}

func (f *inviteForm) View(st styles, busy bool, glyph string) string {
	var b strings.Builder
	b.WriteString(st.cmdPrompt.Render("Invite a team member"))
	b.WriteString("\n\n")
	b.WriteString(f.input.View())
	b.WriteString("\n")
	b.WriteString("role  › " + f.role.Label())
	b.WriteString("\n")
	if f.err != "" {
		b.WriteString(st.cmdAlert.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if busy {
		b.WriteString(st.cmdHint.Render(glyph + " Sending invitation…"))
	} else {
		b.WriteString(st.cmdHint.Render(strings.Join([]string{"tab role", "enter send", "esc cancel"}, " • ")))
	}
	return b.String()
}
