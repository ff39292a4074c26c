package tui

import (
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/taskdock/internal/api"
)

type loginState struct {
	fields  []formField
	index   int
	busy    bool
	message string
}

func newLoginState() *loginState {
	return &loginState{fields: buildLoginFields(), index: loginFieldEmail}
}

func (l *loginState) registering() bool {
	return l.fields[loginFieldMode].Value == modeRegister
}

func (u *UI) showLogin(gui *gocui.Gui) error {
	if u.login == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(56, maxX/3)
	height := 8
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewLogin, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = "Sign in"
	if u.login.registering() {
		view.Title = "Create account"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = gocui.EditorFunc(u.editLogin)
	u.renderLogin(view)
	_, _ = gui.SetCurrentView(viewLogin)
	return nil
}

func (u *UI) renderLogin(view *gocui.View) {
	if u.login == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.login.fields {
		if index == loginFieldName && !u.login.registering() {
			continue
		}
		prefix := "  "
		if index == u.login.index {
			prefix = "> "
		}
		value := field.Value
		if index == loginFieldPassword {
			value = strings.Repeat("*", len([]rune(value)))
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	fmt.Fprintln(view)
	if u.login.busy {
		fmt.Fprint(view, "Please wait...")
	} else {
		fmt.Fprint(view, u.login.message)
	}

	row := u.login.index
	if !u.login.registering() && row > loginFieldName {
		row--
	}
	field := u.login.fields[u.login.index]
	cursorX := len([]rune(field.Label)) + len([]rune(field.Value)) + 4
	view.SetCursor(cursorX, row)
}

func (u *UI) editLogin(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	if u.login == nil || u.login.busy {
		return false
	}
	field := &u.login.fields[u.login.index]
	if u.login.index == loginFieldMode {
		switch key {
		case gocui.KeyArrowRight, gocui.KeyArrowLeft, gocui.KeySpace:
			field.Value = cycleValue([]string{modeLogin, modeRegister}, field.Value, 1)
			u.login.message = ""
		}
		u.renderLogin(view)
		return true
	}

	editText(field, key, ch, mod)
	u.renderLogin(view)
	return true
}

func (u *UI) nextLoginField(_ *gocui.Gui, view *gocui.View) error {
	u.stepLoginField(1)
	u.renderLogin(view)
	return nil
}

func (u *UI) prevLoginField(_ *gocui.Gui, view *gocui.View) error {
	u.stepLoginField(-1)
	u.renderLogin(view)
	return nil
}

// stepLoginField moves between fields, skipping the name outside of
// registration.
func (u *UI) stepLoginField(delta int) {
	if u.login == nil {
		return
	}
	next := u.login.index + delta
	if next == loginFieldName && !u.login.registering() {
		next += delta
	}
	if next < 0 || next >= len(u.login.fields) {
		return
	}
	u.login.index = next
}

// submitLogin signs in or registers. Failures stay on the form with a
// friendlier message and an emptied password.
func (u *UI) submitLogin(_ *gocui.Gui, _ *gocui.View) error {
	login := u.login
	if login == nil || login.busy {
		return nil
	}

	email := strings.TrimSpace(login.fields[loginFieldEmail].Value)
	name := strings.TrimSpace(login.fields[loginFieldName].Value)
	password := login.fields[loginFieldPassword].Value
	registering := login.registering()

	switch {
	case email == "" || password == "":
		login.message = "Email and password are required"
		return nil
	case registering && name == "":
		login.message = "Name is required"
		return nil
	}

	login.busy = true
	login.message = ""
	u.async(func() error {
		if registering {
			return u.session.Register(u.ctx, email, name, password)
		}
		return u.session.Login(u.ctx, email, password)
	}, func(err error) {
		login.busy = false
		if err != nil {
			action := "login"
			if registering {
				action = "registration"
			}
			login.message = api.FriendlyMessage(err, action)
			login.fields[loginFieldPassword].Value = ""
			login.index = loginFieldPassword
			u.log.Info().Str("kind", api.Classify(err).String()).Msg("sign in failed")
			return
		}
		u.refresh()
	})
	return nil
}
