package controller

import (
	"impressa/internal/session"
	"impressa/internal/types"
)

// View renders controller state. The controller never calls a View from two
// goroutines at once.
type View interface {
	// ShowLogin presents the login form.
	ShowLogin()
	// ShowMain reveals the main interface and hides the login form.
	ShowMain()
	// RenderPrinters replaces both the printer list and the selection control.
	RenderPrinters(printers []types.Printer)
	// AppendStatus adds e after every earlier status line.
	AppendStatus(e session.Entry)
	// Alert surfaces a failure notice to the user.
	Alert(msg string)
}

// MultiView fans every call out to each view in order.
type MultiView []View

func (m MultiView) ShowLogin() {
	for _, v := range m {
		v.ShowLogin()
	}
}

func (m MultiView) ShowMain() {
	for _, v := range m {
		v.ShowMain()
	}
}

func (m MultiView) RenderPrinters(printers []types.Printer) {
	for _, v := range m {
		v.RenderPrinters(printers)
	}
}

func (m MultiView) AppendStatus(e session.Entry) {
	for _, v := range m {
		v.AppendStatus(e)
	}
}

func (m MultiView) Alert(msg string) {
	for _, v := range m {
		v.Alert(msg)
	}
}
