package keys

import (
	"github.com/allbin/broute/internal/i18n"
	"github.com/charmbracelet/bubbles/key"
)

// WizardKeys are the bindings of the setup form
type WizardKeys struct {
	CommonKeys
	Next       key.Binding
	Prev       key.Binding
	Submit     key.Binding
	DeviceUp   key.Binding
	DeviceDown key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	ToggleHex  key.Binding
}

func NewWizardKeys() WizardKeys {
	return WizardKeys{
		CommonKeys: NewCommonKeys(),
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", i18n.T("help.next")),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", i18n.T("help.prev")),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", i18n.T("help.submit")),
		),
		DeviceUp: key.NewBinding(
			key.WithKeys("left", "k"),
			key.WithHelp("←/k", i18n.T("help.device")),
		),
		DeviceDown: key.NewBinding(
			key.WithKeys("right", "j"),
			key.WithHelp("→/j", i18n.T("help.device")),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll log up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll log down"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "toggle hex"),
		),
	}
}

func (k WizardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Help, k.Quit}
}

func (k WizardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Submit},
		{k.DeviceUp, k.DeviceDown},
		{k.ScrollUp, k.ScrollDown, k.ToggleHex},
		{k.Help, k.Quit},
	}
}
