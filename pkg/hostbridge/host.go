// Package hostbridge connects the module to the plugin shim that owns the
// game. Commands arrive as lines, game commands leave through Host.
package hostbridge

import "time"

// Host is everything the module may ask of the game process.
type Host interface {
	// ExecuteCommand runs a console command such as "load_training <code>".
	ExecuteCommand(cmd string)
	// SetTimeout runs fn once after delay.
	SetTimeout(fn func(), delay time.Duration)
}

// LoadoutHost is implemented by hosts that can equip a car preset by name.
type LoadoutHost interface {
	EquipLoadout(name string)
}
