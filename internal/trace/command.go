package trace

import "fmt"

// Command names a recordable domain action.
type Command string

// The closed set of commands a script can record.
const (
	Play       Command = "play"
	Sample     Command = "sample"
	Synth      Command = "synth"
	Control    Command = "control"
	MidiNoteOn Command = "midi_note_on"
	SetVolume  Command = "set_volume!"
)

// FX labels the handle passed to a with_fx body. Entering an effect is not
// recorded, so FX is not part of Commands.
const FX Command = "fx"

// Commands lists every recordable command in declaration order.
var Commands = []Command{Play, Sample, Synth, Control, MidiNoteOn, SetVolume}

// ParseCommand maps a command name to its Command. "set_volume" is accepted
// as a spelling of "set_volume!".
func ParseCommand(name string) (Command, error) {
	if name == "set_volume" {
		return SetVolume, nil
	}
	for _, c := range Commands {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", name)
}

// Node is the opaque handle returned for a recorded command, standing in for
// a running synth or sample.
type Node struct {
	Command Command
	Args    []any
}

// Kill does nothing; there is no sound to stop.
func (Node) Kill() {}
