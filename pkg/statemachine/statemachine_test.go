package statemachine

import "testing"

type door struct {
	open   bool
	wantIn bool
}

func doorClosed(d *door) StateFn[door] {
	if d.wantIn {
		d.open = true
		return doorOpen
	}
	return doorClosed
}

func doorOpen(d *door) StateFn[door] {
	if !d.wantIn {
		d.open = false
		return nil // terminal once closed again
	}
	return doorOpen
}

func TestStateMachineTransitions(t *testing.T) {
	d := &door{}
	sm := NewStateMachine(d, doorClosed)

	sm.Dispatch()
	if d.open {
		t.Error("Door opened without a request")
	}

	d.wantIn = true
	sm.Dispatch()
	if !d.open {
		t.Error("Door should be open")
	}

	d.wantIn = false
	sm.Dispatch()
	if d.open {
		t.Error("Door should be closed")
	}
	if !sm.Terminated() {
		t.Error("Machine should be terminal")
	}

	// Dispatching a terminated machine is a no-op.
	sm.Dispatch()
	if sm.Current() != nil {
		t.Error("Terminated machine resurrected")
	}
}

func TestSetState(t *testing.T) {
	d := &door{wantIn: true}
	sm := NewStateMachine(d, doorClosed)
	sm.SetState(doorOpen)
	sm.Dispatch()
	if sm.Terminated() {
		t.Error("Machine terminated unexpectedly")
	}
}
