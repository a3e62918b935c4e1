package eventsource

import "testing"

func TestEnvelopeFromCommandSeedsOwnChain(t *testing.T) {
	env := EnvelopeFromCommand(nil)
	if env.CorrelationID() != env.ID() {
		t.Errorf("root command's correlation id = %v, want its own id %v", env.CorrelationID(), env.ID())
	}
	if env.CausationID() != env.ID() {
		t.Errorf("root command's causation id = %v, want its own id %v", env.CausationID(), env.ID())
	}
	if env.IsEvent() {
		t.Error("command envelope's IsEvent() should be false")
	}
}

func TestEnvelopeFromCommandInheritsParentCorrelation(t *testing.T) {
	root := EnvelopeFromCommand(nil)
	child := EnvelopeFromCommand(&root)

	if child.CorrelationID() != root.CorrelationID() {
		t.Errorf("child correlation id = %v, want root's %v", child.CorrelationID(), root.CorrelationID())
	}
	if child.CausationID() != root.ID() {
		t.Errorf("child causation id = %v, want root's id %v", child.CausationID(), root.ID())
	}
}

func TestEnvelopeFromEventChain(t *testing.T) {
	cmd := EnvelopeFromCommand(nil)
	evt1 := EnvelopeFromEvent(cmd)
	evt2 := EnvelopeFromEvent(evt1)

	if evt1.CausationID() != cmd.ID() {
		t.Errorf("evt1 causation id = %v, want command id %v", evt1.CausationID(), cmd.ID())
	}
	if evt2.CausationID() != evt1.ID() {
		t.Errorf("evt2 causation id = %v, want evt1 id %v", evt2.CausationID(), evt1.ID())
	}
	if evt1.CorrelationID() != cmd.CorrelationID() || evt2.CorrelationID() != cmd.CorrelationID() {
		t.Error("every event in the batch should share the command's correlation id")
	}
	if !evt1.IsEvent() || !evt2.IsEvent() {
		t.Error("event envelopes' IsEvent() should be true")
	}
}

func TestMarshalUnmarshalEnvelopeRoundTrip(t *testing.T) {
	cmd := EnvelopeFromCommand(nil)
	evt := EnvelopeFromEvent(cmd)

	meta, err := evt.MarshalMetadata()
	if err != nil {
		t.Fatalf("MarshalMetadata returned error: %v", err)
	}

	parsed, err := UnmarshalEnvelope(evt.ID(), meta)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope returned error: %v", err)
	}
	if parsed.CorrelationID() != evt.CorrelationID() {
		t.Errorf("correlation id mismatch after round trip")
	}
	if parsed.CausationID() != evt.CausationID() {
		t.Errorf("causation id mismatch after round trip")
	}
	if parsed.IsEvent() != evt.IsEvent() {
		t.Errorf("is_event mismatch after round trip")
	}
}

func TestIsEventRecord(t *testing.T) {
	cmd := EnvelopeFromCommand(nil)
	evt := EnvelopeFromEvent(cmd)

	cmdMeta, _ := cmd.MarshalMetadata()
	evtMeta, _ := evt.MarshalMetadata()

	isEvt, err := isEventRecord(evtMeta)
	if err != nil {
		t.Fatalf("isEventRecord returned error: %v", err)
	}
	if !isEvt {
		t.Error("isEventRecord on an event's metadata should be true")
	}

	isEvt, err = isEventRecord(cmdMeta)
	if err != nil {
		t.Fatalf("isEventRecord returned error: %v", err)
	}
	if isEvt {
		t.Error("isEventRecord on a command's metadata should be false")
	}
}
