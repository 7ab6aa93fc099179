package kittygfx

import "testing"

func TestParseCommandBasicFields(t *testing.T) {
	cmd := ParseCommand([]byte("Ga=t,i=42,f=32,s=10,v=5,m=0;aGVsbG8="))
	if cmd.Action != 't' {
		t.Fatalf("action = %c, want t", cmd.Action)
	}
	if cmd.ImageID != 42 {
		t.Fatalf("image id = %d, want 42", cmd.ImageID)
	}
	if cmd.Format != 32 {
		t.Fatalf("format = %d, want 32", cmd.Format)
	}
	if cmd.Num1 != 10 || cmd.Num2 != 5 {
		t.Fatalf("s/v = %d/%d, want 10/5", cmd.Num1, cmd.Num2)
	}
	if string(cmd.Payload) != "hello" {
		t.Fatalf("payload = %q, want hello", cmd.Payload)
	}
	if len(cmd.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", cmd.Errors)
	}
}

func TestParseCommandNoPayload(t *testing.T) {
	cmd := ParseCommand([]byte("Ga=d,d=a"))
	if cmd.Action != 'd' {
		t.Fatalf("action = %c, want d", cmd.Action)
	}
	if cmd.Delete != 'a' {
		t.Fatalf("delete spec = %c, want a", cmd.Delete)
	}
	if cmd.Payload != nil {
		t.Fatalf("expected no payload, got %v", cmd.Payload)
	}
}

func TestParseCommandUnknownKeyContinues(t *testing.T) {
	cmd := ParseCommand([]byte("Ga=t,Z=1,i=7"))
	if cmd.ImageID != 7 {
		t.Fatalf("image id = %d, want 7 (parsing should continue past unknown key)", cmd.ImageID)
	}
	if len(cmd.Errors) != 1 {
		t.Fatalf("expected 1 error for unknown key, got %d", len(cmd.Errors))
	}
	if cmd.Errors[0].Kind != KindEINVAL {
		t.Fatalf("expected EINVAL, got %v", cmd.Errors[0].Kind)
	}
}

func TestParseCommandBadDecimalValue(t *testing.T) {
	cmd := ParseCommand([]byte("Ga=t,i=not-a-number"))
	if cmd.ImageID != 0 {
		t.Fatalf("image id should stay 0 on bad value, got %d", cmd.ImageID)
	}
	if len(cmd.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(cmd.Errors))
	}
}

func TestParseCommandCapsKeyCount(t *testing.T) {
	s := "Ga=t"
	for i := 0; i < maxCommandKeys+10; i++ {
		s += ",p=1"
	}
	cmd := ParseCommand([]byte(s))
	if cmd.PlacementID != 1 {
		t.Fatalf("expected placement id to be set from within the cap")
	}
}

func TestParseCommandStripsLeadingG(t *testing.T) {
	withG := ParseCommand([]byte("Gi=3"))
	withoutG := ParseCommand([]byte("i=3"))
	if withG.ImageID != 3 || withoutG.ImageID != 3 {
		t.Fatalf("expected both forms to parse i=3")
	}
}
