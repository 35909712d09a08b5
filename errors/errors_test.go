package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := TypeMismatch(PhaseUnwrap, "TcpSocket", "Headers")
	msg := err.Error()

	if !strings.Contains(msg, "[unwrap]") {
		t.Fatalf("Expected phase in message, got %q", msg)
	}
	if !strings.Contains(msg, "expected TcpSocket, got Headers") {
		t.Fatalf("Expected type names in message, got %q", msg)
	}
}

func TestError_FormatDetailOnly(t *testing.T) {
	err := Sealed("warning logger")
	msg := err.Error()

	if !strings.Contains(msg, "[setup] sealed: warning logger") {
		t.Fatalf("Unexpected message %q", msg)
	}
}

func TestError_Is(t *testing.T) {
	err := DyingObject("TcpSocket")

	if !stderrors.Is(err, &Error{Phase: PhaseWrap, Kind: KindDyingObject}) {
		t.Fatal("Expected Is to match on phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseWrap, Kind: KindTypeMismatch}) {
		t.Fatal("Expected Is to reject different kind")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Engine(cause, "create instance")

	if !stderrors.Is(err, cause) {
		t.Fatal("Expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "caused by: boom") {
		t.Fatalf("Expected cause in message, got %q", err.Error())
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseUnwrap, KindTypeMismatch).
		Expected("Request").
		Actual("Response").
		Detail("argument %d has the wrong type", 2).
		Build()

	if err.Phase != PhaseUnwrap || err.Kind != KindTypeMismatch {
		t.Fatal("Builder did not preserve phase/kind")
	}
	if err.Detail != "argument 2 has the wrong type" {
		t.Fatalf("Unexpected detail %q", err.Detail)
	}
	if !strings.Contains(err.Error(), "expected Request, got Response") {
		t.Fatalf("Unexpected message %q", err.Error())
	}
}
