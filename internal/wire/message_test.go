package wire

import "testing"

func TestMessageEqualIgnoresHeadersAndSender(t *testing.T) {
	a := NewBody("SEND", "hello").WithSender("10.0.0.1:9000").WithHeader("hop", "1")
	b := NewBody("SEND", "hello").WithSender("10.0.0.2:9000").WithHeader("hop", "2")

	if !a.Equal(b) {
		t.Errorf("expected messages with equal (type, body) to be Equal regardless of sender/headers")
	}
}

func TestMessageEqualDiffersOnBody(t *testing.T) {
	a := NewBody("SEND", "hello")
	b := NewBody("SEND", "goodbye")

	if a.Equal(b) {
		t.Errorf("expected messages with different bodies to not be Equal")
	}
}

func TestMessageEqualDiffersOnType(t *testing.T) {
	a := NewBody("SEND", "hello")
	b := NewBody("ECHO", "hello")

	if a.Equal(b) {
		t.Errorf("expected messages with different types to not be Equal")
	}
}

func TestWithSenderDoesNotMutateOriginal(t *testing.T) {
	a := NewBody("SEND", "hello").WithSender("10.0.0.1:9000")
	b := a.WithSender("10.0.0.2:9000")

	if a.Sender == b.Sender {
		t.Errorf("WithSender should return a copy, not mutate the receiver")
	}
}
