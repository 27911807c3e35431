package wire

import (
	"strings"
	"testing"
)

func TestFaultError(t *testing.T) {
	f := &Fault{
		Code:     "s:Receiver",
		Subcodes: []string{"ter:ActionNotSupported"},
		Reason:   "not implemented",
	}
	msg := f.Error()
	for _, part := range []string{"s:Receiver", "ter:ActionNotSupported", "not implemented"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}
}

func TestFaultHasSubcode(t *testing.T) {
	f := &Fault{
		Code:     "env:Sender",
		Subcodes: []string{"wsrf-rw:ResourceUnknownFault", "ter:InvalidArgVal"},
	}

	tests := []struct {
		local string
		want  bool
	}{
		{"ResourceUnknownFault", true},
		{"InvalidArgVal", true},
		{"TopicNotSupportedFault", false},
		{"wsrf-rw:ResourceUnknownFault", false}, // prefixes are not part of the local name
	}
	for _, tt := range tests {
		if got := f.HasSubcode(tt.local); got != tt.want {
			t.Errorf("HasSubcode(%q) = %v, want %v", tt.local, got, tt.want)
		}
	}
}

func TestFaultClass(t *testing.T) {
	tests := []struct {
		code     string
		sender   bool
		receiver bool
	}{
		{"s:Sender", true, false},
		{"SOAP-ENV:Receiver", false, true},
		{"Sender", true, false},
		{"s:VersionMismatch", false, false},
	}
	for _, tt := range tests {
		f := &Fault{Code: tt.code}
		if got := f.IsSenderFault(); got != tt.sender {
			t.Errorf("IsSenderFault(%q) = %v, want %v", tt.code, got, tt.sender)
		}
		if got := f.IsReceiverFault(); got != tt.receiver {
			t.Errorf("IsReceiverFault(%q) = %v, want %v", tt.code, got, tt.receiver)
		}
	}
}
