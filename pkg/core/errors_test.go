package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := NewDeviceDenied("microphone could not be acquired", nil)
	want := "device_denied: microphone could not be acquired"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := errors.New("permission refused")
	err = NewDeviceDenied("microphone could not be acquired", cause)
	want = "device_denied: microphone could not be acquired: permission refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewNetworkUnstable("remote connection is unstable", cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is did not reach the cause")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"device denied", NewDeviceDenied("mic", nil), KindDeviceDenied},
		{"network", NewNetworkUnstable("net", nil), KindNetworkUnstable},
		{"rejected", NewRemoteRejected("auth", nil), KindRemoteRejected},
		{"server closed", NewServerClosed("closed"), KindServerClosed},
		{"config", NewConfig("missing key"), KindConfig},
		{"wrapped", fmt.Errorf("starting: %w", NewConfig("missing key")), KindConfig},
		{"plain", errors.New("plain"), Kind("")},
		{"nil", nil, Kind("")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFatal(t *testing.T) {
	if New(KindDecodeFailure, "bad buffer", nil).Fatal() {
		t.Errorf("decode failures must not be fatal")
	}
	if New(KindAnalysisParse, "bad payload", nil).Fatal() {
		t.Errorf("analysis parse failures must not be fatal")
	}
	if !NewServerClosed("closed").Fatal() {
		t.Errorf("server close must be fatal")
	}
	if !NewDeviceDenied("mic", nil).Fatal() {
		t.Errorf("device denial must be fatal")
	}
}
