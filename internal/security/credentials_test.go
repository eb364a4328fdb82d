package security

import (
	"strings"
	"testing"
	"time"
)

func TestCredentialRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cm := NewCredentialManager(dir, time.Hour)
	if err := cm.Initialize("master-password"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	want := &PlainCredentials{
		Tiger: TigerCredentials{
			TigerID:        "20151234",
			Account:        "U1234567",
			PrivateKeyPath: "/keys/tiger.pem",
		},
		OpenAI: OpenAICredentials{APIKey: "sk-test-key"},
	}
	if err := cm.UpdateCredentials(want); err != nil {
		t.Fatalf("UpdateCredentials: %v", err)
	}

	// Fresh manager, same password, must decrypt the store.
	cm2 := NewCredentialManager(dir, time.Hour)
	if err := cm2.Initialize("master-password"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := cm2.GetCredentials()
	if err != nil {
		t.Fatalf("GetCredentials: %v", err)
	}
	if got.Tiger != want.Tiger || got.OpenAI != want.OpenAI {
		t.Errorf("credentials = %+v, want %+v", got, want)
	}
}

func TestWrongMasterPasswordRejected(t *testing.T) {
	dir := t.TempDir()

	cm := NewCredentialManager(dir, time.Hour)
	if err := cm.Initialize("correct"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	cm2 := NewCredentialManager(dir, time.Hour)
	if err := cm2.Initialize("wrong"); err == nil {
		t.Fatal("expected error for wrong master password")
	}
}

func TestClearSessionWipesKey(t *testing.T) {
	cm := NewCredentialManager(t.TempDir(), time.Hour)
	if err := cm.Initialize("pw"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !cm.IsSessionValid() {
		t.Fatal("session should be valid after Initialize")
	}
	cm.ClearSession()
	if cm.IsSessionValid() {
		t.Error("session should be invalid after ClearSession")
	}
	if _, err := cm.GetCredentials(); err == nil {
		t.Error("GetCredentials should fail after ClearSession")
	}
}

func TestMaskSensitive(t *testing.T) {
	if got := MaskSensitive("sk-abcdef123456"); !strings.HasSuffix(got, "3456") || strings.Contains(got, "abc") {
		t.Errorf("MaskSensitive = %q", got)
	}
	if got := MaskSensitive("abc"); got != "***" {
		t.Errorf("MaskSensitive short = %q", got)
	}
}
