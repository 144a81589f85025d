package audit

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	event := CreateEvent{
		UserID:     "u1",
		ClientIP:   "192.168.1.1",
		EntityType: "project",
		EntityID:   "p1",
		Name:       "fraud-detection",
		Success:    true,
	}

	logger.Log(event)

	output := buf.String()

	// Check RFC5424 format components
	if !strings.Contains(output, "modeldb") {
		t.Error("Expected app name 'modeldb' in output")
	}
	if !strings.Contains(output, "create") {
		t.Error("Expected message ID 'create' in output")
	}
	if !strings.Contains(output, "u1") {
		t.Error("Expected user id in output")
	}
	if !strings.Contains(output, "192.168.1.1") {
		t.Error("Expected client IP in output")
	}
	if !strings.Contains(output, "created project fraud-detection") {
		t.Error("Expected success message in output")
	}
	if !strings.HasPrefix(output, "<") {
		t.Error("Expected RFC5424 PRI prefix in output")
	}
}

func TestUpdateEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     UpdateEvent
		wantMsg   string
		wantSev   Severity
		wantFac   int
		wantMsgID string
	}{
		{
			name: "successful tag update",
			event: UpdateEvent{
				UserID:     "u1",
				ClientIP:   "10.0.0.1",
				EntityType: "project",
				EntityID:   "p1",
				Operation:  "add-tags",
				Success:    true,
			},
			wantMsg:   "ran add-tags on project p1",
			wantSev:   SeverityInfo,
			wantFac:   FacilityUser,
			wantMsgID: "update",
		},
		{
			name: "failed attribute update",
			event: UpdateEvent{
				UserID:       "u1",
				ClientIP:     "10.0.0.1",
				EntityType:   "dataset",
				EntityID:     "d1",
				Operation:    "update-attribute",
				Success:      false,
				ErrorMessage: "attribute already exists",
			},
			wantMsg:   "tried to run update-attribute",
			wantSev:   SeverityWarning,
			wantFac:   FacilityUser,
			wantMsgID: "update",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want to contain %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.Facility() != tt.wantFac {
				t.Errorf("Facility() = %v, want %v", tt.event.Facility(), tt.wantFac)
			}
			if tt.event.MessageID() != tt.wantMsgID {
				t.Errorf("MessageID() = %v, want %v", tt.event.MessageID(), tt.wantMsgID)
			}
		})
	}
}

func TestCheckEventDeniedMessage(t *testing.T) {
	event := CheckEvent{
		UserID:     "u1",
		EntityType: "project",
		EntityID:   "p1",
		Action:     "DELETE",
		Allowed:    false,
	}
	if !strings.Contains(event.Message(), "denied") {
		t.Errorf("Message() = %q, want to contain 'denied'", event.Message())
	}
	if event.Facility() != FacilityAuthPriv {
		t.Errorf("Facility() = %v, want %v", event.Facility(), FacilityAuthPriv)
	}
	sd := event.StructuredData()
	if sd[SDIDAction]["result"] != "failure" {
		t.Errorf("expected failure result, got %q", sd[SDIDAction]["result"])
	}
	if sd[SDIDAction]["privilege"] != "DELETE" {
		t.Errorf("expected privilege DELETE, got %q", sd[SDIDAction]["privilege"])
	}
}

func TestEscapeSDValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, `"plain"`},
		{`with"quote`, `"with\"quote"`},
		{`with]bracket`, `"with\]bracket"`},
		{`with\slash`, `"with\\slash"`},
	}
	for _, tt := range tests {
		if got := escapeSDValue(tt.in); got != tt.want {
			t.Errorf("escapeSDValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeleteEventCountsSubjects(t *testing.T) {
	event := DeleteEvent{
		UserID:     "u1",
		EntityType: "project",
		EntityIDs:  []string{"p1", "p2"},
		Success:    true,
	}
	if !strings.Contains(event.Message(), "deleted 2 project(s)") {
		t.Errorf("Message() = %q", event.Message())
	}
	if event.Severity() != SeverityNotice {
		t.Errorf("Severity() = %v, want %v", event.Severity(), SeverityNotice)
	}
	sd := event.StructuredData()
	if sd[SDIDSubject]["count"] != "2" {
		t.Errorf("expected count 2, got %q", sd[SDIDSubject]["count"])
	}
}
