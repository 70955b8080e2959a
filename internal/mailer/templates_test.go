package mailer

import (
	"strings"
	"testing"
	"time"

	"fleetmon/internal/models"
)

func sampleData(status models.Status) AlertData {
	return AlertData{
		Machine: models.MachineProfile{
			MachineID: "MCH-002",
			Name:      "Hydraulic Press Beta",
			Location:  "Bay B - Floor 1",
		},
		Reading: models.SensorReading{
			Timestamp:   time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
			Temperature: 82.4,
			Vibration:   4.75,
			Current:     21.3,
		},
		Prediction: models.Prediction{
			HealthPercentage: 34,
			RUL:              42.5,
			Status:           status,
			RiskLevel:        models.RiskHigh,
			RootCause:        "Bearing degradation - abnormal vibration pattern",
		},
		Actions: []string{"Schedule emergency maintenance within 24-48 hours"},
	}
}

func TestRenderAlertCritical(t *testing.T) {
	msg := RenderAlert(sampleData(models.StatusCritical))

	if !strings.HasPrefix(msg.Subject, "CRITICAL:") {
		t.Errorf("subject = %q, want CRITICAL prefix", msg.Subject)
	}
	if !strings.Contains(msg.Subject, "MCH-002") {
		t.Errorf("subject %q missing machine ID", msg.Subject)
	}

	for _, want := range []string{
		"MCH-002",
		"Bay B - Floor 1",
		"34%",
		"42.5 cycles",
		"Bearing degradation",
		"82.4",
		"4.75",
		"21.3",
		"Schedule emergency maintenance",
	} {
		if !strings.Contains(msg.TextBody, want) {
			t.Errorf("text body missing %q", want)
		}
	}

	if !strings.Contains(msg.HTMLBody, "#dc2626") {
		t.Error("critical HTML body missing red accent")
	}
}

func TestRenderAlertWarning(t *testing.T) {
	msg := RenderAlert(sampleData(models.StatusWarning))

	if !strings.HasPrefix(msg.Subject, "Warning:") {
		t.Errorf("subject = %q, want Warning prefix", msg.Subject)
	}
	if strings.Contains(msg.TextBody, "Immediate action required") {
		t.Error("warning body carries the critical lead")
	}
	if !strings.Contains(msg.HTMLBody, "#f59e0b") {
		t.Error("warning HTML body missing amber accent")
	}
}
