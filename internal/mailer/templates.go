package mailer

import (
	"fmt"
	"strings"

	"fleetmon/internal/models"
)

// AlertData is everything an alert email needs to render.
type AlertData struct {
	Machine    models.MachineProfile
	Reading    models.SensorReading
	Prediction models.Prediction
	Actions    []string
}

// RenderAlert builds the alert message for the prediction's severity.
// WARNING and CRITICAL differ in framing and urgency copy; both carry the
// machine ID, the sensor snapshot, predicted RUL, health percentage and
// the recommended actions.
func RenderAlert(d AlertData) Message {
	critical := d.Prediction.Status == models.StatusCritical

	var subject, lead string
	if critical {
		subject = fmt.Sprintf("CRITICAL: %s (%s) requires immediate maintenance", d.Machine.Name, d.Machine.MachineID)
		lead = "Immediate action required. This machine is predicted to fail without intervention."
	} else {
		subject = fmt.Sprintf("Warning: %s (%s) is showing degradation", d.Machine.Name, d.Machine.MachineID)
		lead = "Degradation detected. Please plan maintenance before the condition worsens."
	}

	return Message{
		Subject:  subject,
		TextBody: renderText(d, lead),
		HTMLBody: renderHTML(d, lead, critical),
	}
}

func renderText(d AlertData, lead string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", lead)
	fmt.Fprintf(&b, "Machine:   %s (%s)\n", d.Machine.Name, d.Machine.MachineID)
	fmt.Fprintf(&b, "Location:  %s\n", d.Machine.Location)
	fmt.Fprintf(&b, "Status:    %s (risk: %s)\n\n", d.Prediction.Status, d.Prediction.RiskLevel)

	fmt.Fprintf(&b, "Health:        %d%%\n", d.Prediction.HealthPercentage)
	fmt.Fprintf(&b, "Predicted RUL: %.1f cycles\n", d.Prediction.RUL)
	if d.Prediction.RootCause != "" {
		fmt.Fprintf(&b, "Probable cause: %s\n", d.Prediction.RootCause)
	}

	fmt.Fprintf(&b, "\nSensor snapshot (%s):\n", d.Reading.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "  Temperature: %.1f C\n", d.Reading.Temperature)
	fmt.Fprintf(&b, "  Vibration:   %.2f mm/s\n", d.Reading.Vibration)
	fmt.Fprintf(&b, "  Current:     %.1f A\n", d.Reading.Current)

	b.WriteString("\nRecommended actions:\n")
	for _, a := range d.Actions {
		fmt.Fprintf(&b, "  - %s\n", a)
	}

	return b.String()
}

func renderHTML(d AlertData, lead string, critical bool) string {
	accent := "#f59e0b"
	if critical {
		accent = "#dc2626"
	}

	var b strings.Builder

	b.WriteString("<html><body style=\"font-family:sans-serif;color:#1f2937\">")
	fmt.Fprintf(&b, "<h2 style=\"color:%s\">%s - %s</h2>", accent, d.Prediction.Status, d.Machine.Name)
	fmt.Fprintf(&b, "<p>%s</p>", lead)

	b.WriteString("<table cellpadding=\"4\">")
	fmt.Fprintf(&b, "<tr><td>Machine</td><td><b>%s (%s)</b></td></tr>", d.Machine.Name, d.Machine.MachineID)
	fmt.Fprintf(&b, "<tr><td>Location</td><td>%s</td></tr>", d.Machine.Location)
	fmt.Fprintf(&b, "<tr><td>Health</td><td><b>%d%%</b></td></tr>", d.Prediction.HealthPercentage)
	fmt.Fprintf(&b, "<tr><td>Predicted RUL</td><td>%.1f cycles</td></tr>", d.Prediction.RUL)
	if d.Prediction.RootCause != "" {
		fmt.Fprintf(&b, "<tr><td>Probable cause</td><td>%s</td></tr>", d.Prediction.RootCause)
	}
	fmt.Fprintf(&b, "<tr><td>Temperature</td><td>%.1f &deg;C</td></tr>", d.Reading.Temperature)
	fmt.Fprintf(&b, "<tr><td>Vibration</td><td>%.2f mm/s</td></tr>", d.Reading.Vibration)
	fmt.Fprintf(&b, "<tr><td>Current</td><td>%.1f A</td></tr>", d.Reading.Current)
	b.WriteString("</table>")

	b.WriteString("<h3>Recommended actions</h3><ul>")
	for _, a := range d.Actions {
		fmt.Fprintf(&b, "<li>%s</li>", a)
	}
	b.WriteString("</ul></body></html>")

	return b.String()
}
