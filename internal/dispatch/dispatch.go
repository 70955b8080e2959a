// Package dispatch composes and delivers machine alerts: email to the
// subscribed recipients, plus a realtime broadcast event. The two are
// independent side channels; a failed email never suppresses the
// broadcast.
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetmon/internal/broadcast"
	"fleetmon/internal/dedup"
	"fleetmon/internal/logger"
	"fleetmon/internal/mailer"
	"fleetmon/internal/metrics"
	"fleetmon/internal/models"
	"fleetmon/internal/predictor"
)

// Options modify a single dispatch call.
type Options struct {
	// BypassCooldown skips the dedup check. Used by the manual,
	// user-initiated prediction path, which always dispatches when the
	// status warrants it.
	BypassCooldown bool
}

// Service delivers alerts for non-healthy machines.
type Service struct {
	dedup  *dedup.Deduplicator
	sender mailer.Sender // nil when SMTP is not configured
	hub    *broadcast.Hub

	// Caps concurrent SMTP sessions.
	sendSlots chan struct{}

	now func() time.Time
}

// New creates a dispatch service. sender may be nil; alerts are then
// broadcast-only and every email result is a failure.
func New(d *dedup.Deduplicator, sender mailer.Sender, hub *broadcast.Hub, sendWorkers int) *Service {
	if sendWorkers <= 0 {
		sendWorkers = 4
	}
	return &Service{
		dedup:     d,
		sender:    sender,
		hub:       hub,
		sendSlots: make(chan struct{}, sendWorkers),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Dispatch handles one non-healthy evaluation: broadcasts a new_alert
// event, then attempts an email per recipient. Recipients are processed
// concurrently; one slow or failing send affects neither the other
// recipients nor the broadcast. Returns one result per recipient and the
// alert that was raised (nil when the status is healthy).
func (s *Service) Dispatch(state models.MachineState, recipients []string, opts Options) ([]models.DispatchResult, *models.Alert) {
	log := logger.WithComponent("dispatch").With().
		Str("machine_id", state.Profile.MachineID).
		Logger()

	if state.Prediction.Status == models.StatusHealthy {
		results := make([]models.DispatchResult, len(recipients))
		for i, r := range recipients {
			results[i] = models.DispatchResult{
				Recipient: r,
				Status:    models.DispatchSkipped,
				Reason:    models.ReasonStatusNormal,
			}
			metrics.DispatchResults.WithLabelValues(string(models.DispatchSkipped)).Inc()
		}
		return results, nil
	}

	// Unreachable with the fixed scoring bands; if it ever happens,
	// suppress the alert instead of guessing a severity.
	if !state.Prediction.Status.IsValid() {
		log.Error().
			Str("status", string(state.Prediction.Status)).
			Msg("unknown health status, alert suppressed")
		results := make([]models.DispatchResult, len(recipients))
		for i, r := range recipients {
			results[i] = models.DispatchResult{
				Recipient: r,
				Status:    models.DispatchSkipped,
				Reason:    models.ReasonUnknownStatus,
			}
			metrics.DispatchResults.WithLabelValues(string(models.DispatchSkipped)).Inc()
		}
		return results, nil
	}

	alert := s.buildAlert(state)

	// Broadcast first: connected UIs must update regardless of what
	// happens on the email path.
	s.hub.Publish(models.NewEvent(models.EventNewAlert, state.Profile.MachineID, alert))

	msg := mailer.RenderAlert(mailer.AlertData{
		Machine:    state.Profile,
		Reading:    state.Reading,
		Prediction: state.Prediction,
		Actions:    predictor.Recommend(state.Prediction.Status, state.Reading),
	})

	results := make([]models.DispatchResult, len(recipients))
	var wg sync.WaitGroup

	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient string) {
			defer wg.Done()
			results[i] = s.sendOne(state.Profile.MachineID, recipient, msg, opts)
		}(i, recipient)
	}
	wg.Wait()

	for _, r := range results {
		metrics.DispatchResults.WithLabelValues(string(r.Status)).Inc()
	}

	log.Info().
		Str("severity", string(state.Prediction.Status)).
		Int("recipients", len(recipients)).
		Msg("alert dispatched")

	return results, alert
}

// sendOne delivers to a single recipient, honoring the cooldown unless
// bypassed. Failed sends are not recorded against the cooldown so the
// next tick can retry.
func (s *Service) sendOne(machineID, recipient string, msg mailer.Message, opts Options) models.DispatchResult {
	now := s.now()

	if !opts.BypassCooldown {
		if !s.dedup.Begin(machineID, recipient, now, s.dedup.Cooldown()) {
			metrics.CooldownSuppressed.Inc()
			return models.DispatchResult{
				Recipient: recipient,
				Status:    models.DispatchSkipped,
				Reason:    models.ReasonCooldownActive,
			}
		}
	}

	if s.sender == nil {
		if !opts.BypassCooldown {
			s.dedup.Fail(machineID, recipient)
		}
		return models.DispatchResult{
			Recipient: recipient,
			Status:    models.DispatchFailed,
			Error:     mailer.ErrNotConfigured.Error(),
		}
	}

	s.sendSlots <- struct{}{}
	messageID, err := s.sender.Send(recipient, msg)
	<-s.sendSlots

	if err != nil {
		if !opts.BypassCooldown {
			s.dedup.Fail(machineID, recipient)
		}
		return models.DispatchResult{
			Recipient: recipient,
			Status:    models.DispatchFailed,
			Error:     err.Error(),
		}
	}

	if !opts.BypassCooldown {
		s.dedup.Succeed(machineID, recipient, s.now())
	}
	return models.DispatchResult{
		Recipient: recipient,
		Status:    models.DispatchSent,
		MessageID: messageID,
	}
}

func (s *Service) buildAlert(state models.MachineState) *models.Alert {
	return &models.Alert{
		ID:          uuid.New().String(),
		MachineID:   state.Profile.MachineID,
		MachineName: state.Profile.Name,
		Severity:    state.Prediction.Status,
		Message:     alertMessage(state),
		RootCause:   state.Prediction.RootCause,
		Health:      state.Prediction.HealthPercentage,
		Timestamp:   s.now(),
	}
}

func alertMessage(state models.MachineState) string {
	if state.Prediction.Status == models.StatusCritical {
		return fmt.Sprintf("CRITICAL: Immediate maintenance required, health at %d%%",
			state.Prediction.HealthPercentage)
	}
	cause := state.Prediction.RootCause
	if cause == "" {
		cause = "Schedule maintenance soon"
	}
	return fmt.Sprintf("WARNING: %s, health at %d%%", cause, state.Prediction.HealthPercentage)
}
