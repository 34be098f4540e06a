package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/Tushar2604/SafePath/colors"
	"github.com/Tushar2604/SafePath/server/logger"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/notifier"
	"github.com/Tushar2604/SafePath/server/work"
	"github.com/Tushar2604/SafePath/shared"
)

const ESCALATE_STALE_EMERGENCIES_HANDLER = "escalateStaleEmergencies"

var logg = logger.NewLogger()

// Escalator re-notifies a user's primary contact when an emergency
// stays Active for too long without being resolved or cancelled
type Escalator struct {
	pool     *work.WorkerPoolAdapter
	notifier *notifier.Service
	config   shared.EscalationConfig
}

func NewEscalator(pool *work.WorkerPoolAdapter, notifierService *notifier.Service, config shared.EscalationConfig) *Escalator {
	if config.RenotifyAfterMinutes <= 0 {
		config.RenotifyAfterMinutes = 15
	}
	if config.CheckSchedule == "" {
		config.CheckSchedule = "*/5 * * * *"
	}

	return &Escalator{pool: pool, notifier: notifierService, config: config}
}

// Start registers the escalation handler & schedules the periodic check
func (e *Escalator) Start() error {
	err := e.pool.Register(ESCALATE_STALE_EMERGENCIES_HANDLER, e.escalateStaleEmergencies)
	if err != nil {
		return err
	}

	return e.pool.PeriodicallyPerform(e.config.CheckSchedule, work.JobParams{
		Name:    ESCALATE_STALE_EMERGENCIES_HANDLER,
		Handler: ESCALATE_STALE_EMERGENCIES_HANDLER,
		Args:    map[string]interface{}{},
	})
}

func (e *Escalator) escalateStaleEmergencies(args map[string]interface{}) error {
	cutoff := time.Now().Add(-time.Duration(e.config.RenotifyAfterMinutes) * time.Minute)

	emergencies, err := models.StaleActiveEmergencies(cutoff)
	if err != nil {
		return fmt.Errorf("escalateStaleEmergencies: %v", err)
	}

	escalatedCount := 0
	for i := range emergencies {
		if err := e.escalate(&emergencies[i]); err != nil {
			logg.Error(err)
			continue
		}
		escalatedCount++
	}

	if len(emergencies) > 0 {
		logg.Infof(colors.Blue("%v stale emergencies found, %v escalated"), len(emergencies), escalatedCount)
	}

	return nil
}

func (e *Escalator) escalate(emergency *models.Emergency) error {
	user, err := models.FindUserBy("id", emergency.UserID)
	if err != nil {
		return fmt.Errorf("escalate: %v", err)
	}

	contact, err := user.PrimaryContact()
	if err != nil {
		return fmt.Errorf("escalate: no reachable contact for user %v: %v", user.ID, err)
	}

	results := e.notifier.SendEmergencyAlert(context.Background(), *contact, user, emergency)

	method, status := notifier.DeliveredMethod(results)
	err = emergency.RecordNotification(contact.ID, method, status)
	if err != nil {
		logg.Error(err)
	}

	now := time.Now()
	return emergency.Update(map[string]interface{}{"escalated_at": &now})
}
