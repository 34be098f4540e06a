package server

import (
	"context"
	"fmt"

	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/notifier"
	"github.com/Tushar2604/SafePath/server/work"
)

const (
	BACKUP_SQLITE_DB_HANDLER   = "backupSqliteDb"
	SEND_STATUS_UPDATE_HANDLER = "sendStatusUpdateNotifications"
)

func registerJobHandlers(wpa *work.WorkerPoolAdapter) {
	wpa.Register(BACKUP_SQLITE_DB_HANDLER, backupSqliteDb)
	wpa.Register(SEND_STATUS_UPDATE_HANDLER, sendStatusUpdateNotifications)
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) {
	if !enableSqliteBackupAndSync(serverConfig) {
		return
	}

	wpa.PeriodicallyPerform(serverConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_DB_HANDLER,
		Handler: BACKUP_SQLITE_DB_HANDLER,
		Unique:  false,
		Args:    map[string]interface{}{},
	})
}

func backupSqliteDb(map[string]interface{}) error {
	if gStorage == nil {
		return nil
	}

	dbFilePath, err := models.DbFilePath(appDataDir)
	if err != nil {
		return fmt.Errorf("backupSqliteDb: %v", err)
	}

	err = gStorage.UploadFile(
		serverConfig.Google.Storage.Bucket,
		serverConfig.Google.Storage.Prefix,
		dbFilePath,
	)
	if err != nil {
		return fmt.Errorf("backupSqliteDb: %v", err)
	}

	return nil
}

// sendStatusUpdateNotifications tells every contact that was alerted
// about an emergency what its new status is
func sendStatusUpdateNotifications(args map[string]interface{}) error {
	emergencyID := args["emergency_id"]
	status := fmt.Sprintf("%v", args["status"])

	user, err := models.FindUserBy("id", args["user_id"])
	if err != nil {
		return fmt.Errorf("sendStatusUpdateNotifications: %v", err)
	}

	emergency, err := models.FindEmergencyForUser(emergencyID, user.ID)
	if err != nil {
		return fmt.Errorf("sendStatusUpdateNotifications: %v", err)
	}

	// Only contacts that got the original alert hear about the update
	notifiedContactIDs := map[uint]bool{}
	for _, notification := range emergency.ContactNotifications {
		notifiedContactIDs[notification.ContactID] = true
	}

	contacts, err := user.ActiveContacts()
	if err != nil {
		return fmt.Errorf("sendStatusUpdateNotifications: %v", err)
	}

	for _, contact := range contacts {
		if !notifiedContactIDs[contact.ID] {
			continue
		}

		results := notifierService.SendStatusUpdate(context.Background(), contact, user, emergency, status)
		method, deliveryStatus := notifier.DeliveredMethod(results)
		if err := emergency.RecordNotification(contact.ID, method, deliveryStatus); err != nil {
			logg.Error(err)
		}
	}

	return nil
}

func jobParamsForStatusUpdate(emergency *models.Emergency, userID uint, status string) work.JobParams {
	return work.JobParams{
		Name:    fmt.Sprintf("%v-%v", SEND_STATUS_UPDATE_HANDLER, emergency.ID),
		Handler: SEND_STATUS_UPDATE_HANDLER,
		Args: map[string]interface{}{
			"emergency_id": emergency.ID,
			"user_id":      userID,
			"status":       status,
		},
	}
}
