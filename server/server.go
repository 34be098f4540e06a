package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Tushar2604/SafePath/server/aiassist"
	"github.com/Tushar2604/SafePath/server/auth"
	"github.com/Tushar2604/SafePath/server/auth/key"
	"github.com/Tushar2604/SafePath/server/escalation"
	"github.com/Tushar2604/SafePath/server/gstorage"
	"github.com/Tushar2604/SafePath/server/location"
	"github.com/Tushar2604/SafePath/server/logger"
	"github.com/Tushar2604/SafePath/server/mailer"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/notifier"
	"github.com/Tushar2604/SafePath/server/push"
	"github.com/Tushar2604/SafePath/server/twilio"
	"github.com/Tushar2604/SafePath/server/work"
	"github.com/Tushar2604/SafePath/server/ws"
	"github.com/Tushar2604/SafePath/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

type RequestContextKey string

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Paging  interface{} `json:"paging,omitempty"`
}

type DecodedJWT struct {
	Claims   *auth.SafePathTokenClaims
	ErrorMsg string
}

var (
	logg     = logger.NewLogger()
	validate = validator.New()

	serverConfig    *shared.ServerConfig
	appDataDir      string
	authKeyPair     *key.KeyPair
	workerPool      *work.WorkerPoolAdapter
	notifierService *notifier.Service
	locationService *location.Service
	assistClient    *aiassist.Client
	gStorage        *gstorage.GStorage
	hub             *ws.Hub
)

// Start boots the SafePath server: loads config, migrates the db,
// wires up all external clients & serves the API until interrupted.
func Start(config *viper.Viper, devMode, testMode bool) {
	var err error

	serverConfig = parseServerConfig(config)
	appDataDir = configDirectory(devMode)

	fatalOnError(RegisterValidators(validate))
	fatalOnError(models.AutoMigrate(serverConfig.Sqlite.PassPhrase, appDataDir))

	authKeyPair = loadKeyPair(serverConfig.SafePath.PrivateKeyPem)

	// testMode for external clients also kicks in when their credentials
	// are missing, so a dev setup works without any accounts
	twilioClient := twilio.NewClient(serverConfig.Twilio, testMode || serverConfig.Twilio.AccountSid == "")
	mailerClient := mailer.NewClient(serverConfig.Mailer, testMode || serverConfig.Mailer.ApiKey == "")

	pushClient, err := push.NewClient(context.Background(), serverConfig.Google.ApplicationCredentials, testMode)
	fatalOnError(err)

	locationService, err = location.NewService(serverConfig.Google.MapsApiKey)
	fatalOnError(err)

	assistClient, err = aiassist.NewClient(
		context.Background(), serverConfig.Gemini.ApiKey, serverConfig.Gemini.Model, testMode)
	fatalOnError(err)

	if enableSqliteBackupAndSync(serverConfig) {
		gStorage, err = gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
		fatalOnError(err)
	}

	notifierService = notifier.NewService(twilioClient, mailerClient, pushClient, logg)
	hub = ws.NewHub()

	workerPool = work.NewWorkerAdapter(serverConfig.SafePath.Cron.TimeZone, testMode)
	registerJobHandlers(workerPool)
	enqueueJobs(workerPool)

	escalator := escalation.NewEscalator(workerPool, notifierService, serverConfig.SafePath.Escalation)
	fatalOnError(escalator.Start())

	fatalOnError(workerPool.Start())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.SafePath.Listener.Port),
		Handler: newRouter(),
	}
	go serve(httpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cleanup(workerPool, httpServer, enableSqliteBackupAndSync(serverConfig))
}

func newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(initialContextMiddleware)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/jwks", jwksHandler).Methods("GET")
	router.HandleFunc("/signup", signUpHandler).Methods("POST")
	router.HandleFunc("/login", logInHandler).Methods("POST")

	userRouter := router.PathPrefix("/users/{uid:[0-9]+}").Subrouter()
	userRouter.Use(protectedRouteMiddleware)
	userRouter.HandleFunc("", findUserHandler).Methods("GET")
	userRouter.HandleFunc("", updateUserHandler).Methods("PUT")
	userRouter.HandleFunc("", deleteUserHandler).Methods("DELETE")
	userRouter.HandleFunc("/device-tokens", createDeviceTokenHandler).Methods("POST")

	userRouter.HandleFunc("/contacts", createContactHandler).Methods("POST")
	userRouter.HandleFunc("/contacts", listContactsHandler).Methods("GET")
	userRouter.HandleFunc("/contacts/{id:[0-9]+}", updateContactHandler).Methods("PUT")
	userRouter.HandleFunc("/contacts/{id:[0-9]+}", deleteContactHandler).Methods("DELETE")
	userRouter.HandleFunc("/contacts/{id:[0-9]+}/test", testContactHandler).Methods("POST")

	userRouter.HandleFunc("/emergencies", triggerEmergencyHandler).Methods("POST")
	userRouter.HandleFunc("/emergencies", emergencyHistoryHandler).Methods("GET")
	userRouter.HandleFunc("/emergencies/{id:[0-9]+}", findEmergencyHandler).Methods("GET")
	userRouter.HandleFunc("/emergencies/{id:[0-9]+}/status", updateEmergencyStatusHandler).Methods("PUT")
	userRouter.HandleFunc("/emergencies/{id:[0-9]+}/location", updateEmergencyLocationHandler).Methods("PUT")
	userRouter.HandleFunc("/emergencies/{id:[0-9]+}/ai-assist", aiAssistHandler).Methods("GET")
	userRouter.HandleFunc("/ai-assist", aiAssistHandler).Methods("GET")
	userRouter.HandleFunc("/emergency-services", nearbyServicesHandler).Methods("GET")
	userRouter.HandleFunc("/emergency-services/route", serviceRouteHandler).Methods("GET")

	wsRouter := router.PathPrefix("/ws").Subrouter()
	wsRouter.Use(protectedRouteMiddleware)
	wsRouter.HandleFunc("", wsHandler).Methods("GET")

	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(adminRouteMiddleware)
	adminRouter.HandleFunc("/jobs", jobsHandler).Methods("GET")
	adminRouter.HandleFunc("/jobs/stats", jobsStatsHandler).Methods("GET")
	adminRouter.HandleFunc("/emergencies/stats", emergencyStatsHandler).Methods("GET")

	return router
}

func parseServerConfig(config *viper.Viper) *shared.ServerConfig {
	parsed := shared.ServerConfig{}

	fatalOnError(config.Unmarshal(&parsed))

	if err := validate.Struct(parsed); err != nil {
		logg.Fatalf("invalid server config: %v", strings.ReplaceAll(err.Error(), "\n", "; "))
	}

	return &parsed
}

func loadKeyPair(privateKeyPem string) *key.KeyPair {
	if privateKeyPem == "" {
		logg.Warn("No privateKeyPem configured - using an ephemeral signing key, " +
			"tokens will be invalidated on restart")
		keyPair, err := key.NewRandomKeyPair()
		fatalOnError(err)
		return keyPair
	}

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(privateKeyPem)
	fatalOnError(err)
	return keyPair
}

func enableSqliteBackupAndSync(config *shared.ServerConfig) bool {
	enabled, ok := config.Google.Storage.EnableSqliteBackupAndSync.(bool)
	return ok && enabled
}

// serve starts the http server & blocks until it's shut down
func serve(server *http.Server) {
	logg.Infof("SafePath server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backupDb bool) {
	workerPool.Stop()

	if err := assistClient.Close(); err != nil {
		logg.Error(err)
	}

	if backupDb {
		if err := backupSqliteDb(nil); err != nil {
			logg.Error(err)
		}
	}

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("SafePath server shutdown failed:%+s", err)
	}

	logg.Infof("SafePath server stopped properly")
}
