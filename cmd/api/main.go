package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BruksfildServices01/service-marketplace/internal/audit"
	"github.com/BruksfildServices01/service-marketplace/internal/broker"
	"github.com/BruksfildServices01/service-marketplace/internal/config"
	dbpkg "github.com/BruksfildServices01/service-marketplace/internal/db"
	"github.com/BruksfildServices01/service-marketplace/internal/handlers"
	"github.com/BruksfildServices01/service-marketplace/internal/infra/repository"
	"github.com/BruksfildServices01/service-marketplace/internal/jobs"
	"github.com/BruksfildServices01/service-marketplace/internal/logger"
	"github.com/BruksfildServices01/service-marketplace/internal/notify"
	"github.com/BruksfildServices01/service-marketplace/internal/outbox"
	"github.com/BruksfildServices01/service-marketplace/internal/realtime"
	"github.com/BruksfildServices01/service-marketplace/internal/routes"
	"github.com/BruksfildServices01/service-marketplace/internal/storage"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
	ucAppointment "github.com/BruksfildServices01/service-marketplace/internal/usecase/appointment"
	ucBackjob "github.com/BruksfildServices01/service-marketplace/internal/usecase/backjob"
	ucConversation "github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/validators"
)

const (
	reconcilePageSize = 100
	sweepBatchSize    = 100
	shutdownTimeout   = 15 * time.Second
)

func main() {

	cfg := config.Load()
	timezone.SetDefault(cfg.Timezone)

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {

	// ======================================================
	// 🔧 INFRA
	// ======================================================
	if err := validators.Register(); err != nil {
		return err
	}

	db, err := dbpkg.NewDB(cfg, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store := repository.NewStore(db)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger, log.Named("audit"))
	defer auditDispatcher.Close()

	// ======================================================
	// 🧠 USE CASES
	// ======================================================
	lifecycle := ucConversation.NewLifecycle(store, store, timezone.Now, log.Named("conversation"))

	apDeps := ucAppointment.Deps{
		Repo:   store,
		Outbox: store,
		Audit:  auditDispatcher,
		Hook:   lifecycle,
		Clock:  timezone.Now,
		Log:    log.Named("appointment"),
	}
	bjDeps := ucBackjob.Deps{
		Repo:   store,
		Outbox: store,
		Audit:  auditDispatcher,
		Hook:   lifecycle,
		Clock:  timezone.Now,
		Log:    log.Named("backjob"),
	}

	messages := ucConversation.NewMessages(lifecycle)

	// ======================================================
	// 📣 OUTBOX RELAY (notificações, websocket, kafka)
	// ======================================================
	relay := outbox.NewRelay(store, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	}, log.Named("outbox"))

	var mailer notify.Mailer = notify.NewLogMailer(log.Named("mail"))
	if cfg.SMTP.Enabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTP)
	}
	var pusher notify.Pusher = notify.NoopPusher{}
	if cfg.Push.URL != "" {
		pusher = notify.NewExpoPusher(cfg.Push)
	}

	notifier := notify.NewNotifier(store, mailer, pusher, log.Named("notify"))
	for _, t := range notifier.Types() {
		relay.Subscribe(t, notifier)
	}

	hub := realtime.NewHub(log.Named("realtime"))
	for _, t := range hub.Types() {
		relay.Subscribe(t, hub)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink := broker.NewKafkaSink(broker.NewKafkaWriter(cfg.Kafka.Brokers), cfg.Kafka.TopicPrefix)
		defer sink.Close()
		relay.SubscribeAll(sink)
		log.Info("kafka sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// ======================================================
	// ⏰ JOBS (reconcile + sweep)
	// ======================================================
	var locker jobs.Locker = jobs.NewLocalLocker()
	if cfg.Jobs.RedisURL != "" {
		client, err := jobs.NewRedisClient(cfg.Jobs.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = jobs.NewRedisLocker(client)
	}

	sweeper := jobs.NewSweeper(
		ucConversation.NewReconcile(lifecycle, reconcilePageSize),
		ucAppointment.NewSweepExpiredWarranties(apDeps, sweepBatchSize),
		locker,
		cfg.Jobs.LockTTL,
		log.Named("jobs"),
	)

	runner, err := jobs.NewRunner(cfg.Jobs, sweeper, log.Named("jobs"))
	if err != nil {
		return err
	}

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	var uploader handlers.EvidenceUploader
	if cfg.S3.Enabled() {
		uploader = storage.NewEvidenceUploader(storage.NewS3Store(cfg.S3), cfg.S3.MaxDimension)
	}

	h := routes.Handlers{
		Appointment: handlers.NewAppointmentHandler(handlers.AppointmentUseCases{
			Create:       ucAppointment.NewCreateAppointment(apDeps),
			List:         ucAppointment.NewListAppointments(store),
			Get:          ucAppointment.NewGetAppointment(store),
			UpdateStatus: ucAppointment.NewUpdateAppointmentStatus(apDeps),
			Cancel:       ucAppointment.NewCancelAppointment(apDeps),
			Complete:     ucAppointment.NewCustomerCompleteAppointment(apDeps),
			Reschedule:   ucAppointment.NewRescheduleFromBackjob(apDeps, store),
		}, timezone.Now, log),
		Backjob: handlers.NewBackjobHandler(handlers.BackjobUseCases{
			Apply:   ucBackjob.NewApplyBackjob(bjDeps),
			Get:     ucBackjob.NewGetBackjob(store),
			Dispute: ucBackjob.NewDisputeBackjob(bjDeps),
			Cancel:  ucBackjob.NewCancelBackjobByCustomer(bjDeps),
		}, uploader, log),
		AdminBackjob: handlers.NewAdminBackjobHandler(handlers.AdminBackjobUseCases{
			List:    ucBackjob.NewListBackjobs(store),
			Update:  ucBackjob.NewAdminUpdateBackjob(bjDeps),
			Approve: ucBackjob.NewAdminApproveDispute(bjDeps),
			Reject:  ucBackjob.NewAdminRejectDispute(bjDeps),
		}, log),
		AdminJobs:    handlers.NewAdminJobsHandler(sweeper, log),
		AuditLogs:    handlers.NewAuditLogsHandler(auditLogger, log),
		Conversation: handlers.NewConversationHandler(messages, hub, log),
		Health:       handlers.NewHealthHandler(sqlDB),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	routes.RegisterRoutes(r, h, cfg.JWTSecret, log.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ======================================================
	// 🚀 RUN
	// ======================================================
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server running", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return runner.Run(gctx) })

	return g.Wait()
}
