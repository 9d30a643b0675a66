package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bookwell/libs/config"
	"bookwell/libs/db"
	"bookwell/libs/httpx"
	"bookwell/libs/kafkax"
	otelx "bookwell/libs/otel"
	"bookwell/libs/runtime"
	"bookwell/services/notification-service/internal/consumer"
	"bookwell/services/notification-service/internal/email"
	"bookwell/services/notification-service/internal/inbox"
	"bookwell/services/notification-service/internal/notify"
	"bookwell/services/notification-service/internal/sms"
	"bookwell/services/notification-service/internal/storage"
)

func main() {
	config.LoadDotenv()
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	repo := storage.NewRepository(pool)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@bookwell.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	smsProvider := strings.ToLower(config.String("SMS_PROVIDER", "noop"))
	var smsSender sms.Sender
	switch smsProvider {
	case "webhook":
		smsSender = sms.NewWebhookSender(
			config.String("SMS_WEBHOOK_URL", ""),
			config.String("SMS_WEBHOOK_TOKEN", ""),
		)
	default:
		smsSender = sms.NewNoopSender()
	}

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics: []string{
			notify.EventBooked,
			notify.EventCancelled,
			notify.EventRescheduled,
		},
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var evt notify.AppointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid event payload", "topic", msg.Topic, "err", err)
			return nil
		}
		if evt.AppointmentID == "" || evt.BusinessID == "" || evt.CustomerID == "" {
			logger.Error("missing event fields", "topic", msg.Topic)
			return nil
		}

		contact, found, err := repo.GetCustomerContact(ctx, evt.CustomerID)
		if err != nil {
			return err
		}
		if !found {
			logger.Warn("customer not found, skipping", "customer_id", evt.CustomerID)
			return nil
		}
		businessName, timezone, err := repo.GetBusinessDisplay(ctx, evt.BusinessID)
		if err != nil {
			return err
		}

		message, ok := notify.Compose(msg.Topic, businessName, timezone, contact.Name, evt)
		if !ok {
			logger.Error("unknown event type", "topic", msg.Topic)
			return nil
		}

		channel, recipient := "email", contact.Email
		if recipient == "" {
			channel, recipient = "sms", contact.Phone
		}
		if recipient == "" {
			logger.Info("customer has no contact details, skipping", "customer_id", evt.CustomerID)
			return nil
		}

		status, sendErr := "sent", error(nil)
		switch channel {
		case "email":
			sendErr = emailSender.Send(recipient, message.Subject, message.Body)
		case "sms":
			sendErr = smsSender.Send(ctx, recipient, message.Body)
		}
		errText := ""
		if sendErr != nil {
			status = "failed"
			errText = sendErr.Error()
			logger.Error("notification send failed", "channel", channel, "recipient", recipient, "err", sendErr)
		}

		if err := repo.Insert(ctx, storage.Notification{
			BusinessID:    evt.BusinessID,
			AppointmentID: evt.AppointmentID,
			EventType:     msg.Topic,
			Channel:       channel,
			Recipient:     recipient,
			Subject:       message.Subject,
			Body:          message.Body,
			Status:        status,
			Error:         errText,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		logger.Info("notification processed", "appointment_id", evt.AppointmentID, "channel", channel, "status", status)
		return nil
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
