package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/controller"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	opsgrpc "github.com/vibast-solutions/ms-go-remittance/app/grpc"
	"github.com/vibast-solutions/ms-go-remittance/app/notifier"
	"github.com/vibast-solutions/ms-go-remittance/app/pricing"
	"github.com/vibast-solutions/ms-go-remittance/app/provider"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
	"github.com/vibast-solutions/ms-go-remittance/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the remittance service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// services is the wired application graph shared by serve and the job commands.
type services struct {
	payments      *service.PaymentService
	transfers     *service.TransferService
	authenticator *auth.Authenticator
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	paymentController := controller.NewPaymentController(svc.payments)
	transferController := controller.NewTransferController(svc.transfers)
	opsServer := opsgrpc.NewServer(svc.payments)

	echoInternalAccess, grpcInternalAccess, closeAuthClient := mustCreateInternalAccess(cfg)
	defer closeAuthClient()

	e := setupHTTPServer(paymentController, transferController, svc.authenticator, echoInternalAccess)
	grpcSrv, lis := setupGRPCServer(cfg, opsServer, svc.authenticator, grpcInternalAccess)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

// mustCreateInternalAccess builds the API-key checks internal services pass through
// the auth service. Without an auth service address both are nil and operator routes
// accept privileged bearer tokens only.
func mustCreateInternalAccess(cfg *config.Config) (echo.MiddlewareFunc, grpc.UnaryServerInterceptor, func()) {
	if cfg.InternalEndpoints.AuthGRPCAddr == "" {
		logrus.Info("AUTH_SERVICE_GRPC_ADDR not set, internal API-key access disabled")
		return nil, nil, func() {}
	}

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	return echoInternalAuthMiddleware.RequireInternalAccess(cfg.App.ServiceName),
		grpcInternalAuthMiddleware.UnaryRequireInternalAccess(cfg.App.ServiceName),
		func() { authGRPCClient.Close() }
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	transferController *controller.TransferController,
	authenticator *auth.Authenticator,
	internalAccess echo.MiddlewareFunc,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	requireUser := authenticator.RequireUser()
	requirePrivileged := auth.RequirePrivileged()
	requireOperator := authenticator.RequireOperator(internalAccess)

	e.GET("/health", paymentController.Health)

	payments := e.Group("/payments")
	// Webhooks authenticate through the provider signature, not a bearer token.
	payments.POST("/:provider/webhook", paymentController.HandleWebhook)
	payments.GET("", paymentController.ListPayments, requireOperator)
	payments.POST("/:provider/checkout-sessions", paymentController.CreateCheckoutSession, requireUser)
	payments.POST("/:provider/checkout/cancel", paymentController.CancelCheckout, requireUser)
	payments.POST("/:provider/payment-intents", paymentController.CreatePaymentIntent, requireUser)
	payments.GET("/:provider/sessions/:sessionId", paymentController.GetSession, requireUser)
	payments.POST("/:provider/sessions/:sessionId/reprocess", paymentController.Reprocess, requireOperator)

	transfers := e.Group("/transfers", requireUser)
	transfers.POST("", transferController.Send)
	transfers.GET("", transferController.List)
	transfers.POST("/withdraw", transferController.Withdraw, requirePrivileged)
	transfers.GET("/code/:code", transferController.ShowByCode)
	transfers.GET("/:id", transferController.Show)
	transfers.PATCH("/:id", transferController.UpdateContact)
	transfers.POST("/:id/cancel", transferController.Cancel)

	return e
}

func setupGRPCServer(
	cfg *config.Config,
	opsServer *opsgrpc.Server,
	authenticator *auth.Authenticator,
	internalAccess grpc.UnaryServerInterceptor,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			opsgrpc.RecoveryInterceptor(),
			opsgrpc.RequestIDInterceptor(),
			opsgrpc.LoggingInterceptor(),
			opsgrpc.PrivilegedAuthInterceptor(authenticator, internalAccess, types.OpsServiceHealthMethod),
		),
	)
	types.RegisterOpsServiceServer(grpcSrv, opsServer)

	return grpcSrv, lis
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	if cfg.Auth.JWTSecret == "" {
		logrus.Fatal("AUTH_JWT_SECRET environment variable is required")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	repos := bindRepositories(db)
	uow := service.NewUnitOfWork(repository.NewTxManager(db), bindRepositories)

	issuer := service.NewTransferIssuer(pricing.FeeOptions{
		PercentageFloorEnabled: cfg.Fees.PercentageFloorEnabled,
		PercentageFloor:        cfg.Fees.PercentageFloor,
	}, cfg.Transfers, cfg.Company)

	notify := mustCreateNotifier(cfg)

	stripeProvider := provider.NewStripeProvider(provider.StripeConfig{
		SecretKey:                 cfg.Stripe.SecretKey,
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
	})
	providerRegistry := provider.NewRegistry(stripeProvider)

	finalizer := service.NewFinalizer(repos, uow, issuer, notify)
	svc := &services{
		payments:      service.NewPaymentService(repos, uow, finalizer, providerRegistry, cfg.Payments, cfg.Stripe.DevMode),
		transfers:     service.NewTransferService(repos, uow, issuer, notify),
		authenticator: auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.PrivilegedRoles),
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svc, cleanup
}

func bindRepositories(db repository.DBTX) service.Repositories {
	return service.Repositories{
		PaymentRecords:    repository.NewPaymentRecordRepository(db),
		PaymentEvents:     repository.NewPaymentEventRepository(db),
		WebhookDeliveries: repository.NewWebhookDeliveryRepository(db),
		Transfers:         repository.NewTransferRepository(db),
		Invoices:          repository.NewInvoiceRepository(db),
		FeeTiers:          repository.NewFeeTierRepository(db),
		ExchangeRates:     repository.NewExchangeRateRepository(db),
		Beneficiaries:     repository.NewBeneficiaryRepository(db),
		Users:             repository.NewUserRepository(db),
	}
}

func mustCreateNotifier(cfg *config.Config) notifier.Notifier {
	if cfg.Mail.Host == "" {
		return notifier.NewLogNotifier(factory.NewModuleLogger("notifier"))
	}

	mailer, err := notifier.NewMailer(notifier.MailerConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
		Timeout:  cfg.Mail.Timeout,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize mailer")
	}
	return mailer
}
