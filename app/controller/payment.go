package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	"github.com/vibast-solutions/ms-go-remittance/app/mapper"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// HandleWebhook acknowledges every verified event with 200 so the provider stops
// retrying, including events whose body is unusable. Only a bad signature or an
// unknown provider is answered with 400.
func (c *PaymentController) HandleWebhook(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)

	req, err := types.NewWebhookRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.HandleWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrWebhookRejected):
			logger.WithError(err).Warn("Webhook rejected")
			return writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			entry := logger.WithError(err)
			if result != nil {
				entry = entry.WithField("event_id", result.EventID)
			}
			entry.Error("Webhook processing failed")
			return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "ok"})
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "ok"})
}

func (c *PaymentController) CreateCheckoutSession(ctx echo.Context) error {
	req, err := types.NewCreateCheckoutSessionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.CreateCheckoutSession(ctx.Request().Context(), req, callerFrom(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err, "Create checkout session failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.CheckoutSessionToResponse(result))
}

func (c *PaymentController) CreatePaymentIntent(ctx echo.Context) error {
	req, err := types.NewCreatePaymentIntentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.CreatePaymentIntent(ctx.Request().Context(), req, callerFrom(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err, "Create payment intent failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentIntentToResponse(result))
}

func (c *PaymentController) CancelCheckout(ctx echo.Context) error {
	req, err := types.NewCancelCheckoutRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.CancelCheckout(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Cancel checkout failed")
	}

	return ctx.JSON(http.StatusOK, mapper.CancelCheckoutToResponse(result))
}

func (c *PaymentController) GetSession(ctx echo.Context) error {
	req, err := types.NewSessionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	caller := callerFrom(ctx)
	view, err := c.paymentService.GetSession(ctx.Request().Context(), req.GetProvider(), req.GetSessionId(), caller)
	if err != nil {
		return c.handleServiceError(ctx, err, "Get session failed")
	}

	return ctx.JSON(http.StatusOK, mapper.SessionViewToResponse(view, caller))
}

func (c *PaymentController) Reprocess(ctx echo.Context) error {
	req, err := types.NewSessionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.Reprocess(ctx.Request().Context(), req.GetSessionId())
	if err != nil {
		return c.handleServiceError(ctx, err, "Reprocess failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ReprocessToResponse(result))
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPayments(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "List payments failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentRecordsToResponse(items, req.GetLimit(), req.GetOffset()))
}

func (c *PaymentController) handleServiceError(ctx echo.Context, err error, message string) error {
	if statusCode, text, ok := serviceErrorStatus(err); ok {
		return writeError(ctx, statusCode, text)
	}
	factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(message)
	return writeError(ctx, http.StatusInternalServerError, "internal server error")
}
