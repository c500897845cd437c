package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	"github.com/vibast-solutions/ms-go-remittance/app/mapper"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
)

type TransferController struct {
	transferService *service.TransferService
	logger          logrus.FieldLogger
}

func NewTransferController(transferService *service.TransferService) *TransferController {
	return &TransferController{
		transferService: transferService,
		logger:          factory.NewModuleLogger("transfers-controller"),
	}
}

func (c *TransferController) Send(ctx echo.Context) error {
	req, err := types.NewSendTransferRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	caller := callerFrom(ctx)
	item, err := c.transferService.Send(ctx.Request().Context(), req, caller)
	if err != nil {
		return c.handleServiceError(ctx, err, "Send transfer failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.TransferToResponse(item, caller))
}

func (c *TransferController) List(ctx echo.Context) error {
	req, err := types.NewListTransfersRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	caller := callerFrom(ctx)
	items, err := c.transferService.List(ctx.Request().Context(), req, caller)
	if err != nil {
		return c.handleServiceError(ctx, err, "List transfers failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TransfersToResponse(items, caller, req.GetLimit(), req.GetOffset()))
}

func (c *TransferController) Show(ctx echo.Context) error {
	req, err := types.NewTransferIdRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.transferService.Get(ctx.Request().Context(), req.GetId())
	if err != nil {
		return c.handleServiceError(ctx, err, "Get transfer failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TransferToResponse(item, callerFrom(ctx)))
}

func (c *TransferController) ShowByCode(ctx echo.Context) error {
	req, err := types.NewTransferCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.transferService.GetByCode(ctx.Request().Context(), req.GetCode())
	if err != nil {
		return c.handleServiceError(ctx, err, "Get transfer by code failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TransferToResponse(item, callerFrom(ctx)))
}

func (c *TransferController) UpdateContact(ctx echo.Context) error {
	req, err := types.NewUpdateTransferContactRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	caller := callerFrom(ctx)
	item, err := c.transferService.UpdateContact(ctx.Request().Context(), req.GetReference(), req, caller)
	if err != nil {
		return c.handleServiceError(ctx, err, "Update transfer contact failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TransferToResponse(item, caller))
}

func (c *TransferController) Cancel(ctx echo.Context) error {
	req, err := types.NewTransferIdRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	caller := callerFrom(ctx)
	item, err := c.transferService.Cancel(ctx.Request().Context(), req.GetId(), caller)
	if err != nil {
		return c.handleServiceError(ctx, err, "Cancel transfer failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TransferToResponse(item, caller))
}

func (c *TransferController) Withdraw(ctx echo.Context) error {
	req, err := types.NewTransferCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.transferService.Withdraw(ctx.Request().Context(), req.GetCode())
	if err != nil {
		return c.handleServiceError(ctx, err, "Withdraw transfer failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TransferToResponse(item, callerFrom(ctx)))
}

func (c *TransferController) handleServiceError(ctx echo.Context, err error, message string) error {
	if statusCode, text, ok := serviceErrorStatus(err); ok {
		return writeError(ctx, statusCode, text)
	}
	factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(message)
	return writeError(ctx, http.StatusInternalServerError, "internal server error")
}
