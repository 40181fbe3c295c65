package controller

import (
	"errors"
	"strconv"

	"insightdocs-be/internal/dto"
	"insightdocs-be/internal/pkg/serverutils"
	"insightdocs-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultPageSize = 20

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	ChatPage(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
	jwtSecret       string
}

func NewDocumentController(documentService service.IDocumentService, jwtSecret string) IDocumentController {
	return &documentController{
		documentService: documentService,
		jwtSecret:       jwtSecret,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/documents/v1")
	h.Use(serverutils.NewJwtMiddleware(c.jwtSecret))
	h.Post("", c.Upload)
	h.Get("", c.List)
	h.Get(":id/chat", c.ChatPage)
	h.Delete(":id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	userId, ok := serverutils.UserIdFromLocals(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	req := dto.UploadDocumentRequest{
		Title:        ctx.FormValue("title"),
		OriginalName: file.Filename,
		SizeBytes:    file.Size,
		ContentType:  file.Header.Get("Content-Type"),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	content, err := file.Open()
	if err != nil {
		return err
	}
	defer content.Close()

	res, err := c.documentService.Upload(ctx.UserContext(), userId, &req, content)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success upload document", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	userId, ok := serverutils.UserIdFromLocals(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}

	req := dto.ListDocumentsRequest{
		Limit:  ctx.QueryInt("limit", defaultPageSize),
		Offset: ctx.QueryInt("offset", 0),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.List(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) ChatPage(ctx *fiber.Ctx) error {
	userId, ok := serverutils.UserIdFromLocals(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}
	documentId, err := documentIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.documentService.ChatPage(ctx.UserContext(), userId, documentId)
	if err != nil {
		return documentError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show document chat", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	userId, ok := serverutils.UserIdFromLocals(ctx)
	if !ok {
		return fiber.ErrUnauthorized
	}
	documentId, err := documentIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.documentService.Delete(ctx.UserContext(), userId, documentId); err != nil {
		return documentError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete document", nil))
}

func documentIdParam(ctx *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(ctx.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusNotFound, service.ErrDocumentNotFound.Error())
	}
	return uint(id), nil
}

// documentError hides whether a document exists from users who do not own it.
func documentError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrDocumentNotFound), errors.Is(err, service.ErrDocumentForbidden):
		return fiber.NewError(fiber.StatusNotFound, service.ErrDocumentNotFound.Error())
	default:
		return err
	}
}
