package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"beleg/internal/model"
	"beleg/internal/repository"
	"beleg/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, call the service, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, orgSvc service.OrganisationService, docSvc service.DocumentService, syncSvc service.SyncService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Post("/organisations", func(c *fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		org, err := orgSvc.Create(c.UserContext(), body.Name)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(org)
	})

	app.Get("/organisations/:orgId", func(c *fiber.Ctx) error {
		orgID, ok := orgParam(c)
		if !ok {
			return nil
		}
		org, err := orgSvc.Get(c.UserContext(), orgID)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(org)
	})

	// Bank connection flow
	app.Get("/institutions", func(c *fiber.Ctx) error {
		country := c.Query("country", "DE")
		institutions, err := syncSvc.ListInstitutions(c.UserContext(), country)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(institutions)
	})

	app.Post("/organisations/:orgId/bank-connections", func(c *fiber.Ctx) error {
		orgID, ok := orgParam(c)
		if !ok {
			return nil
		}
		var body struct {
			InstitutionID string `json:"institution_id"`
			RedirectURL   string `json:"redirect_url"`
		}
		if err := c.BodyParser(&body); err != nil || body.InstitutionID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "institution_id is required")
		}
		req, err := syncSvc.ConnectBank(c.UserContext(), orgID, body.InstitutionID, body.RedirectURL)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	})

	app.Post("/organisations/:orgId/bank-connections/:requisitionId/complete", func(c *fiber.Ctx) error {
		orgID, ok := orgParam(c)
		if !ok {
			return nil
		}
		accounts, err := syncSvc.CompleteBankConnection(c.UserContext(), orgID, c.Params("requisitionId"))
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{"accounts": accounts})
	})

	// Sync run
	app.Post("/organisations/:orgId/sync", func(c *fiber.Ctx) error {
		orgID, ok := orgParam(c)
		if !ok {
			return nil
		}
		summary, err := syncSvc.SyncOrganisation(c.UserContext(), orgID)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(summary)
	})

	// Upload document (multipart/form-data, field name: file)
	app.Post("/organisations/:orgId/documents", func(c *fiber.Ctx) error {
		orgID, ok := orgParam(c)
		if !ok {
			return nil
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docSvc.CreateFromUpload(c.UserContext(), orgID, data, service.UploadMeta{
			Filename:    fh.Filename,
			ContentType: ct,
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// List documents with status/type/search filters
	app.Get("/organisations/:orgId/documents", func(c *fiber.Ctx) error {
		orgID, ok := orgParam(c)
		if !ok {
			return nil
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), orgID, repository.DocumentQuery{
			Status:    model.Status(c.Query("status")),
			Type:      model.DocumentType(c.Query("type")),
			Search:    c.Query("search"),
			PageQuery: repository.PageQuery{Limit: limit, Offset: offset},
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(res)
	})

	app.Get("/organisations/:orgId/documents/:id", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		doc, err := docSvc.Get(c.UserContext(), orgID, id)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(doc)
	})

	app.Get("/organisations/:orgId/documents/:id/download", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		url, err := docSvc.DownloadURL(c.UserContext(), orgID, id)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	})

	app.Get("/organisations/:orgId/documents/:id/candidates", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		candidates, err := docSvc.RankCandidates(c.UserContext(), orgID, id, limit)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(candidates)
	})

	app.Post("/organisations/:orgId/documents/:id/link", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		counterpartID, ok := counterpartFromBody(c)
		if !ok {
			return nil
		}
		if err := docSvc.Link(c.UserContext(), orgID, id, counterpartID); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/organisations/:orgId/documents/:id/unlink", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		counterpartID, ok := counterpartFromBody(c)
		if !ok {
			return nil
		}
		if err := docSvc.Unlink(c.UserContext(), orgID, id, counterpartID); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/organisations/:orgId/documents/:id/ignore", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		if err := docSvc.Ignore(c.UserContext(), orgID, id); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/organisations/:orgId/documents/:id/later", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		if err := docSvc.Defer(c.UserContext(), orgID, id); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/organisations/:orgId/documents/:id/retry-extraction", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		if err := docSvc.RetryExtraction(c.UserContext(), orgID, id); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	app.Patch("/organisations/:orgId/documents/:id", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		var body struct {
			Note          *string `json:"note"`
			RecipientName *string `json:"recipient_name"`
			Amount        *string `json:"amount"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		patch := repository.DocumentPatch{Note: body.Note, RecipientName: body.RecipientName, Amount: body.Amount}
		if err := docSvc.Update(c.UserContext(), orgID, id, patch); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/organisations/:orgId/documents/:id", func(c *fiber.Ctx) error {
		orgID, id, ok := docParams(c)
		if !ok {
			return nil
		}
		if err := docSvc.SoftDelete(c.UserContext(), orgID, id); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// orgParam validates the organisation id path parameter. On failure the
// error response has already been written and the handler returns nil.
func orgParam(c *fiber.Ctx) (string, bool) {
	orgID := c.Params("orgId")
	if _, err := uuid.Parse(orgID); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid organisation id format")
		return "", false
	}
	return orgID, true
}

func docParams(c *fiber.Ctx) (string, string, bool) {
	orgID, ok := orgParam(c)
	if !ok {
		return "", "", false
	}
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid document id format")
		return "", "", false
	}
	return orgID, id, true
}

func counterpartFromBody(c *fiber.Ctx) (string, bool) {
	var body struct {
		LinkedDocumentID string `json:"linked_document_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return "", false
	}
	if _, err := uuid.Parse(body.LinkedDocumentID); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid linked document id format")
		return "", false
	}
	return body.LinkedDocumentID, true
}

// mapServiceError translates service sentinels into HTTP responses without
// leaking internals.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrDuplicate):
		return writeError(c, fiber.StatusConflict, "DUPLICATE", "an equivalent document already exists")
	case errors.Is(err, service.ErrAlreadyMatched):
		return writeError(c, fiber.StatusConflict, "ALREADY_MATCHED", "document already holds an active link")
	case errors.Is(err, service.ErrNotMatched):
		return writeError(c, fiber.StatusConflict, "NOT_MATCHED", "documents are not linked")
	case errors.Is(err, service.ErrSyncInProgress):
		return writeError(c, fiber.StatusConflict, "SYNC_IN_PROGRESS", "a sync run is already in progress")
	case errors.Is(err, service.ErrAllocationConflict):
		return writeError(c, fiber.StatusConflict, "ALLOCATION_CONFLICT", "could not allocate a document number, retry")
	case errors.Is(err, service.ErrRateLimited):
		return writeError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "external source throttled the request")
	case errors.Is(err, service.ErrExternalService):
		return writeError(c, fiber.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", "external source failed")
	case errors.Is(err, service.ErrStorageUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "object storage unavailable")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
