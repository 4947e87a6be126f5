package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"beleg/internal/match"
	"beleg/internal/model"
	"beleg/internal/provider"
	"beleg/internal/repository"
	"beleg/internal/service"
	serviceMocks "beleg/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app     *fiber.App
	dbMock  sqlmock.Sqlmock
	orgSvc  *serviceMocks.MockOrganisationService
	docSvc  *serviceMocks.MockDocumentService
	syncSvc *serviceMocks.MockSyncService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ta := &testApp{
		app:     fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		dbMock:  dbMock,
		orgSvc:  new(serviceMocks.MockOrganisationService),
		docSvc:  new(serviceMocks.MockDocumentService),
		syncSvc: new(serviceMocks.MockSyncService),
	}
	RegisterRoutes(ta.app, db, ta.orgSvc, ta.docSvc, ta.syncSvc)
	return ta
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	ta := newTestApp(t)

	t.Run("healthy", func(t *testing.T) {
		ta.dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		ta.dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := ta.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateOrganisation(t *testing.T) {
	ta := newTestApp(t)

	t.Run("success", func(t *testing.T) {
		expected := &model.Organisation{ID: uuid.New().String(), Name: "ACME GmbH"}
		ta.orgSvc.On("Create", mock.Anything, "ACME GmbH").Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations", strings.NewReader(`{"name":"ACME GmbH"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Organisation
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		ta.orgSvc.AssertExpectations(t)
	})

	t.Run("empty name", func(t *testing.T) {
		ta.orgSvc.On("Create", mock.Anything, "").Return(nil, service.ErrValidation).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp).Error.Code)
		ta.orgSvc.AssertExpectations(t)
	})
}

func TestGetOrganisation(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		ta.orgSvc.On("Get", mock.Anything, orgID).Return(&model.Organisation{ID: orgID, Name: "ACME"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		ta.orgSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		ta.orgSvc.On("Get", mock.Anything, orgID).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/organisations/not-a-uuid", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})
}

func TestUploadDocument(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()

	multipartBody := func(filename, content string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", filename)
		part.Write([]byte(content))
		writer.Close()
		return body, writer.FormDataContentType()
	}

	t.Run("success", func(t *testing.T) {
		expected := &model.Document{ID: uuid.New().String(), OrganisationID: orgID, DocumentID: 1}
		ta.docSvc.On("CreateFromUpload", mock.Anything, orgID, []byte("%PDF-1.4"), mock.Anything).Return(expected, nil).Once()

		body, ct := multipartBody("invoice.pdf", "%PDF-1.4")
		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result.ID)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("duplicate content", func(t *testing.T) {
		ta.docSvc.On("CreateFromUpload", mock.Anything, orgID, mock.Anything, mock.Anything).Return(nil, service.ErrDuplicate).Once()

		body, ct := multipartBody("invoice.pdf", "%PDF-1.4 same bytes")
		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "DUPLICATE", decodeError(t, resp).Error.Code)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("allocation conflict", func(t *testing.T) {
		ta.docSvc.On("CreateFromUpload", mock.Anything, orgID, mock.Anything, mock.Anything).Return(nil, service.ErrAllocationConflict).Once()

		body, ct := multipartBody("invoice.pdf", "%PDF-1.4 contended")
		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "ALLOCATION_CONFLICT", decodeError(t, resp).Error.Code)
	})
}

func TestListDocuments(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()

	t.Run("success with filters", func(t *testing.T) {
		expectedQuery := repository.DocumentQuery{
			Status:    model.StatusUnmatched,
			Type:      model.TypeInvoice,
			Search:    "acme",
			PageQuery: repository.PageQuery{Limit: 20, Offset: 40},
		}
		expected := &repository.PageResult[model.Document]{
			Items: []model.Document{{ID: uuid.New().String(), DocumentID: 7}},
			Total: 1,
		}
		ta.docSvc.On("List", mock.Anything, orgID, expectedQuery).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents?status=unmatched&type=invoice&search=acme&limit=20&offset=40", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result repository.PageResult[model.Document]
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents?limit=abc", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents?offset=xyz", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Error.Code)
	})
}

func TestGetDocument(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		ta.docSvc.On("Get", mock.Anything, orgID, id).Return(&model.Document{ID: id}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/"+id, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		ta.docSvc.On("Get", mock.Anything, orgID, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/"+id, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/invalid-uuid", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		ta.docSvc.On("Get", mock.Anything, orgID, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/"+id, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
	})
}

func TestDownloadURL(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()

	ta.docSvc.On("DownloadURL", mock.Anything, orgID, id).Return("https://minio.local/presigned", nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/"+id+"/download", nil)
	resp, _ := ta.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "https://minio.local/presigned", body["url"])
	ta.docSvc.AssertExpectations(t)
}

func TestRankCandidates(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()

	t.Run("passes limit through", func(t *testing.T) {
		ta.docSvc.On("RankCandidates", mock.Anything, orgID, id, 3).Return([]match.Candidate{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/"+id+"/candidates?limit=3", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("target must be unmatched", func(t *testing.T) {
		ta.docSvc.On("RankCandidates", mock.Anything, orgID, id, 0).Return(nil, service.ErrValidation).Once()

		req := httptest.NewRequest(http.MethodGet, "/organisations/"+orgID+"/documents/"+id+"/candidates", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp).Error.Code)
	})
}

func TestLinkDocuments(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()
	other := uuid.New().String()

	linkBody := func(counterpart string) *strings.Reader {
		return strings.NewReader(`{"linked_document_id":"` + counterpart + `"}`)
	}

	t.Run("success", func(t *testing.T) {
		ta.docSvc.On("Link", mock.Anything, orgID, id, other).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents/"+id+"/link", linkBody(other))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("already matched", func(t *testing.T) {
		ta.docSvc.On("Link", mock.Anything, orgID, id, other).Return(service.ErrAlreadyMatched).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents/"+id+"/link", linkBody(other))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "ALREADY_MATCHED", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid counterpart id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents/"+id+"/link", linkBody("nope"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("unlink not matched", func(t *testing.T) {
		ta.docSvc.On("Unlink", mock.Anything, orgID, id, other).Return(service.ErrNotMatched).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/documents/"+id+"/unlink", linkBody(other))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "NOT_MATCHED", decodeError(t, resp).Error.Code)
	})
}

func TestDocumentStateActions(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()
	base := "/organisations/" + orgID + "/documents/" + id

	t.Run("ignore", func(t *testing.T) {
		ta.docSvc.On("Ignore", mock.Anything, orgID, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, base+"/ignore", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("ignore rejected for matched document", func(t *testing.T) {
		ta.docSvc.On("Ignore", mock.Anything, orgID, id).Return(service.ErrValidation).Once()

		req := httptest.NewRequest(http.MethodPost, base+"/ignore", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("later", func(t *testing.T) {
		ta.docSvc.On("Defer", mock.Anything, orgID, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, base+"/later", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("retry extraction", func(t *testing.T) {
		ta.docSvc.On("RetryExtraction", mock.Anything, orgID, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, base+"/retry-extraction", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	ta.docSvc.AssertExpectations(t)
}

func TestPatchDocument(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		ta.docSvc.On("Update", mock.Anything, orgID, id, mock.MatchedBy(func(p repository.DocumentPatch) bool {
			return p.Note != nil && *p.Note == "paid in cash" && p.Amount != nil && *p.Amount == "12.50"
		})).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/organisations/"+orgID+"/documents/"+id,
			strings.NewReader(`{"note":"paid in cash","amount":"12.50"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("malformed amount", func(t *testing.T) {
		ta.docSvc.On("Update", mock.Anything, orgID, id, mock.Anything).Return(service.ErrValidation).Once()

		req := httptest.NewRequest(http.MethodPatch, "/organisations/"+orgID+"/documents/"+id,
			strings.NewReader(`{"amount":"not-a-number"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp).Error.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		ta.docSvc.On("SoftDelete", mock.Anything, orgID, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/organisations/"+orgID+"/documents/"+id, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		ta.docSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		ta.docSvc.On("SoftDelete", mock.Anything, orgID, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/organisations/"+orgID+"/documents/"+id, nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})
}

func TestSyncOrganisation(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		summary := &model.SyncSummary{Processed: 3, SkippedDuplicate: 1}
		ta.syncSvc.On("SyncOrganisation", mock.Anything, orgID).Return(summary, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/sync", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.SyncSummary
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, 3, result.Processed)
		assert.Equal(t, 1, result.SkippedDuplicate)
		ta.syncSvc.AssertExpectations(t)
	})

	t.Run("sync already running", func(t *testing.T) {
		ta.syncSvc.On("SyncOrganisation", mock.Anything, orgID).Return(nil, service.ErrSyncInProgress).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/sync", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "SYNC_IN_PROGRESS", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown organisation", func(t *testing.T) {
		ta.syncSvc.On("SyncOrganisation", mock.Anything, orgID).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/sync", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBankConnectionFlow(t *testing.T) {
	ta := newTestApp(t)
	orgID := uuid.New().String()

	t.Run("list institutions", func(t *testing.T) {
		institutions := []provider.Institution{{ID: "SANDBOX_SFIN0000", Name: "Sandbox Bank"}}
		ta.syncSvc.On("ListInstitutions", mock.Anything, "DE").Return(institutions, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/institutions", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []provider.Institution
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result, 1)
		assert.Equal(t, "SANDBOX_SFIN0000", result[0].ID)
	})

	t.Run("connect", func(t *testing.T) {
		requisition := &provider.Requisition{ID: "req-1", Status: "CR", Link: "https://bank.example/auth"}
		ta.syncSvc.On("ConnectBank", mock.Anything, orgID, "SANDBOX_SFIN0000", "https://app.example/done").
			Return(requisition, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/bank-connections",
			strings.NewReader(`{"institution_id":"SANDBOX_SFIN0000","redirect_url":"https://app.example/done"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result provider.Requisition
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "https://bank.example/auth", result.Link)
	})

	t.Run("connect without institution", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/bank-connections", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})

	t.Run("complete returns the connected account details", func(t *testing.T) {
		accounts := []provider.Account{
			{ID: "acct-1", IBAN: "DE02120300000000202051", OwnerName: "Muster GmbH"},
			{ID: "acct-2", IBAN: "DE02500105170137075030"},
		}
		ta.syncSvc.On("CompleteBankConnection", mock.Anything, orgID, "req-1").Return(accounts, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/organisations/"+orgID+"/bank-connections/req-1/complete", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Accounts []provider.Account `json:"accounts"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		require.Len(t, body.Accounts, 2)
		assert.Equal(t, "DE02120300000000202051", body.Accounts[0].IBAN)
		assert.Equal(t, "Muster GmbH", body.Accounts[0].OwnerName)
		assert.Equal(t, "acct-2", body.Accounts[1].ID)
	})

	ta.syncSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	ta := newTestApp(t)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := ta.app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})
}
