package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"beleg/internal/cache"
	"beleg/internal/config"
	"beleg/internal/lease"
	"beleg/internal/metrics"
	"beleg/internal/model"
	"beleg/internal/provider"
	"beleg/internal/repository"
	"beleg/internal/storage"
)

const (
	sourceBank    = "bank"
	sourceMail    = "mail"
	sourcePayment = "payment"

	mailPageSize = 50
)

// SyncService pulls external records for one organisation into documents.
// A run holds the organisation's lease, tolerates item-level failures, and
// returns a structured summary.
type SyncService interface {
	SyncOrganisation(ctx context.Context, organisationID string) (*model.SyncSummary, error)
	ListInstitutions(ctx context.Context, country string) ([]provider.Institution, error)
	ConnectBank(ctx context.Context, organisationID, institutionID, redirectURL string) (*provider.Requisition, error)
	CompleteBankConnection(ctx context.Context, organisationID, requisitionID string) ([]provider.Account, error)
}

type syncService struct {
	organisations repository.OrganisationRepository
	documents     repository.DocumentRepository
	store         storage.Storage
	cache         *cache.Store
	leases        *lease.Registry
	bank          provider.BankDataProvider
	mail          provider.MailProvider
	payment       provider.PaymentProvider
	queue         ExtractionQueue
	metrics       *metrics.Metrics
	cfg           config.SyncConfig
	logger        *log.Logger
	now           func() time.Time
}

func NewSyncService(
	organisations repository.OrganisationRepository,
	documents repository.DocumentRepository,
	store storage.Storage,
	cacheStore *cache.Store,
	leases *lease.Registry,
	bank provider.BankDataProvider,
	mail provider.MailProvider,
	payment provider.PaymentProvider,
	queue ExtractionQueue,
	m *metrics.Metrics,
	cfg config.SyncConfig,
	logger *log.Logger,
) SyncService {
	return &syncService{
		organisations: organisations,
		documents:     documents,
		store:         store,
		cache:         cacheStore,
		leases:        leases,
		bank:          bank,
		mail:          mail,
		payment:       payment,
		queue:         queue,
		metrics:       m,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// SyncOrganisation runs one full ingestion cycle over all connected sources.
// Only one run per organisation may be in flight; overlapping calls get
// ErrSyncInProgress. Item-level failures land in the summary, never abort
// the run.
func (s *syncService) SyncOrganisation(ctx context.Context, organisationID string) (*model.SyncSummary, error) {
	if _, err := s.organisations.FindByID(ctx, organisationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: organisation %s", ErrNotFound, organisationID)
		}
		return nil, err
	}

	if !s.leases.TryAcquire(organisationID) {
		return nil, ErrSyncInProgress
	}
	defer s.leases.Release(organisationID)

	start := s.now()
	summary := &model.SyncSummary{}

	if err := s.syncBankTransactions(ctx, organisationID, summary); err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := s.syncMailInvoices(ctx, organisationID, summary); err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := s.syncPaymentInvoices(ctx, organisationID, summary); err != nil {
		s.metrics.SyncRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	s.metrics.SyncRuns.WithLabelValues("success").Inc()
	s.logger.Info("sync run finished",
		"organisation", organisationID,
		"processed", summary.Processed,
		"skipped", summary.SkippedDuplicate,
		"failed", summary.Failed,
		"duration", s.now().Sub(start))
	return summary, nil
}

// ListInstitutions lists banks selectable for a new connection.
func (s *syncService) ListInstitutions(ctx context.Context, country string) ([]provider.Institution, error) {
	token, err := s.bank.GetAccessToken(ctx)
	if err != nil {
		return nil, s.mapProviderError(err)
	}
	institutions, err := s.bank.ListInstitutions(ctx, token, country)
	if err != nil {
		return nil, s.mapProviderError(err)
	}
	return institutions, nil
}

// ConnectBank starts the bank authorization flow and returns the requisition
// carrying the redirect link.
func (s *syncService) ConnectBank(ctx context.Context, organisationID, institutionID, redirectURL string) (*provider.Requisition, error) {
	if _, err := s.organisations.FindByID(ctx, organisationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: organisation %s", ErrNotFound, organisationID)
		}
		return nil, err
	}
	token, err := s.bank.GetAccessToken(ctx)
	if err != nil {
		return nil, s.mapProviderError(err)
	}
	req, err := s.bank.CreateRequisition(ctx, token, institutionID, redirectURL)
	if err != nil {
		return nil, s.mapProviderError(err)
	}
	return req, nil
}

// CompleteBankConnection resolves the finished requisition, loads the details
// of each connected account, and persists the account ids for future sync
// runs.
func (s *syncService) CompleteBankConnection(ctx context.Context, organisationID, requisitionID string) ([]provider.Account, error) {
	token, err := s.bank.GetAccessToken(ctx)
	if err != nil {
		return nil, s.mapProviderError(err)
	}
	req, err := s.bank.GetRequisition(ctx, token, requisitionID)
	if err != nil {
		return nil, s.mapProviderError(err)
	}
	if len(req.AccountIDs) == 0 {
		return nil, fmt.Errorf("%w: requisition %s has no linked accounts", ErrValidation, requisitionID)
	}
	accounts := make([]provider.Account, 0, len(req.AccountIDs))
	for _, accountID := range req.AccountIDs {
		acct, err := s.bank.GetAccount(ctx, token, accountID)
		if err != nil {
			return nil, s.mapProviderError(err)
		}
		accounts = append(accounts, *acct)
	}
	if err := s.cache.Set(ctx, connectedAccountsKey(organisationID), req.AccountIDs, 0); err != nil {
		return nil, err
	}
	return accounts, nil
}

func connectedAccountsKey(organisationID string) string {
	return "gocardless-accounts-" + organisationID
}

func transactionsCacheKey(organisationID, accountID string, day time.Time) string {
	return fmt.Sprintf("gocardless-transactions-%s-%s-%s", organisationID, accountID, day.Format("2006-01-02"))
}

func processedMailKey(organisationID, emailID string) string {
	return fmt.Sprintf("gmail-processed-%s-%s", organisationID, emailID)
}

func processedInvoiceKey(organisationID, invoiceID string) string {
	return fmt.Sprintf("stripe-processed-%s-%s", organisationID, invoiceID)
}

// naturalKey derives the dedup key for a pulled bank record: provider
// internal id first, then the public transaction id, then a composite of the
// booking facts.
func naturalKey(tx provider.RawTransaction) string {
	if tx.InternalTransactionID != "" {
		return tx.InternalTransactionID
	}
	if tx.TransactionID != "" {
		return tx.TransactionID
	}
	return fmt.Sprintf("%s-%s-%s", tx.BookingDate, tx.Amount, tx.Currency)
}

func (s *syncService) syncBankTransactions(ctx context.Context, organisationID string, summary *model.SyncSummary) error {
	token, err := s.bank.GetAccessToken(ctx)
	if errors.Is(err, provider.ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return s.mapProviderError(err)
	}

	var accountIDs []string
	if err := s.cache.Get(ctx, connectedAccountsKey(organisationID), &accountIDs); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return err
	}

	firstSync, err := s.isFirstBankSync(ctx, organisationID)
	if err != nil {
		return err
	}

	for _, accountID := range accountIDs {
		txs, err := s.fetchTransactions(ctx, token, organisationID, accountID, firstSync)
		if err != nil {
			summary.Failed++
			summary.Details = append(summary.Details, model.SyncFailure{
				Source: sourceBank, ItemID: accountID, Error: err.Error(),
			})
			continue
		}
		if firstSync {
			reverse(txs)
		}
		for _, tx := range txs {
			s.ingestTransaction(ctx, organisationID, tx, summary)
		}
	}
	return nil
}

func (s *syncService) isFirstBankSync(ctx context.Context, organisationID string) (bool, error) {
	exists, err := s.documents.Exists(ctx, organisationID, model.TypeBankTransaction)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// fetchTransactions serves the day's fetch from cache when possible; a
// throttled provider reads as an empty day, and the empty result is not
// cached so a later cycle retries.
func (s *syncService) fetchTransactions(ctx context.Context, token, organisationID, accountID string, firstSync bool) ([]provider.RawTransaction, error) {
	key := transactionsCacheKey(organisationID, accountID, s.now())

	var cached []provider.RawTransaction
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}

	txs, err := s.bank.ListTransactions(ctx, token, accountID, !firstSync)
	if errors.Is(err, provider.ErrRateLimited) {
		s.logger.Warn("bank provider throttled, skipping cycle",
			"organisation", organisationID, "account", accountID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, txs, s.cfg.TransactionCacheTTL); err != nil {
		s.logger.Warn("failed to cache transaction fetch", "key", key, "err", err)
	}
	return txs, nil
}

func (s *syncService) ingestTransaction(ctx context.Context, organisationID string, tx provider.RawTransaction, summary *model.SyncSummary) {
	key := naturalKey(tx)

	_, err := s.documents.FindByExternalID(ctx, organisationID, model.TypeBankTransaction, key)
	if err == nil {
		summary.SkippedDuplicate++
		s.metrics.DuplicatesSkipped.WithLabelValues(sourceBank).Inc()
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.recordFailure(summary, sourceBank, key, err)
		return
	}

	doc, err := transactionToDocument(organisationID, tx)
	if err != nil {
		s.recordFailure(summary, sourceBank, key, err)
		return
	}

	if _, err := createWithSequenceRetry(ctx, s.documents, doc); err != nil {
		if errors.Is(err, ErrDuplicate) {
			summary.SkippedDuplicate++
			s.metrics.DuplicatesSkipped.WithLabelValues(sourceBank).Inc()
			return
		}
		s.recordFailure(summary, sourceBank, key, err)
		return
	}

	summary.Processed++
	s.metrics.DocumentsIngested.WithLabelValues(sourceBank).Inc()
}

// transactionToDocument canonicalizes a raw bank record. Synced records are
// already structured, so they start unmatched with no extraction step.
func transactionToDocument(organisationID string, tx provider.RawTransaction) (*model.Document, error) {
	amount, err := decimal.NewFromString(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrValidation, tx.Amount)
	}

	doc := &model.Document{
		ID:             uuid.NewString(),
		OrganisationID: organisationID,
		Type:           model.TypeBankTransaction,
		Status:         model.StatusUnmatched,
		Amount:         amount,
		Currency:       tx.Currency,
		SenderName:     strings.TrimSpace(tx.CounterpartyName),
		Description:    strings.TrimSpace(tx.RemittanceText),
		ExternalID:     naturalKey(tx),
	}
	if tx.BookingDate != "" {
		date, err := time.Parse("2006-01-02", tx.BookingDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid booking date %q", ErrValidation, tx.BookingDate)
		}
		doc.Date = &date
	}
	return doc, nil
}

func (s *syncService) syncMailInvoices(ctx context.Context, organisationID string, summary *model.SyncSummary) error {
	token, err := s.mail.GetAccessToken(ctx, organisationID)
	if errors.Is(err, provider.ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return s.mapProviderError(err)
	}

	pageToken := ""
	for {
		page, err := s.mail.ListEmailsWithAttachments(ctx, token, mailPageSize, pageToken)
		if errors.Is(err, provider.ErrRateLimited) {
			return nil
		}
		if err != nil {
			return s.mapProviderError(err)
		}

		for _, emailID := range page.MessageIDs {
			s.ingestEmail(ctx, token, organisationID, emailID, summary)
		}

		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *syncService) ingestEmail(ctx context.Context, token, organisationID, emailID string, summary *model.SyncSummary) {
	var done bool
	if err := s.cache.Get(ctx, processedMailKey(organisationID, emailID), &done); err == nil {
		return
	}

	msg, err := s.mail.ProcessEmail(ctx, token, emailID)
	if err != nil {
		s.recordFailure(summary, sourceMail, emailID, err)
		return
	}

	failed := false
	for _, att := range msg.Attachments {
		if !isPDF(att) {
			continue
		}
		if err := s.ingestInvoiceFile(ctx, organisationID, sourceMail, att.Data, att.ContentType, summary); err != nil {
			s.recordFailure(summary, sourceMail, emailID+"/"+att.Filename, err)
			failed = true
		}
	}

	// failed attachments keep the email unmarked so the next run retries it
	if !failed {
		if err := s.cache.Set(ctx, processedMailKey(organisationID, emailID), true, s.cfg.ProcessedMailTTL); err != nil {
			s.logger.Warn("failed to mark email processed", "email", emailID, "err", err)
		}
	}
}

func isPDF(att provider.MailAttachment) bool {
	return att.ContentType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(att.Filename), ".pdf")
}

func (s *syncService) syncPaymentInvoices(ctx context.Context, organisationID string, summary *model.SyncSummary) error {
	apiKey, err := s.payment.GetAccessToken(ctx, organisationID)
	if errors.Is(err, provider.ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return s.mapProviderError(err)
	}

	invoices, err := s.payment.ListPaidInvoices(ctx, apiKey)
	if errors.Is(err, provider.ErrRateLimited) {
		return nil
	}
	if err != nil {
		return s.mapProviderError(err)
	}

	for _, inv := range invoices {
		var done bool
		if err := s.cache.Get(ctx, processedInvoiceKey(organisationID, inv.ID), &done); err == nil {
			continue
		}

		pdf, err := s.payment.FetchInvoicePDF(ctx, apiKey, inv.ID)
		if err != nil {
			s.recordFailure(summary, sourcePayment, inv.ID, err)
			continue
		}
		if err := s.ingestInvoiceFile(ctx, organisationID, sourcePayment, pdf, "application/pdf", summary); err != nil {
			s.recordFailure(summary, sourcePayment, inv.ID, err)
			continue
		}
		if err := s.cache.Set(ctx, processedInvoiceKey(organisationID, inv.ID), true, s.cfg.ProcessedMailTTL); err != nil {
			s.logger.Warn("failed to mark invoice processed", "invoice", inv.ID, "err", err)
		}
	}
	return nil
}

// ingestInvoiceFile deduplicates by content hash, stores the file, creates
// the document, and queues extraction. Duplicates count as skipped, not
// failed.
func (s *syncService) ingestInvoiceFile(ctx context.Context, organisationID, source string, data []byte, contentType string, summary *model.SyncSummary) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty attachment", ErrValidation)
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	if _, err := s.documents.FindByFileHash(ctx, organisationID, model.TypeInvoice, fileHash); err == nil {
		summary.SkippedDuplicate++
		s.metrics.DuplicatesSkipped.WithLabelValues(source).Inc()
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	id := uuid.NewString()
	fileRef := fmt.Sprintf("documents/%s/%s.pdf", organisationID, id)
	if _, err := s.store.Put(ctx, fileRef, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	doc := &model.Document{
		ID:             id,
		OrganisationID: organisationID,
		Type:           model.TypeInvoice,
		Status:         model.StatusLoading,
		FileHash:       fileHash,
		FileRef:        fileRef,
	}
	if _, err := createWithSequenceRetry(ctx, s.documents, doc); err != nil {
		_ = s.store.Delete(ctx, fileRef)
		if errors.Is(err, ErrDuplicate) {
			summary.SkippedDuplicate++
			s.metrics.DuplicatesSkipped.WithLabelValues(source).Inc()
			return nil
		}
		return err
	}

	summary.Processed++
	s.metrics.DocumentsIngested.WithLabelValues(source).Inc()
	s.queue.Enqueue(organisationID, id)
	return nil
}

func (s *syncService) recordFailure(summary *model.SyncSummary, source, itemID string, err error) {
	summary.Failed++
	summary.Details = append(summary.Details, model.SyncFailure{
		Source: source, ItemID: itemID, Error: err.Error(),
	})
	s.logger.Error("sync item failed", "source", source, "item", itemID, "err", err)
}

func (s *syncService) mapProviderError(err error) error {
	if errors.Is(err, provider.ErrRateLimited) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	if errors.Is(err, provider.ErrNoCredentials) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return fmt.Errorf("%w: %v", ErrExternalService, err)
}

func reverse(txs []provider.RawTransaction) {
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
}
