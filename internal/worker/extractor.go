// Package worker runs asynchronous field extraction for uploaded documents.
// The pool bounds concurrency; each task moves its document from loading to
// unmatched (or error) on its own.
package worker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"beleg/internal/metrics"
	"beleg/internal/model"
	"beleg/internal/provider"
	"beleg/internal/repository"
	"beleg/internal/service"
	"beleg/internal/storage"
)

type ExtractorPool struct {
	documents  repository.DocumentRepository
	store      storage.Storage
	extraction provider.ExtractionService
	metrics    *metrics.Metrics
	logger     *log.Logger

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewExtractorPool builds a pool running at most workers extractions at a
// time. Enqueue blocks while the pool is saturated.
func NewExtractorPool(
	documents repository.DocumentRepository,
	store storage.Storage,
	extraction provider.ExtractionService,
	m *metrics.Metrics,
	logger *log.Logger,
	workers int,
) *ExtractorPool {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &ExtractorPool{
		documents:  documents,
		store:      store,
		extraction: extraction,
		metrics:    m,
		logger:     logger,
		group:      group,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Enqueue schedules extraction for the document. Task errors are absorbed
// into the document's status, never propagated to the group.
func (p *ExtractorPool) Enqueue(organisationID, documentID string) {
	p.group.Go(func() error {
		p.process(p.ctx, organisationID, documentID)
		return nil
	})
}

// Shutdown stops accepting work and waits for in-flight extractions.
func (p *ExtractorPool) Shutdown() {
	p.cancel()
	_ = p.group.Wait()
}

// Wait blocks until all queued extractions are done. Used by tests and by
// callers that need a drained queue.
func (p *ExtractorPool) Wait() {
	_ = p.group.Wait()
}

func (p *ExtractorPool) process(ctx context.Context, organisationID, documentID string) {
	start := time.Now()
	err := p.extract(ctx, organisationID, documentID)
	if err != nil {
		p.metrics.ExtractionRuns.WithLabelValues("error").Inc()
		p.metrics.ExtractionFailures.Inc()
		p.logger.Error("extraction failed", "document", documentID, "err", err)

		if statusErr := p.documents.UpdateStatus(ctx, organisationID, documentID, model.StatusError); statusErr != nil {
			p.logger.Error("failed to mark document errored", "document", documentID, "err", statusErr)
		}
		return
	}
	p.metrics.ExtractionRuns.WithLabelValues("success").Inc()
	p.logger.Info("extraction finished", "document", documentID, "duration", time.Since(start))
}

func (p *ExtractorPool) extract(ctx context.Context, organisationID, documentID string) error {
	doc, err := p.documents.FindByID(ctx, organisationID, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	body, _, err := p.store.Get(ctx, doc.FileRef)
	if err != nil {
		return fmt.Errorf("fetch stored file: %w", err)
	}
	defer body.Close()
	pdf, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read stored file: %w", err)
	}

	fields, err := p.extraction.ExtractFields(ctx, pdf)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrExtraction, err)
	}

	applyExtractedFields(doc, fields)
	if err := p.documents.UpdateExtractedFields(ctx, doc); err != nil {
		return fmt.Errorf("store extracted fields: %w", err)
	}
	return nil
}

func applyExtractedFields(doc *model.Document, fields *provider.ExtractedFields) {
	doc.Status = model.StatusUnmatched
	doc.Date = fields.Date
	doc.SenderName = fields.SenderName
	doc.RecipientName = fields.RecipientName
	doc.Number = fields.Number
	doc.Currency = fields.CurrencyCode
	doc.Note = fields.ShortNote
	if amount, err := decimal.NewFromString(fields.TotalAmount); err == nil {
		doc.Amount = amount
	}
}
