// Package pipeline runs the document workflow end to end: parse an
// incoming 810, generate its 997 acknowledgment, archive the source and
// record the outcome.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/ack"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/config"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/db"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/edi"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/pathutil"
	"github.com/shunichi-ikebuchi/edi-gateway/pkg/transfer"
)

// Workflow sentinels, matchable with errors.Is.
var (
	// ErrNoInvoices is returned when a document yields no invoices.
	ErrNoInvoices = errors.New("no valid invoices found")

	// ErrEnvelopeIncomplete is returned when the ISA, GS or ST header
	// needed for the acknowledgment was never seen.
	ErrEnvelopeIncomplete = errors.New("missing envelope segments required for 997 generation")
)

// Processor processes one document at a time: parse, acknowledge, record.
type Processor struct {
	generator *ack.Generator
	history   *db.History
	paths     *pathutil.PathResolver
	folders   config.FolderSettings

	now func() time.Time
}

// NewProcessor creates a Processor. history may be nil when recording is
// disabled.
func NewProcessor(generator *ack.Generator, history *db.History, paths *pathutil.PathResolver, folders config.FolderSettings) *Processor {
	return &Processor{
		generator: generator,
		history:   history,
		paths:     paths,
		folders:   folders,
		now:       time.Now,
	}
}

// Result is the outcome of processing one document.
type Result struct {
	FileName    string
	Invoices    []*edi.Invoice
	Diagnostics []edi.Diagnostic

	// Ack is the generated 997 document and AckFile its file name. After
	// ProcessLocal writes the acknowledgment, AckFile holds the written
	// path instead.
	Ack     string
	AckFile string
}

// ProcessContent parses one document and generates its acknowledgment.
// Nothing is written; the caller decides where the acknowledgment goes.
func (p *Processor) ProcessContent(fileName, content string) (*Result, error) {
	parsed := edi.Parse(content)
	for _, d := range parsed.Diagnostics {
		slog.Warn("Segment skipped", "file", fileName, "segment", d.Tag, "reason", d.Message)
	}

	if len(parsed.Invoices) == 0 {
		return nil, fmt.Errorf("%s: %w", fileName, ErrNoInvoices)
	}
	if !parsed.Envelope.Complete() {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEnvelopeIncomplete)
	}

	ackDoc, err := p.generator.Generate(parsed.Envelope.ISA, parsed.Envelope.ST, parsed.Envelope.GS)
	if err != nil {
		return nil, fmt.Errorf("failed to generate 997 for %s: %w", fileName, err)
	}

	return &Result{
		FileName:    fileName,
		Invoices:    parsed.Invoices,
		Diagnostics: parsed.Diagnostics,
		Ack:         ackDoc,
		AckFile:     p.ackFileName(fileName),
	}, nil
}

// ackFileName derives the acknowledgment file name from the source
// document name.
func (p *Processor) ackFileName(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return fmt.Sprintf("%s_997_%s.edi", base, p.now().Format("20060102_150405"))
}

// ProcessLocal processes a document on disk and writes the acknowledgment
// next to it, or into ackDir when given.
func (p *Processor) ProcessLocal(filePath, ackDir string, dryRun bool) (*Result, error) {
	if !p.paths.FileExists(filePath) {
		return nil, fmt.Errorf("input file does not exist: %s", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	fileName := filepath.Base(filePath)
	result, err := p.ProcessContent(fileName, string(data))
	if err != nil {
		if !dryRun {
			p.recordFailure(fileName, db.DirectionLocal, err)
		}
		return nil, err
	}

	if dryRun {
		return result, nil
	}

	dir := ackDir
	if dir == "" {
		dir = filepath.Dir(filePath)
	}
	ackPath := filepath.Join(dir, result.AckFile)
	if err := p.paths.EnsureParentDir(ackPath); err != nil {
		return nil, err
	}
	if err := os.WriteFile(ackPath, []byte(result.Ack), 0644); err != nil {
		return nil, fmt.Errorf("failed to write acknowledgment: %w", err)
	}

	p.recordSuccess(result, db.DirectionLocal)
	result.AckFile = ackPath
	return result, nil
}

// SyncResult summarizes one sync batch. Invoices collects the parsed
// invoices of every processed document, in batch order, for reporting.
type SyncResult struct {
	Processed []string
	Invoices  []*edi.Invoice
	Failed    map[string]error
	Skipped   int
}

// Sync processes every document in the incoming folder: download, parse,
// acknowledge, archive the source and upload the acknowledgment. One
// document's failure never stops the batch. limit caps the number of
// documents attempted; zero means no cap. Already processed documents are
// skipped and do not count against the limit.
func (p *Processor) Sync(store transfer.Store, limit int, dryRun bool) (*SyncResult, error) {
	files, err := store.List(p.folders.Incoming)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p.folders.Incoming, err)
	}

	result := &SyncResult{Failed: make(map[string]error)}
	attempts := 0
	for _, f := range files {
		if limit > 0 && attempts >= limit {
			break
		}

		if p.history != nil {
			processed, err := p.history.IsProcessed(f.Name)
			if err != nil {
				return nil, fmt.Errorf("failed to check history for %s: %w", f.Name, err)
			}
			if processed {
				slog.Info("Skipping already processed document", "file", f.Name)
				result.Skipped++
				continue
			}
		}

		attempts++
		res, err := p.syncOne(store, f.Name, dryRun)
		if err != nil {
			slog.Error("Failed to process document", "file", f.Name, "error", err)
			result.Failed[f.Name] = err
			continue
		}
		result.Processed = append(result.Processed, f.Name)
		result.Invoices = append(result.Invoices, res.Invoices...)
	}

	return result, nil
}

func (p *Processor) syncOne(store transfer.Store, name string, dryRun bool) (*Result, error) {
	staged := filepath.Join(p.paths.GetStagingDir(), uuid.NewString()+"_"+name)
	if err := p.paths.EnsureParentDir(staged); err != nil {
		return nil, err
	}
	defer os.Remove(staged)

	remote := path.Join(p.folders.Incoming, name)
	if err := store.Download(remote, staged); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", remote, err)
	}

	data, err := os.ReadFile(staged)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}

	result, err := p.ProcessContent(name, string(data))
	if err != nil {
		if !dryRun {
			p.recordFailure(name, db.DirectionRemote, err)
		}
		return nil, err
	}

	if dryRun {
		slog.Info("Dry run, skipping remote updates", "file", name, "ack", result.AckFile)
		return result, nil
	}

	// Archiving the source is best effort: the acknowledgment still goes
	// out when the move fails.
	if err := store.Move(remote, path.Join(p.folders.Processed, name)); err != nil {
		slog.Warn("Could not archive processed document", "file", name, "error", err)
	}

	ackStaged := staged + ".997"
	if err := os.WriteFile(ackStaged, []byte(result.Ack), 0644); err != nil {
		return nil, fmt.Errorf("failed to stage acknowledgment: %w", err)
	}
	defer os.Remove(ackStaged)

	if err := store.Upload(ackStaged, path.Join(p.folders.Ack, result.AckFile)); err != nil {
		return nil, fmt.Errorf("failed to upload acknowledgment: %w", err)
	}

	p.recordSuccess(result, db.DirectionRemote)
	slog.Info("Processed document", "file", name, "invoices", len(result.Invoices), "ack", result.AckFile)
	return result, nil
}

func (p *Processor) recordSuccess(result *Result, direction string) {
	if p.history == nil {
		return
	}

	var total decimal.Decimal
	for _, inv := range result.Invoices {
		total = total.Add(inv.TotalAmount)
	}

	record := db.FileRecord{
		FileName:     result.FileName,
		Direction:    direction,
		InvoiceCount: len(result.Invoices),
		TotalAmount:  total.StringFixed(2),
		AckFile:      result.AckFile,
		Status:       db.StatusProcessed,
	}
	if err := p.history.RecordFile(record); err != nil {
		slog.Error("Failed to record history", "file", result.FileName, "error", err)
	}
}

func (p *Processor) recordFailure(fileName, direction string, cause error) {
	if p.history == nil {
		return
	}

	record := db.FileRecord{
		FileName:     fileName,
		Direction:    direction,
		TotalAmount:  "0.00",
		Status:       db.StatusFailed,
		ErrorMessage: cause.Error(),
	}
	if err := p.history.RecordFile(record); err != nil {
		slog.Error("Failed to record history", "file", fileName, "error", err)
	}
}
