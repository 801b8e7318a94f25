package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

//go:embed sample_rulemakings.json
var sampleRulemakings []byte

// ImportStats tracks import statistics
type ImportStats struct {
	Total    int
	Imported int
	Changed  int
	Skipped  int
	Failed   int
}

// Importer loads rulemakings from JSON documents, keyed by docket id
type Importer struct {
	rulemakings RulemakingRepository
	service     *RulemakingService
	logger      *zap.Logger
}

// NewImporter creates a new Importer
func NewImporter(rulemakings RulemakingRepository, service *RulemakingService, logger *zap.Logger) *Importer {
	return &Importer{
		rulemakings: rulemakings,
		service:     service,
		logger:      logger.Named("importer"),
	}
}

type importDocument struct {
	Rulemakings []RulemakingInput `json:"rulemakings"`
}

// ParseImport accepts either {"rulemakings": [...]} or a bare array
func ParseImport(data []byte) ([]RulemakingInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []RulemakingInput
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse rulemakings: %w", err)
		}
		return list, nil
	}

	var doc importDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rulemakings: %w", err)
	}
	return doc.Rulemakings, nil
}

// SampleData returns the built-in seed document
func SampleData() []byte {
	return sampleRulemakings
}

// Import creates each rulemaking whose docket id is new. Existing dockets are
// skipped, or overwritten when update is set.
func (i *Importer) Import(ctx context.Context, inputs []RulemakingInput, update bool) (*ImportStats, error) {
	stats := &ImportStats{Total: len(inputs)}

	for idx, in := range inputs {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		docket := ""
		if in.DocketID != nil {
			docket = strings.TrimSpace(*in.DocketID)
		}
		progress := fmt.Sprintf("[%d/%d]", idx+1, stats.Total)

		existing, err := i.rulemakings.GetByDocketID(ctx, docket)
		if err != nil {
			return stats, fmt.Errorf("failed to look up docket %s: %w", docket, err)
		}

		switch {
		case existing != nil && !update:
			i.logger.Info(progress+" skipping existing docket", zap.String("docket_id", docket))
			stats.Skipped++
		case existing != nil:
			if _, err := i.service.Update(ctx, existing.ID, in); err != nil {
				i.logFailure(progress, docket, err)
				stats.Failed++
				continue
			}
			i.logger.Info(progress+" updated rulemaking", zap.String("docket_id", docket))
			stats.Changed++
		default:
			r, err := i.service.Create(ctx, in)
			if err != nil {
				i.logFailure(progress, docket, err)
				stats.Failed++
				continue
			}
			i.logger.Info(progress+" imported rulemaking",
				zap.String("docket_id", docket),
				zap.String("rulemaking_id", r.ID))
			stats.Imported++
		}
	}

	return stats, nil
}

func (i *Importer) logFailure(progress, docket string, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		i.logger.Warn(progress+" rejected rulemaking", zap.String("docket_id", docket), zap.Any("details", verr.Details))
		return
	}
	i.logger.Error(progress+" failed to import rulemaking", zap.String("docket_id", docket), zap.Error(err))
}

// PrintSummary prints the import statistics
func PrintSummary(w io.Writer, stats *ImportStats) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Import Summary ===")
	fmt.Fprintf(w, "Total rulemakings: %d\n", stats.Total)
	fmt.Fprintf(w, "Imported:          %d\n", stats.Imported)
	fmt.Fprintf(w, "Updated:           %d\n", stats.Changed)
	fmt.Fprintf(w, "Skipped:           %d (existing docket)\n", stats.Skipped)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failed)

	if attempted := stats.Total - stats.Skipped; attempted > 0 {
		successRate := float64(stats.Imported+stats.Changed) / float64(attempted) * 100
		fmt.Fprintf(w, "Success rate:      %.1f%%\n", successRate)
	}
}
