// Package history persists a summary row for every completed analysis.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strategiq/swot/internal/models"
	"github.com/strategiq/swot/internal/pkg/pagination"
	"github.com/strategiq/swot/internal/pkg/pdfcache"
	"github.com/strategiq/swot/internal/pkg/response"
	"gorm.io/gorm"
)

const summaryPreview = 280

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Record stores the analysis completed for sessionID.
func (s *Service) Record(ctx context.Context, sessionID string, a *models.SwotAnalysis) (*models.AnalysisRecord, error) {
	if a == nil {
		return nil, errors.New("history: nil analysis")
	}
	rec := models.AnalysisRecord{
		SessionID:          sessionID,
		PrimaryEntity:      a.PrimaryEntity,
		ComparisonEntities: models.StringArray(append([]string{}, a.ComparisonEntities...)),
		Fingerprint:        pdfcache.Fingerprint(*a),
		StrengthCount:      len(a.Strengths),
		WeaknessCount:      len(a.Weaknesses),
		OpportunityCount:   len(a.Opportunities),
		ThreatCount:        len(a.Threats),
		Summary:            preview(a.Analysis),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("record analysis: %w", err)
	}
	return &rec, nil
}

// List returns one page of records, newest first.
func (s *Service) List(ctx context.Context, q pagination.Query) ([]models.AnalysisRecord, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.AnalysisRecord{}).Order("created_at DESC")
	var items []models.AnalysisRecord
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// GetByID returns nil, nil when no record matches.
func (s *Service) GetByID(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Purge deletes records created before cutoff and returns how many went.
func (s *Service) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.AnalysisRecord{})
	return result.RowsAffected, result.Error
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryPreview {
		return s
	}
	return string(runes[:summaryPreview]) + "..."
}
