package impact

import (
	"Surplus-Share-Backend/entities"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	ImpactRepository interface {
		GetTerminalPostsBetween(ctx context.Context, from, to time.Time, donorID *uuid.UUID) ([]*entities.SurplusPost, error)
	}

	impactRepository struct {
		db *gorm.DB
	}
)

func NewImpactRepository(db *gorm.DB) ImpactRepository {
	return &impactRepository{db: db}
}

var terminalStatuses = []entities.PostStatus{
	entities.PostStatusCompleted,
	entities.PostStatusNotCompleted,
	entities.PostStatusExpired,
}

// eventTimeColumn mirrors EventTime in SQL.
const eventTimeColumn = "COALESCE(completed_at, expired_at, updated_at)"

// GetTerminalPostsBetween returns posts that reached a terminal status with
// their event time in [from, to], optionally for a single donor.
func (r *impactRepository) GetTerminalPostsBetween(ctx context.Context, from, to time.Time, donorID *uuid.UUID) ([]*entities.SurplusPost, error) {
	var posts []*entities.SurplusPost
	query := r.db.WithContext(ctx).
		Where("status IN ?", terminalStatuses).
		Where(eventTimeColumn+" >= ? AND "+eventTimeColumn+" <= ?", from, to)
	if donorID != nil {
		query = query.Where("donor_id = ?", *donorID)
	}
	if err := query.Order(eventTimeColumn + " ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
