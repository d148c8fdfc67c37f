package surplus

import (
	"Surplus-Share-Backend/entities"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransitionFunc mutates a locked post and its active claim (nil when there
// is none). It returns the claim to persist, which may be a new one, or nil
// when the claim is untouched.
type TransitionFunc func(post *entities.SurplusPost, active *entities.Claim) (*entities.Claim, error)

// PostWithClaim is a post loaded together with its active claim.
type PostWithClaim struct {
	Post  *entities.SurplusPost
	Claim *entities.Claim
}

type (
	SurplusRepository interface {
		CreatePost(ctx context.Context, post *entities.SurplusPost) error
		GetPostByID(ctx context.Context, id uuid.UUID) (*entities.SurplusPost, error)
		GetActiveClaim(ctx context.Context, postID uuid.UUID) (*entities.Claim, error)
		ListAvailablePosts(ctx context.Context, now time.Time, page, limit int) ([]*entities.SurplusPost, int64, error)
		UpdatePostAtomically(ctx context.Context, postID uuid.UUID, fn TransitionFunc) (*entities.SurplusPost, *entities.Claim, error)

		GetPostsWithActiveClaimByStatus(ctx context.Context, status entities.PostStatus) ([]PostWithClaim, error)
		GetNonTerminalPostsExpiredBefore(ctx context.Context, t time.Time) ([]*entities.SurplusPost, error)
		GetAvailablePostsExpiringBetween(ctx context.Context, from, to time.Time) ([]*entities.SurplusPost, error)
		ReserveExpiryNotification(ctx context.Context, entry *entities.ExpiryNotificationLog) (bool, error)

		GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	}

	surplusRepository struct {
		db *gorm.DB
	}
)

func NewSurplusRepository(db *gorm.DB) SurplusRepository {
	return &surplusRepository{db: db}
}

var nonTerminalStatuses = []entities.PostStatus{
	entities.PostStatusAvailable,
	entities.PostStatusClaimed,
	entities.PostStatusReadyForPickup,
}

func (r *surplusRepository) CreatePost(ctx context.Context, post *entities.SurplusPost) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *surplusRepository) GetPostByID(ctx context.Context, id uuid.UUID) (*entities.SurplusPost, error) {
	var post entities.SurplusPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// GetActiveClaim returns nil without error when the post has no active claim.
func (r *surplusRepository) GetActiveClaim(ctx context.Context, postID uuid.UUID) (*entities.Claim, error) {
	return activeClaim(r.db.WithContext(ctx), postID)
}

func activeClaim(db *gorm.DB, postID uuid.UUID) (*entities.Claim, error) {
	var claim entities.Claim
	err := db.Where("surplus_post_id = ? AND status = ?", postID, entities.ClaimStatusActive).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *surplusRepository) ListAvailablePosts(ctx context.Context, now time.Time, page, limit int) ([]*entities.SurplusPost, int64, error) {
	var posts []*entities.SurplusPost
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.SurplusPost{}).
		Where("status = ? AND effective_expiry > ?", entities.PostStatusAvailable, now).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("status = ? AND effective_expiry > ?", entities.PostStatusAvailable, now).
		Order("effective_expiry ASC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, count, nil
}

// UpdatePostAtomically locks the post row and its active claim for the
// duration of fn, then writes both back in the same transaction. An error
// from fn rolls everything back.
func (r *surplusRepository) UpdatePostAtomically(ctx context.Context, postID uuid.UUID, fn TransitionFunc) (*entities.SurplusPost, *entities.Claim, error) {
	var post entities.SurplusPost
	var result *entities.Claim

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", postID).
			First(&post).Error; err != nil {
			return err
		}

		active, err := activeClaim(tx.Clauses(clause.Locking{Strength: "UPDATE"}), postID)
		if err != nil {
			return err
		}

		changed, err := fn(&post, active)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&post).Error; err != nil {
			return err
		}

		result = active
		if changed == nil {
			return nil
		}
		if active == nil || changed.ID != active.ID {
			if err := tx.Create(changed).Error; err != nil {
				return err
			}
		} else if err := tx.Save(changed).Error; err != nil {
			return err
		}
		result = changed
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &post, result, nil
}

func (r *surplusRepository) GetPostsWithActiveClaimByStatus(ctx context.Context, status entities.PostStatus) ([]PostWithClaim, error) {
	var posts []*entities.SurplusPost
	if err := r.db.WithContext(ctx).
		Preload("Claims", "status = ?", entities.ClaimStatusActive).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}

	result := make([]PostWithClaim, 0, len(posts))
	for _, p := range posts {
		item := PostWithClaim{Post: p}
		if len(p.Claims) > 0 {
			item.Claim = p.Claims[0]
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *surplusRepository) GetNonTerminalPostsExpiredBefore(ctx context.Context, t time.Time) ([]*entities.SurplusPost, error) {
	var posts []*entities.SurplusPost
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND effective_expiry < ?", nonTerminalStatuses, t).
		Order("effective_expiry ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// GetAvailablePostsExpiringBetween returns AVAILABLE posts whose effective
// expiry lies in (from, to].
func (r *surplusRepository) GetAvailablePostsExpiringBetween(ctx context.Context, from, to time.Time) ([]*entities.SurplusPost, error) {
	var posts []*entities.SurplusPost
	if err := r.db.WithContext(ctx).
		Where("status = ? AND effective_expiry > ? AND effective_expiry <= ?", entities.PostStatusAvailable, from, to).
		Order("effective_expiry ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ReserveExpiryNotification inserts the ledger entry unless its dedupe key
// exists and reports whether this call inserted it.
func (r *surplusRepository) ReserveExpiryNotification(ctx context.Context, entry *entities.ExpiryNotificationLog) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *surplusRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
