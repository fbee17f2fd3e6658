package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xelth-com/shoprecs/internal/models"
)

// Builds records runs of the recommendation build job
type Builds struct {
	db *gorm.DB
}

func NewBuilds(db *gorm.DB) *Builds {
	return &Builds{db: db}
}

// Start inserts a running build entry
func (b *Builds) Start(ctx context.Context, trigger string) (*models.RecommendationBuild, error) {
	build := &models.RecommendationBuild{
		Status:    models.BuildStatusRunning,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	if err := b.db.WithContext(ctx).Create(build).Error; err != nil {
		return nil, err
	}
	return build, nil
}

// Finish stamps the outcome of a build. A non-nil runErr marks it failed.
func (b *Builds) Finish(ctx context.Context, build *models.RecommendationBuild, runErr error) error {
	now := time.Now().UTC()
	build.FinishedAt = &now
	build.Status = models.BuildStatusSucceeded
	if runErr != nil {
		build.Status = models.BuildStatusFailed
		build.Error = runErr.Error()
	}
	return b.db.WithContext(ctx).Save(build).Error
}

// LastBuild returns when the latest successful build finished, or the zero time
func (b *Builds) LastBuild(ctx context.Context) (time.Time, error) {
	var build models.RecommendationBuild
	err := b.db.WithContext(ctx).
		Where("status = ?", models.BuildStatusSucceeded).
		Order("finished_at DESC").
		First(&build).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil || build.FinishedAt == nil {
		return time.Time{}, err
	}
	return build.FinishedAt.UTC(), nil
}

// Recent lists the latest builds, newest first
func (b *Builds) Recent(ctx context.Context, n int) ([]models.RecommendationBuild, error) {
	var builds []models.RecommendationBuild
	err := b.db.WithContext(ctx).Order("started_at DESC").Limit(n).Find(&builds).Error
	return builds, err
}
