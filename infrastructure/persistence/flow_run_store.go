package persistence

import (
	"context"
	"fmt"

	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/helixml/runfilter/domain/query"
	"github.com/helixml/runfilter/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlowRunStore implements flowrun.Store using GORM.
type FlowRunStore struct {
	database.Repository[flowrun.FlowRun, FlowRunModel]
}

// NewFlowRunStore creates a new FlowRunStore.
func NewFlowRunStore(db database.Database) FlowRunStore {
	return FlowRunStore{
		Repository: database.NewRepository[flowrun.FlowRun, FlowRunModel](db, FlowRunMapper{}, "flow run", "Tags"),
	}
}

// Save creates or updates a flow run and replaces its tags.
func (s FlowRunStore) Save(ctx context.Context, run flowrun.FlowRun) (flowrun.FlowRun, error) {
	model := s.Mapper().ToModel(run)
	tags := model.Tags
	model.Tags = nil

	err := database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(&model).Error; err != nil {
			return err
		}
		if err := tx.Where("flow_run_id = ?", model.ID).Delete(&FlowRunTagModel{}).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		return tx.Create(&tags).Error
	})
	if err != nil {
		return flowrun.FlowRun{}, fmt.Errorf("save flow run: %w", err)
	}

	model.Tags = tags
	return s.Mapper().ToDomain(model), nil
}

// DeleteBy removes the flow runs matching options along with their tags.
func (s FlowRunStore) DeleteBy(ctx context.Context, options ...query.Option) (int64, error) {
	return database.WithTransactionResult(ctx, s.Database(), func(tx *gorm.DB) (int64, error) {
		var ids []string
		lookup := database.ApplyConditions(tx.Model(&FlowRunModel{}), options...)
		if err := lookup.Pluck(flowrun.ColumnID, &ids).Error; err != nil {
			return 0, fmt.Errorf("delete flow run: %w", err)
		}
		if len(ids) == 0 {
			return 0, nil
		}
		if err := tx.Where("flow_run_id IN ?", ids).Delete(&FlowRunTagModel{}).Error; err != nil {
			return 0, fmt.Errorf("delete flow run tags: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&FlowRunModel{})
		if result.Error != nil {
			return 0, fmt.Errorf("delete flow run: %w", result.Error)
		}
		return result.RowsAffected, nil
	})
}
