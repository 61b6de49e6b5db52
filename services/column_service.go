package services

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

type ColumnService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewColumnService(db *gorm.DB, logger *log.Logger) *ColumnService {
	return &ColumnService{DB: db, Logger: logger}
}

// OrderPair is one entry of an explicit full ordering supplied by the
// caller for column or task reordering. The service applies the pairs
// as-is; it does not recompute gaps or validate contiguity.
type OrderPair struct {
	ID    string `json:"id" validate:"required"`
	Order int    `json:"order"`
}

func (s *ColumnService) GetTeamColumns(teamID string) ([]models.Column, error) {
	var columns []models.Column
	err := s.DB.Where("team_id = ?", teamID).Order(`"order" ASC`).Find(&columns).Error
	return columns, err
}

// CreateColumn appends a column at max(order)+1, or 0 for the team's
// first column.
func (s *ColumnService) CreateColumn(teamID string, identity Identity, name, color string) (*models.Column, error) {
	authorized, err := isTeamMember(s.DB, identity, teamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team members can create columns")
	}

	if color == "" {
		color = "bg-gray-100"
	}

	order := 0
	var last models.Column
	err = s.DB.Where("team_id = ?", teamID).Order(`"order" DESC`).First(&last).Error
	if err == nil {
		order = last.Order + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	column := models.Column{TeamID: teamID, Name: name, Color: color, Order: order}
	if err := s.DB.Create(&column).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

func (s *ColumnService) UpdateColumn(columnID string, identity Identity, name, color *string) (*models.Column, error) {
	var column models.Column
	if err := s.DB.First(&column, "id = ?", columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Column not found")
		}
		return nil, err
	}

	authorized, err := isTeamMember(s.DB, identity, column.TeamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team members can update columns")
	}

	updates := map[string]interface{}{}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if color != nil && *color != "" {
		updates["color"] = *color
	}
	if len(updates) > 0 {
		if err := s.DB.Model(&column).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &column, nil
}

// DeleteColumn refuses to delete a team's last column. A column that
// still holds tasks needs a migration target; every task is moved there
// in the same transaction that removes the column.
func (s *ColumnService) DeleteColumn(columnID string, identity Identity, migrationColumnID *string) error {
	var column models.Column
	if err := s.DB.First(&column, "id = ?", columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("Column not found")
		}
		return err
	}

	authorized, err := isTeamMember(s.DB, identity, column.TeamID)
	if err != nil {
		return err
	}
	if !authorized {
		return ForbiddenError("Only team members can delete columns")
	}

	var columnCount int64
	if err := s.DB.Model(&models.Column{}).Where("team_id = ?", column.TeamID).Count(&columnCount).Error; err != nil {
		return err
	}
	if columnCount == 1 {
		return ConflictError("Cannot delete the last column")
	}

	var taskCount int64
	if err := s.DB.Model(&models.Task{}).Where("column_id = ?", columnID).Count(&taskCount).Error; err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if taskCount > 0 {
			if migrationColumnID == nil || *migrationColumnID == "" {
				return ConflictError("Cannot delete column with tasks without specifying migration column")
			}
			err := tx.Model(&models.Task{}).
				Where("column_id = ?", columnID).
				Update("column_id", *migrationColumnID).Error
			if err != nil {
				return err
			}
		}
		return tx.Delete(&models.Column{}, "id = ?", columnID).Error
	})
}

// ReorderColumns applies a caller-supplied full ordering as one atomic
// multi-update and returns the refreshed list.
func (s *ColumnService) ReorderColumns(teamID string, identity Identity, orders []OrderPair) ([]models.Column, error) {
	authorized, err := isTeamMember(s.DB, identity, teamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team members can reorder columns")
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for _, pair := range orders {
			err := tx.Model(&models.Column{}).
				Where("id = ?", pair.ID).
				Update("order", pair.Order).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTeamColumns(teamID)
}
