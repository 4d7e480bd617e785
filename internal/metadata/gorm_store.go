package metadata

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ProductImageModel is the GORM model for the product_images table.
type ProductImageModel struct {
	PartitionKey string    `gorm:"type:varchar(128);primaryKey"`
	RowKey       string    `gorm:"type:varchar(128);primaryKey"`
	ImageURL     string    `gorm:"type:varchar(2048)"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ProductImageModel.
func (ProductImageModel) TableName() string {
	return "product_images"
}

// columns maps record field names onto table columns.
var columns = map[string]string{
	FieldImageURL: "image_url",
}

// GormStore implements Store on a SQL database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based metadata store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Merge updates the mapped columns of an existing row.
func (s *GormStore) Merge(ctx context.Context, key Key, fields map[string]string) error {
	updates := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		col, ok := columns[field]
		if !ok {
			return fmt.Errorf("unknown metadata field %q", field)
		}
		updates[col] = value
	}
	updates["updated_at"] = time.Now()

	result := s.db.WithContext(ctx).Model(&ProductImageModel{}).
		Where("partition_key = ? AND row_key = ?", key.PartitionKey, key.RowKey).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to merge record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, key.PartitionKey, key.RowKey)
	}

	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
