package models

import (
	"github.com/google/uuid"

	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// ReturnItem is one partially-returned order line inside a return request.
type ReturnItem struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnID    uuid.UUID            `gorm:"column:return_id;type:uuid;not null;index"`
	OrderItemID uuid.UUID            `gorm:"column:order_item_id;type:uuid;not null"`
	Quantity    int                  `gorm:"column:quantity;not null"`
	Reason      *enums.ReturnReason  `gorm:"column:reason;type:text"`
	Condition   *enums.ItemCondition `gorm:"column:condition;type:text"`
}
