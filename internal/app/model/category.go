package model

type CategoryRange string // 카테고리 구분 코드

const (
	RangeIncomeType    CategoryRange = "income_type"    // 헌금 종류 (십일조, 감사 등)
	RangePaymentMethod CategoryRange = "payment_method" // 납부 방법 (현금, 수표 등)
)

// Category is a lookup row shared by the income "type" and "method"
// enumerations, distinguished by Range and ordered by SortOrder.
type Category struct {
	ID        uint          `gorm:"primarykey" json:"id"`                         // 카테고리 ID
	Name      string        `gorm:"size:40;not null" json:"name"`                 // 이름
	Detail    string        `gorm:"size:120" json:"detail"`                       // 설명
	Range     CategoryRange `gorm:"type:varchar(20);not null;index" json:"range"` // 구분
	SortOrder int           `gorm:"not null;default:0" json:"sort_order"`         // 정렬 순서
}

func (Category) TableName() string {
	return "categories"
}
