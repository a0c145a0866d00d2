package model

import (
	"fmt"
	"time"
)

type Income struct {
	ID       uint   `gorm:"primarykey" json:"id"`           // 헌금 ID
	MemberID uint   `gorm:"not null;index" json:"member_id"` // 교인 ID
	Amount   int64  `gorm:"not null" json:"amount"`          // 금액 (센트)
	TypeID   uint   `gorm:"not null;index" json:"type_id"`   // 헌금 종류 (Category)
	MethodID uint   `gorm:"not null" json:"method_id"`       // 납부 방법 (Category)
	Year     int    `gorm:"not null;index" json:"year"`      // 연도
	Month    int    `gorm:"not null" json:"month"`           // 월
	Day      int    `gorm:"not null" json:"day"`             // 일
	Quarter  int    `gorm:"not null" json:"quarter"`         // 분기 (= ceil(month/3), 저장 시 계산)
	Note     string `gorm:"size:255" json:"note"`            // 메모

	CreatedAt time.Time `json:"created_at"` // 생성 시각
	UpdatedAt time.Time `json:"updated_at"` // 수정 시각

	Member Member   `gorm:"foreignKey:MemberID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"member,omitempty"` // 교인 정보
	Type   Category `gorm:"foreignKey:TypeID" json:"type,omitempty"`                                                   // 종류 정보
	Method Category `gorm:"foreignKey:MethodID" json:"method,omitempty"`                                               // 방법 정보
}

func (Income) TableName() string {
	return "incomes"
}

// QuarterOf derives the calendar quarter for a month.
func QuarterOf(month int) int {
	return (month + 2) / 3
}

// DateISO returns the row's date as YYYY-MM-DD.
func (i *Income) DateISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", i.Year, i.Month, i.Day)
}
