package model

import (
	"time"
)

type Member struct {
	ID        uint      `gorm:"primarykey" json:"id"`                         // 교인 ID
	NameKey   string    `gorm:"uniqueIndex;size:50;not null" json:"name_key"` // 식별용 이름 키 (공백 제거, 생성 후 변경 불가)
	NameLabel string    `gorm:"size:60" json:"name_label"`                    // 표시용 이름 (공백 유지)
	FirstName string    `gorm:"size:30" json:"first_name"`                    // 영문 이름
	LastName  string    `gorm:"size:30" json:"last_name"`                     // 영문 성
	Email     string    `gorm:"size:80" json:"email"`                         // 이메일
	Address   string    `gorm:"size:50" json:"address"`                       // 주소
	City      string    `gorm:"size:20" json:"city"`                          // 도시
	Province  string    `gorm:"size:20" json:"province"`                      // 주/도
	Postal    string    `gorm:"size:7" json:"postal"`                         // 우편번호 (대문자, 공백 제거)
	Note      string    `gorm:"size:255" json:"note"`                         // 메모
	CreatedAt time.Time `json:"created_at"`                                   // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                                   // 수정 시각

	Incomes []Income `gorm:"foreignKey:MemberID" json:"incomes,omitempty"` // 헌금 내역
}

func (Member) TableName() string {
	return "members"
}

// OfficialName returns the English legal name when set, otherwise the
// display name. This is the name printed on tax receipts.
func (m *Member) OfficialName() string {
	f, l := m.FirstName, m.LastName
	switch {
	case f != "" && l != "":
		return f + " " + l
	case f != "":
		return f
	case l != "":
		return l
	default:
		return m.NameLabel
	}
}
