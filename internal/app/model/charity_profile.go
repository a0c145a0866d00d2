package model

import "time"

// CharityProfileID is the fixed primary key of the singleton profile row.
const CharityProfileID = 1

// CharityProfile holds the issuing charity's identity used when composing
// receipts. Exactly one row (id = 1) is expected.
type CharityProfile struct {
	ID               uint      `gorm:"primarykey" json:"id"`                      // 항상 1
	LegalName        string    `gorm:"size:120;not null" json:"legal_name"`       // 법적 명칭
	RegistrationNo   string    `gorm:"size:20;not null" json:"registration_no"`   // CRA 등록번호
	Address          string    `gorm:"size:120" json:"address"`                   // 주소
	City             string    `gorm:"size:40" json:"city"`                       // 도시
	Province         string    `gorm:"size:20" json:"province"`                   // 주/도
	Postal           string    `gorm:"size:7" json:"postal"`                      // 우편번호
	LocationIssued   string    `gorm:"size:60" json:"location_issued"`            // 영수증 발행 장소
	AuthorizedSigner string    `gorm:"size:80" json:"authorized_signer"`          // 서명 권한자
	CreatedAt        time.Time `json:"created_at"`                                // 생성 시각
	UpdatedAt        time.Time `json:"updated_at"`                                // 수정 시각
}

func (CharityProfile) TableName() string {
	return "charity_profiles"
}
