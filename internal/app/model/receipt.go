package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Receipt is an issued CRA donation receipt. Donor and charity fields are
// snapshots copied at issuance time so later member or profile edits never
// alter a historical receipt. (tax_year, serial_number) is unique; serials
// start at 1 per tax year and are never reused after deletion.
type Receipt struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`                                        // 영수증 ID (UUID)
	MemberID     uint      `gorm:"not null;index" json:"member_id"`                                     // 교인 ID
	TaxYear      int       `gorm:"not null;uniqueIndex:idx_receipts_year_serial" json:"tax_year"`       // 과세 연도
	SerialNumber int       `gorm:"not null;uniqueIndex:idx_receipts_year_serial" json:"serial_number"`  // 연도별 일련번호
	IssueDate    time.Time `gorm:"not null" json:"issue_date"`                                          // 발행일

	TotalCents     int64 `gorm:"not null" json:"total_cents"`               // 합계 (센트)
	EligibleCents  int64 `gorm:"not null" json:"eligible_cents"`            // 공제 대상 금액 (= 합계)
	AdvantageCents int64 `gorm:"not null;default:0" json:"advantage_cents"` // 반대급부 금액 (미사용, 항상 0)

	DonorName     string `gorm:"size:80;not null" json:"donor_name"` // 기부자 이름 스냅샷
	DonorAddress  string `gorm:"size:120" json:"donor_address"`      // 기부자 주소 스냅샷
	DonorCity     string `gorm:"size:40" json:"donor_city"`          // 기부자 도시 스냅샷
	DonorProvince string `gorm:"size:20" json:"donor_province"`      // 기부자 주/도 스냅샷
	DonorPostal   string `gorm:"size:7" json:"donor_postal"`         // 기부자 우편번호 스냅샷

	CharityName      string `gorm:"size:120;not null" json:"charity_name"` // 단체 법적 명칭 스냅샷
	CharityAddress   string `gorm:"size:120" json:"charity_address"`       // 단체 주소 스냅샷
	CharityCity      string `gorm:"size:40" json:"charity_city"`           // 단체 도시 스냅샷
	CharityProvince  string `gorm:"size:20" json:"charity_province"`       // 단체 주/도 스냅샷
	CharityPostal    string `gorm:"size:7" json:"charity_postal"`          // 단체 우편번호 스냅샷
	CharityRegNo     string `gorm:"size:20" json:"charity_reg_no"`         // CRA 등록번호 스냅샷
	LocationIssued   string `gorm:"size:60" json:"location_issued"`        // 발행 장소 스냅샷
	AuthorizedSigner string `gorm:"size:80" json:"authorized_signer"`      // 서명 권한자 스냅샷

	PDFURL string `gorm:"size:500;not null" json:"pdf_url"` // 생성된 PDF 경로/URL

	CreatedAt time.Time `json:"created_at"` // 생성 시각
	UpdatedAt time.Time `json:"updated_at"` // 수정 시각

	Member Member `gorm:"foreignKey:MemberID" json:"member,omitempty"` // 교인 정보
}

func (Receipt) TableName() string {
	return "receipts"
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
