package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ikkim/churchbook-backend/config"
	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	"github.com/ikkim/churchbook-backend/internal/db"
	"github.com/ikkim/churchbook-backend/pkg/util"
	"github.com/xuri/excelize/v2"
)

// 시드 도구: 카테고리와 단체 프로필을 만들고, 선택적으로 XLSX 교인 명단을
// 가져온다.
//
//	go run cmd/seed/main.go            # 카테고리 + 단체 프로필만
//	go run cmd/seed/main.go members.xlsx  # 교인 명단 임포트 포함
func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// 단체 프로필 (영수증 발행에 필수)
	charityRepo := repository.NewCharityRepository(db.GetDB())
	if err := seedCharityProfile(charityRepo); err != nil {
		log.Fatal("Failed to seed charity profile:", err)
	}
	fmt.Println("Charity profile is in place.")

	if len(os.Args) < 2 {
		fmt.Println("No XLSX file given, skipping member import.")
		return
	}

	filePath := os.Args[1]

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	members, err := readMembersFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total members to import: %d\n", len(members))

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	memberRepo := repository.NewMemberRepository(db.GetDB())
	imported := 0
	skipped := 0
	for i := range members {
		if err := memberRepo.Create(&members[i]); err != nil {
			// 같은 이름 키는 이미 있는 것으로 보고 건너뛴다
			skipped++
			continue
		}
		imported++
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Imported: %d, skipped (duplicates): %d\n", imported, skipped)
}

// seedCharityProfile 환경변수에서 단체 프로필을 만들거나 갱신한다.
// CHARITY_LEGAL_NAME이 비어 있으면 기존 프로필을 건드리지 않는다.
func seedCharityProfile(charityRepo repository.CharityRepository) error {
	legalName := strings.TrimSpace(os.Getenv("CHARITY_LEGAL_NAME"))
	if legalName == "" {
		if _, err := charityRepo.Get(); err != nil {
			fmt.Println("Warning: no charity profile and CHARITY_LEGAL_NAME is not set.")
			fmt.Println("Receipt generation will fail until a profile exists.")
		}
		return nil
	}

	profile := &model.CharityProfile{
		LegalName:        util.Truncate(legalName, 120),
		RegistrationNo:   util.Truncate(os.Getenv("CHARITY_REGISTRATION_NO"), 20),
		Address:          util.Truncate(os.Getenv("CHARITY_ADDRESS"), 120),
		City:             util.Truncate(os.Getenv("CHARITY_CITY"), 40),
		Province:         util.Truncate(os.Getenv("CHARITY_PROVINCE"), 20),
		Postal:           util.Truncate(util.NormalizePostal(os.Getenv("CHARITY_POSTAL")), 7),
		LocationIssued:   util.Truncate(os.Getenv("CHARITY_LOCATION_ISSUED"), 60),
		AuthorizedSigner: util.Truncate(os.Getenv("CHARITY_AUTHORIZED_SIGNER"), 80),
	}
	return charityRepo.Upsert(profile)
}

// readMembersFromXLSX 첫 시트에서 교인 행을 읽는다. 헤더 행은 건너뛰며
// 열 순서는 Name, FirstName, LastName, Email, Address, City, Province,
// Postal, Note.
func readMembersFromXLSX(filePath string) ([]model.Member, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트 이름 가져오기
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows in sheet %q", sheetName)
	}

	members := make([]model.Member, 0, len(rows)-1)
	for i, row := range rows[1:] {
		name := cell(row, 0)
		key := util.NameKey(name)
		if key == "" {
			fmt.Printf("Skipping row %d: empty name\n", i+2)
			continue
		}
		members = append(members, model.Member{
			NameKey:   key,
			NameLabel: util.Truncate(util.NormalizeName(name), 60),
			FirstName: util.Truncate(cell(row, 1), 30),
			LastName:  util.Truncate(cell(row, 2), 30),
			Email:     util.Truncate(cell(row, 3), 80),
			Address:   util.Truncate(cell(row, 4), 50),
			City:      util.Truncate(cell(row, 5), 20),
			Province:  util.Truncate(cell(row, 6), 20),
			Postal:    util.Truncate(util.NormalizePostal(cell(row, 7)), 7),
			Note:      util.Truncate(cell(row, 8), 255),
		})
	}

	return members, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
