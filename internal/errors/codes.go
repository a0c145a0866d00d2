package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationInvalidDate  = "VALIDATION_INVALID_DATE"  // 잘못된 날짜
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE" // 범위 초과
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 교인 (MEMBER_) ====================
	MemberNotFound      = "MEMBER_NOT_FOUND"      // 교인 없음
	MemberNameExists    = "MEMBER_NAME_EXISTS"    // 이름 키 중복
	MemberNameImmutable = "MEMBER_NAME_IMMUTABLE" // 이름 키 변경 불가
	MemberReferenced    = "MEMBER_REFERENCED"     // 헌금 내역이 참조 중

	// ==================== 헌금 (INCOME_) ====================
	IncomeNotFound     = "INCOME_NOT_FOUND"      // 헌금 내역 없음
	IncomeNoValidEntry = "INCOME_NO_VALID_ENTRY" // 저장할 유효 항목 없음
	IncomeUnresolved   = "INCOME_UNRESOLVED"     // 교인 식별 실패

	// ==================== 영수증 (RECEIPT_) ====================
	ReceiptNotFound       = "RECEIPT_NOT_FOUND"        // 영수증 없음
	ReceiptNoDonations    = "RECEIPT_NO_DONATIONS"     // 대상 헌금 없음
	ReceiptZeroTotal      = "RECEIPT_ZERO_TOTAL"       // 합계가 0
	ReceiptSerialConflict = "RECEIPT_SERIAL_CONFLICT"  // 일련번호 충돌 (재시도 초과)
	ReceiptFileDelete     = "RECEIPT_FILE_DELETE_FAIL" // PDF 삭제 실패
	CharityProfileMissing = "CHARITY_PROFILE_MISSING"  // 단체 프로필 미설정

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"       // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"  // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"        // 충돌

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalStorageError  = "INTERNAL_STORAGE_ERROR"  // 파일 저장 오류
)
