package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// Covers gorm's translated error plus the raw message shapes of PostgreSQL
// (23505) and SQLite, which the test database uses.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign-key violation
// (PostgreSQL 23503 or the SQLite equivalent).
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}

// ParseError 에러를 파싱하여 사용자 친화적인 메시지와 코드로 변환
// 보안상 민감한 정보는 숨기되, 사용자가 문제를 해결할 수 있는 정보 제공
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong. Please try again.",
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	if IsUniqueViolation(err) {
		return parseDuplicateKeyError(err.Error())
	}

	if IsForeignKeyViolation(err) {
		return parseForeignKeyError(err.Error())
	}

	return ErrorInfo{
		Code:    InternalDatabaseError,
		Message: "Database failure. Please try again.",
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	// 교인 이름 키 중복
	if strings.Contains(errLower, "name_key") || strings.Contains(errLower, "idx_members_name_key") {
		return ErrorInfo{
			Code:    MemberNameExists,
			Message: "This name already exists.",
		}
	}

	// 영수증 (연도, 일련번호) 중복
	if strings.Contains(errLower, "serial_number") || strings.Contains(errLower, "idx_receipts_year_serial") {
		return ErrorInfo{
			Code:    ReceiptSerialConflict,
			Message: "Receipt serial number conflict. Please try again.",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "The record already exists.",
	}
}

// parseForeignKeyError Foreign key constraint 위반 에러 파싱
func parseForeignKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	// 삭제 시 참조 중인 데이터가 있는 경우
	if strings.Contains(errLower, "still referenced") || strings.Contains(errLower, "incomes") {
		return ErrorInfo{
			Code:    MemberReferenced,
			Message: "Failed to delete. It may be referenced by income records.",
		}
	}

	return ErrorInfo{
		Code:    ResourceNotFound,
		Message: "A referenced record does not exist.",
	}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "member") {
		return "Member not found."
	}
	if strings.Contains(contextLower, "income") {
		return "Income entry not found."
	}
	if strings.Contains(contextLower, "receipt") {
		return "Receipt not found."
	}
	if strings.Contains(contextLower, "charity") {
		return "Charity profile is not set up yet."
	}

	return "Requested record not found."
}
