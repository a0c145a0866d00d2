package service

import (
	"errors"

	"github.com/ikkim/churchbook-backend/internal/app/model"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	apperrors "github.com/ikkim/churchbook-backend/internal/errors"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"github.com/ikkim/churchbook-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberNameRequired  = errors.New("member name is required")
	ErrMemberNameExists    = errors.New("member name already exists")
	ErrMemberNameImmutable = errors.New("member name identity cannot be changed")
	ErrMemberReferenced    = errors.New("member is referenced by income records")
)

// MemberPageSize 교인 목록 페이지 크기
const MemberPageSize = 24

// MemberInput 교인 생성/수정 입력
type MemberInput struct {
	Name      string
	FirstName string
	LastName  string
	Email     string
	Address   string
	City      string
	Province  string
	Postal    string
	Note      string
}

type MemberService interface {
	Create(input *MemberInput) (*model.Member, error)
	Get(id uint) (*model.Member, error)
	Update(id uint, input *MemberInput) (*model.Member, error)
	Delete(id uint) error
	Search(query string, page int) ([]model.Member, int64, error)
}

type memberService struct {
	memberRepo repository.MemberRepository
}

func NewMemberService(memberRepo repository.MemberRepository) MemberService {
	return &memberService{memberRepo: memberRepo}
}

func (s *memberService) Create(input *MemberInput) (*model.Member, error) {
	nameKey := util.NameKey(input.Name)

	logger.Info("Creating member", map[string]interface{}{
		"name_key": nameKey,
	})

	if nameKey == "" {
		logger.Warn("Cannot create member: name is empty")
		return nil, ErrMemberNameRequired
	}

	member := &model.Member{
		NameKey:   nameKey,
		NameLabel: util.Truncate(util.NormalizeName(input.Name), 60),
	}
	applyContactFields(member, input)

	if err := s.memberRepo.Create(member); err != nil {
		if apperrors.IsUniqueViolation(err) {
			logger.Warn("Cannot create member: name key already exists", map[string]interface{}{
				"name_key": nameKey,
			})
			return nil, ErrMemberNameExists
		}
		return nil, err
	}

	logger.Info("Member created", map[string]interface{}{
		"member_id": member.ID,
		"name_key":  member.NameKey,
	})
	return member, nil
}

func (s *memberService) Get(id uint) (*model.Member, error) {
	member, err := s.memberRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (s *memberService) Update(id uint, input *MemberInput) (*model.Member, error) {
	logger.Info("Updating member", map[string]interface{}{
		"member_id": id,
	})

	member, err := s.memberRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	nameKey := util.NameKey(input.Name)
	if nameKey == "" {
		return nil, ErrMemberNameRequired
	}

	// 이름 키는 교인의 식별자이므로 생성 후 변경할 수 없다.
	// 표시용 이름은 공백 정리 수준에서 갱신을 허용한다.
	if nameKey != member.NameKey {
		logger.Warn("Cannot update member: name key change rejected", map[string]interface{}{
			"member_id": id,
			"current":   member.NameKey,
			"requested": nameKey,
		})
		return nil, ErrMemberNameImmutable
	}

	member.NameLabel = util.Truncate(util.NormalizeName(input.Name), 60)
	applyContactFields(member, input)

	if err := s.memberRepo.Update(member); err != nil {
		return nil, err
	}

	logger.Info("Member updated", map[string]interface{}{
		"member_id": member.ID,
	})
	return member, nil
}

func (s *memberService) Delete(id uint) error {
	logger.Info("Deleting member", map[string]interface{}{
		"member_id": id,
	})

	if err := s.memberRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if apperrors.IsForeignKeyViolation(err) {
			logger.Warn("Cannot delete member: referenced by income records", map[string]interface{}{
				"member_id": id,
			})
			return ErrMemberReferenced
		}
		return err
	}

	logger.Info("Member deleted", map[string]interface{}{
		"member_id": id,
	})
	return nil
}

func (s *memberService) Search(query string, page int) ([]model.Member, int64, error) {
	if page < 1 {
		page = 1
	}
	return s.memberRepo.Search(util.NormalizeSpaces(query), page, MemberPageSize)
}

func applyContactFields(member *model.Member, input *MemberInput) {
	member.FirstName = util.Truncate(input.FirstName, 30)
	member.LastName = util.Truncate(input.LastName, 30)
	member.Email = util.Truncate(input.Email, 80)
	member.Address = util.Truncate(input.Address, 50)
	member.City = util.Truncate(input.City, 20)
	member.Province = util.Truncate(input.Province, 20)
	member.Postal = util.Truncate(util.NormalizePostal(input.Postal), 7)
	member.Note = util.Truncate(input.Note, 255)
}
