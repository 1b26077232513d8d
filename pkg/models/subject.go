package models

import (
	"errors"
	"strings"
	"sync"

	apperrors "cfdiag-api/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Gender values accepted for SubjectIdentity.Gender.
const (
	GenderMale   = "Laki-laki"
	GenderFemale = "Perempuan"
)

// SubjectIdentity is the identity snapshot carried through a diagnosis.
// The engine treats it as opaque beyond validation.
type SubjectIdentity struct {
	Name         string `json:"nama" yaml:"nama" binding:"required,max=120"`
	Age          int    `json:"usia" yaml:"usia" binding:"required,gte=1,lte=120"`
	Gender       string `json:"jenisKelamin" yaml:"jenisKelamin" binding:"required,oneof=Laki-laki Perempuan"`
	ProgramStudi string `json:"programStudi" yaml:"programStudi" binding:"required,max=120"`
	Angkatan     string `json:"angkatan" yaml:"angkatan" binding:"required,max=16"`
	Domicile     string `json:"domisili" yaml:"domisili" binding:"required,max=120"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// identityValidator shares gin's "binding" tag so HTTP binding and
// non-HTTP callers (CLI, services) apply the same rules.
func identityValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
	})
	return validate
}

// Normalize trims surrounding whitespace from all text fields.
func (s SubjectIdentity) Normalize() SubjectIdentity {
	s.Name = strings.TrimSpace(s.Name)
	s.Gender = strings.TrimSpace(s.Gender)
	s.ProgramStudi = strings.TrimSpace(s.ProgramStudi)
	s.Angkatan = strings.TrimSpace(s.Angkatan)
	s.Domicile = strings.TrimSpace(s.Domicile)
	return s
}

// Validate checks the identity and returns an INVALID_INPUT AppError listing bad fields.
func (s SubjectIdentity) Validate() error {
	err := identityValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(err, "failed to validate subject identity")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}
	return apperrors.InvalidInput("invalid subject identity").WithDetail("fields", fields)
}
