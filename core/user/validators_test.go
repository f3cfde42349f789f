package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	require.NoError(t, LoadCommonPasswords())

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func passwordErrTag(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			if fe.Field() == "password" {
				return fe.Tag()
			}
		}
	}
	return ""
}

func TestPasswordPolicy(t *testing.T) {
	validate := newTestValidator(t)

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 1234!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdefg123", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcdefg12!", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "Marigold1!", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tr0ub4dor&3x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				FirstName:       "Marigold",
				LastName:        "Kent",
				Email:           "mkent@test.com",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
				UserType:        TypeStudent,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantTag, passwordErrTag(err))
		})
	}
}

func TestUserTypeValidation(t *testing.T) {
	validate := newTestValidator(t)

	uu := UpdateUser{FirstName: "A", LastName: "B", Email: "ab@test.com", UserType: "superuser"}
	err := validate.Struct(uu)
	require.Error(t, err)
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, "user_type", verrs[0].Field())

	uu.UserType = TypeOrganizer
	assert.NoError(t, validate.Struct(uu))
}
