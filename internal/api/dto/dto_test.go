package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&CreateTicketRequest{Title: "t", Description: "d", Priority: "high"}))

	err := Validate(&CreateTicketRequest{Title: "t", Priority: "urgent"})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Equal(t, "required", de.Details["description"])
	assert.Equal(t, "oneof=low medium high critical", de.Details["priority"])

	zero := int64(0)
	err = Validate(&AssignRequest{AssignedToID: &zero})
	assert.Equal(t, "gt=0", apperrors.ToDomainError(err).Details["assigned_to_id"])
	assert.NoError(t, Validate(&AssignRequest{}))

	err = Validate(&CreateUserRequest{Username: "ab", Password: "secret1", Name: "n", Email: "nope", Role: "root"})
	details := apperrors.ToDomainError(err).Details
	assert.Equal(t, "min=3", details["username"])
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "oneof=user agent admin", details["role"])
}
