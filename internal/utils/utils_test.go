// internal/utils/utils_test.go
package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

func TestFormatGHS(t *testing.T) {
	cases := map[int64]string{
		0:           "GHS 0.00",
		5:           "GHS 0.05",
		99_000:      "GHS 990.00",
		975_000:     "GHS 9,750.00",
		100_000_050: "GHS 1,000,000.50",
		-25_000:     "-GHS 250.00",
	}
	for pesewas, want := range cases {
		assert.Equal(t, want, FormatGHS(pesewas), "%d", pesewas)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("utils-test-secret")
	userID := uuid.New()

	token, err := GenerateJWT(userID, "reviewer", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "reviewer", claims.Role)

	SetJWTSecret("rotated-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)

	expired, err := GenerateJWT(userID, "buyer", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired)
	assert.Error(t, err)
}

func TestPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/v1/transactions?page=3&limit=10", nil)
	params := GetPaginationParams(c)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 20, params.Offset())

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/v1/transactions?page=-1&limit=1000", nil)
	params = GetPaginationParams(c)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)

	result := CreatePaginationResult([]int{1, 2}, 41, params)
	assert.Equal(t, 3, result.TotalPages)
}

func TestValidationErrors(t *testing.T) {
	type request struct {
		Status models.TransactionStatus `validate:"required,transaction_status"`
		Price  int64                    `validate:"gt=0"`
	}

	errs := GetValidationErrors(ValidateStruct(request{Status: "SHIPPED"}))
	require.Len(t, errs, 2)
	assert.Equal(t, "transaction_status", errs[0].Tag)
	assert.Equal(t, "gt", errs[1].Tag)

	assert.Empty(t, GetValidationErrors(ValidateStruct(request{Status: models.TransactionStatusFunded, Price: 1})))
}

func TestHashStringIsStable(t *testing.T) {
	assert.Equal(t, HashString("payout:abc"), HashString("payout:abc"))
	assert.NotEqual(t, HashString("payout:abc"), HashString("payout:abd"))
	assert.Len(t, HashString("x"), 64)
}
