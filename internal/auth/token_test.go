package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func TestIssueAndVerify(t *testing.T) {
	token, err := Issue(testSecret, 42, "alice", time.Hour)
	require.NoError(t, err)

	userID, err := Verify(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestVerify_Rejects(t *testing.T) {
	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "7",
			"iss": Issuer,
			"aud": Audience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", want: ErrInvalidToken},
		{name: "wrong secret", token: sign(valid(), jwt.SigningMethodHS256, []byte("other")), want: ErrInvalidToken},
		{
			name: "expired",
			token: func() string {
				c := valid()
				c["exp"] = time.Now().Add(-time.Minute).Unix()
				return sign(c, jwt.SigningMethodHS256, []byte(testSecret))
			}(),
			want: ErrInvalidToken,
		},
		{
			name: "no expiry",
			token: func() string {
				c := valid()
				delete(c, "exp")
				return sign(c, jwt.SigningMethodHS256, []byte(testSecret))
			}(),
			want: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := valid()
				c["iss"] = "someone-else"
				return sign(c, jwt.SigningMethodHS256, []byte(testSecret))
			}(),
			want: ErrInvalidToken,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := valid()
				c["aud"] = "other-client"
				return sign(c, jwt.SigningMethodHS256, []byte(testSecret))
			}(),
			want: ErrInvalidToken,
		},
		{
			name: "non numeric subject",
			token: func() string {
				c := valid()
				c["sub"] = "alice"
				return sign(c, jwt.SigningMethodHS256, []byte(testSecret))
			}(),
			want: ErrInvalidSubject,
		},
		{
			name: "none algorithm",
			token: func() string {
				return sign(valid(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)
			}(),
			want: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(testSecret, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssue_RequiresSecret(t *testing.T) {
	_, err := Issue("", 1, "alice", 0)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("Bearer"))
	assert.Empty(t, BearerToken(""))
}
