package tokenpkg

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-petr/pet-transfer/pkg/randompkg"
)

var tokenTypes = []string{TypePaseto, TypeJWT}

func TestNewMaker(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		tokenType string
		key       string
		wantErr   bool
	}{
		{name: "Paseto", tokenType: TypePaseto, key: strings.Repeat("x", 32)},
		{name: "PasetoShortKey", tokenType: TypePaseto, key: strings.Repeat("x", 31), wantErr: true},
		{name: "PasetoLongKey", tokenType: TypePaseto, key: strings.Repeat("x", 33), wantErr: true},
		{name: "JWT", tokenType: TypeJWT, key: strings.Repeat("x", 32)},
		{name: "JWTLongKey", tokenType: TypeJWT, key: strings.Repeat("x", 64)},
		{name: "JWTShortKey", tokenType: TypeJWT, key: strings.Repeat("x", minSecretKeySize-1), wantErr: true},
		{name: "UnknownType", tokenType: "opaque", key: strings.Repeat("x", 32), wantErr: true},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			maker, err := NewMaker(tc.tokenType, tc.key)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewMaker(%q, key of %d) returned error %v, wantErr %v", tc.tokenType, len(tc.key), err, tc.wantErr)
			}

			if tc.wantErr && maker != nil {
				t.Errorf("NewMaker(%q, key of %d) = %+v, want nil", tc.tokenType, len(tc.key), maker)
			}
		})
	}
}

func TestMakerVerifyToken(t *testing.T) {
	t.Parallel()

	for _, tokenType := range tokenTypes {
		tokenType := tokenType

		t.Run(tokenType, func(t *testing.T) {
			t.Parallel()

			maker, err := NewMaker(tokenType, randompkg.String(32))
			if err != nil {
				t.Fatalf("NewMaker(%q, key) returned error: %v", tokenType, err)
			}

			stranger, err := NewMaker(tokenType, randompkg.String(32))
			if err != nil {
				t.Fatalf("NewMaker(%q, key) returned error: %v", tokenType, err)
			}

			testCases := []struct {
				name     string
				issuer   Maker
				duration time.Duration
				tamper   func(token string) string
				wantErr  error
			}{
				{name: "OK", issuer: maker, duration: time.Minute},
				{name: "Expired", issuer: maker, duration: -time.Minute, wantErr: ErrExpiredToken},
				{name: "OtherKey", issuer: stranger, duration: time.Minute, wantErr: ErrInvalidToken},
				{
					name:     "Truncated",
					issuer:   maker,
					duration: time.Minute,
					tamper:   func(token string) string { return token[:len(token)-4] },
					wantErr:  ErrInvalidToken,
				},
				{
					name:     "Garbage",
					issuer:   maker,
					duration: time.Minute,
					tamper:   func(string) string { return "not-a-token" },
					wantErr:  ErrInvalidToken,
				},
			}

			for _, tc := range testCases {
				username := randompkg.Owner()

				token, payload, err := tc.issuer.CreateToken(username, tc.duration)
				if err != nil {
					t.Fatalf("%s: CreateToken(%v, %v) returned error: %v", tc.name, username, tc.duration, err)
				}

				if tc.tamper != nil {
					token = tc.tamper(token)
				}

				got, err := maker.VerifyToken(token)
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("%s: VerifyToken() returned error %v, want %v", tc.name, err, tc.wantErr)
					continue
				}

				if tc.wantErr != nil {
					continue
				}

				want := &Payload{
					Username:  username,
					IssuedAt:  time.Now(),
					ExpiredAt: time.Now().Add(tc.duration),
				}

				delta := cmpopts.EquateApproxTime(time.Second)
				if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Payload{}, "ID"), delta); diff != "" {
					t.Errorf("%s: VerifyToken() payload mismatch (-want +got):\n%s", tc.name, diff)
				}

				if got.ID != payload.ID {
					t.Errorf("%s: VerifyToken() ID = %v, want %v", tc.name, got.ID, payload.ID)
				}
			}
		})
	}
}

func TestJWTRejectsUnsignedToken(t *testing.T) {
	t.Parallel()

	payload, err := NewPayload(randompkg.Owner(), time.Minute)
	if err != nil {
		t.Fatalf("NewPayload() returned error: %v", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, payload).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(none) returned error: %v", err)
	}

	maker, err := NewMaker(TypeJWT, randompkg.String(32))
	if err != nil {
		t.Fatalf("NewMaker(%q, key) returned error: %v", TypeJWT, err)
	}

	if _, err := maker.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyToken(unsigned) returned error %v, want %v", err, ErrInvalidToken)
	}
}
