package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/requestdata"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims JWTClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSetContextFromTokenResolvesIdentity(t *testing.T) {
	svc := NewIdentityService(logger.NewNop(), testSecret)
	userID := uuid.New()

	token := signToken(t, JWTClaims{
		Locale: "de",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	ctx, err := svc.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		t.Fatalf("request data missing from context")
	}
	if rd.UserID != userID {
		t.Fatalf("user id: want=%s got=%s", userID, rd.UserID)
	}
	if rd.Locale != "de" {
		t.Fatalf("locale: want=de got=%q", rd.Locale)
	}
}

func TestSetContextFromTokenRejectsExpired(t *testing.T) {
	svc := NewIdentityService(logger.NewNop(), testSecret)
	token := signToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)

	if _, err := svc.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatalf("expired token: want error got nil")
	}
}

func TestSetContextFromTokenRejectsWrongSignature(t *testing.T) {
	svc := NewIdentityService(logger.NewNop(), testSecret)
	token := signToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "other-secret")

	if _, err := svc.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatalf("wrong signature: want error got nil")
	}
}

func TestSetContextFromTokenRejectsBadSubject(t *testing.T) {
	svc := NewIdentityService(logger.NewNop(), testSecret)
	token := signToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	if _, err := svc.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatalf("bad subject: want error got nil")
	}
	if _, err := svc.SetContextFromToken(context.Background(), ""); err == nil {
		t.Fatalf("empty token: want error got nil")
	}
}
