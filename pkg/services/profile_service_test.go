package services

import (
	"testing"
	"time"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateResolvesToken(t *testing.T) {
	svc := NewProfileService(storage.NewMemoryStore())

	user := models.CurrentUser{ID: "user-1", Name: "Ana", Role: "candidate", Avatar: "🎯"}
	require.NoError(t, svc.RegisterToken("tok-abc", user, time.Hour))

	resolved, err := svc.Authenticate("tok-abc")
	require.NoError(t, err)
	require.Equal(t, user, *resolved)
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	svc := NewProfileService(storage.NewMemoryStore())

	_, err := svc.Authenticate("tok-desconocido")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate("")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeToken(t *testing.T) {
	svc := NewProfileService(storage.NewMemoryStore())

	user := models.CurrentUser{ID: "user-1", Name: "Ana", Role: "candidate"}
	require.NoError(t, svc.RegisterToken("tok-abc", user, time.Hour))
	require.NoError(t, svc.RevokeToken("tok-abc"))

	_, err := svc.Authenticate("tok-abc")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterTokenReplacesProfile(t *testing.T) {
	// Cambio de perfil: el contexto se reemplaza completo, no se muta
	svc := NewProfileService(storage.NewMemoryStore())

	require.NoError(t, svc.RegisterToken("tok-abc", models.CurrentUser{ID: "user-1", Role: "candidate"}, time.Hour))
	require.NoError(t, svc.RegisterToken("tok-abc", models.CurrentUser{ID: "user-1", Role: "admin"}, time.Hour))

	resolved, err := svc.Authenticate("tok-abc")
	require.NoError(t, err)
	require.Equal(t, "admin", resolved.Role)
}
