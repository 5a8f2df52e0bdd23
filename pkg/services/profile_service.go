package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/backsoul/training/pkg/models"
	"github.com/backsoul/training/pkg/storage"
)

const userTokenKeyPrefix = "training:user_token:"

// ErrInvalidToken token desconocido, revocado o expirado
var ErrInvalidToken = errors.New("token inválido o expirado")

// ProfileService resuelve tokens de sesión del proveedor de identidad externo
// a un contexto inmutable de usuario. La emisión de tokens es responsabilidad
// del proveedor; aquí solo se consultan.
type ProfileService struct {
	store storage.Store
}

// NewProfileService crea una nueva instancia del servicio de perfiles
func NewProfileService(store storage.Store) *ProfileService {
	return &ProfileService{
		store: store,
	}
}

// Authenticate resuelve un token a su usuario. El CurrentUser devuelto es
// inmutable: se construye completo aquí y se pasa tal cual a los servicios.
func (s *ProfileService) Authenticate(token string) (*models.CurrentUser, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	userJSON, err := s.store.Get(userTokenKeyPrefix + token)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("error resolviendo token: %v", err)
	}

	var user models.CurrentUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("error parsing usuario: %v", err)
	}

	return &user, nil
}

// RegisterToken registra un token emitido por el proveedor de identidad.
// Se invoca al iniciar sesión; reemplaza el perfil completo si ya existía.
func (s *ProfileService) RegisterToken(token string, user models.CurrentUser, ttl time.Duration) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("error serializando usuario: %v", err)
	}
	return s.store.Set(userTokenKeyPrefix+token, string(userJSON), ttl)
}

// RevokeToken elimina un token (cierre de sesión)
func (s *ProfileService) RevokeToken(token string) error {
	return s.store.Delete(userTokenKeyPrefix + token)
}
