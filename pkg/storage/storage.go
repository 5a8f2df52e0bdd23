package storage

import (
	"errors"
	"time"
)

// ErrNotFound se devuelve cuando una clave no existe en el almacén
var ErrNotFound = errors.New("clave no encontrada")

// Store operaciones de almacenamiento que necesitan los servicios.
// La implementación de producción vive en pkg/redis; los tests usan
// la implementación en memoria de este paquete.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string, ttl time.Duration) error
	Delete(key string) error

	AddToSet(key string, members ...string) error
	GetSetMembers(key string) ([]string, error)
	RemoveFromSet(key, member string) error

	PushToList(key string, values ...string) error
	GetList(key string) ([]string, error)
}
