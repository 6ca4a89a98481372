package handler

import (
	"orachat/backend/internal/chathub"
	"orachat/backend/internal/storage"

	"go.uber.org/zap"
)

// Handler carries the dependencies shared by all HTTP endpoints.
type Handler struct {
	Storage   storage.Storage
	Hub       *chathub.Manager
	JWTSecret []byte
	Logger    *zap.Logger
}

func NewHandler(s storage.Storage, hub *chathub.Manager, jwtSecret []byte, logger *zap.Logger) *Handler {
	return &Handler{
		Storage:   s,
		Hub:       hub,
		JWTSecret: jwtSecret,
		Logger:    logger,
	}
}
