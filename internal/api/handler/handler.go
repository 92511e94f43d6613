package handler

import (
	"log/slog"

	"fadechat/backend/internal/chathub"
	"fadechat/backend/internal/config"
	"fadechat/backend/internal/storage"
)

type Handler struct {
	Hub     *chathub.Hub
	Storage storage.Storage
	Cfg     *config.Config
	Log     *slog.Logger
}

func NewHandler(hub *chathub.Hub, s storage.Storage, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{Hub: hub, Storage: s, Cfg: cfg, Log: log}
}
