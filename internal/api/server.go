package api

import (
	"chmura-plikow/internal/config"
	"chmura-plikow/internal/database"
	"chmura-plikow/internal/drive"
	"chmura-plikow/internal/websocket"
)

type Server struct {
	config *config.Config
	store  *database.Store
	drive  *drive.Coordinator
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.Store, coordinator *drive.Coordinator, wsHub *websocket.Hub) *Server {
	return &Server{
		config: cfg,
		store:  store,
		drive:  coordinator,
		wsHub:  wsHub,
	}
}
