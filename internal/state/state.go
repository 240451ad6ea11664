package state

import (
	"identidraw-be/internal/auth"
	"identidraw-be/internal/config"
	"identidraw-be/internal/service"
	"identidraw-be/internal/store"
)

// AppState 是显式组装的应用状态，所有服务共享同一个存储句柄，
// 不依赖任何包级可变单例。
type AppState struct {
	Cfg     *config.AppConfig
	Store   store.Store
	UserSvc *auth.UserService
	Hub     *service.Hub
	Orc     *service.Orchestrator
}

func NewAppState(
	cfg *config.AppConfig,
	st store.Store,
	userSvc *auth.UserService,
	hub *service.Hub,
	orc *service.Orchestrator,
) *AppState {
	return &AppState{
		Cfg:     cfg,
		Store:   st,
		UserSvc: userSvc,
		Hub:     hub,
		Orc:     orc,
	}
}
