package main

import (
	"fmt"

	"identidraw-be/internal/api/http"
	"identidraw-be/internal/auth"
	"identidraw-be/internal/config"
	"identidraw-be/internal/logger"
	"identidraw-be/internal/service"
	"identidraw-be/internal/service/game"
	"identidraw-be/internal/state"
	"identidraw-be/internal/store"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)

	// 创建存储后端
	st, err := store.NewStore(cfg.StoreType, cfg.ValkeyAddr)
	if err != nil {
		panic(fmt.Errorf("创建存储后端失败: %w", err))
	}
	defer st.Close()

	// 组装服务，全部显式注入，共享同一个存储句柄
	lobbies := service.NewLobbyService(st, cfg.LobbyTTLSeconds)
	queue := service.NewMatchmakingService(st, lobbies, cfg.MatchSize)
	engine := game.NewEngine(st, cfg.GameTTLSeconds)
	hub := service.NewHub()

	orc := service.NewOrchestrator(
		cfg,
		lobbies,
		queue,
		engine,
		service.NewScheduler(),
		hub,
	)

	userSvc := auth.NewUserService(auth.StaticVerifier{}, st)

	appState := state.NewAppState(cfg, st, userSvc, hub, orc)

	// 启动服务器
	http.RunServer(appState)
}
