package handler

import (
	"studysync/internal/app/chat"
	"studysync/internal/app/storage"
	"studysync/internal/configs"
)

// AppDeps bundles the shared dependencies injected into every handler.
type AppDeps struct {
	Runtime   *chat.Runtime
	Config    *configs.AppConfig
	Storage   storage.Service
	Directory chat.UserDirectory
}
