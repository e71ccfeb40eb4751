package core

import "github.com/rs/zerolog"

// Hub bundles the session directory and the message routing components.
type Hub struct {
	Registry   *Registry
	Presence   *Presence
	Room       *Room
	Router     *Router
	Dispatcher *Dispatcher
}

// NewHub creates a hub. directory may be nil.
func NewHub(directory Directory, opts Options, logger *zerolog.Logger) *Hub {
	presence := NewPresence()
	registry := NewRegistry(presence)
	room := NewRoom(registry, directory)
	router := NewRouter(registry, directory, opts.EchoPrivateToSender)

	return &Hub{
		Registry:   registry,
		Presence:   presence,
		Room:       room,
		Router:     router,
		Dispatcher: NewDispatcher(registry, room, router, opts, logger),
	}
}
